package app

import (
	"errors"
	"testing"
)

type emitted struct {
	name string
	data any
}

func TestEmitterForwardsEvents(t *testing.T) {
	var got []emitted
	e := emitter{emit: func(name string, data any) {
		got = append(got, emitted{name, data})
	}}

	e.OnStatus("translating English → Japanese")
	e.OnChunk("こん")
	e.OnComplete("こんにちは")
	e.OnError("model error")

	want := []emitted{
		{EventStatus, "translating English → Japanese"},
		{EventChunk, "こん"},
		{EventComplete, "こんにちは"},
		{EventError, "model error"},
	}
	if len(got) != len(want) {
		t.Fatalf("emitted %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestServiceEmitWithoutApp(t *testing.T) {
	s := New("test")
	s.emit(EventStatus, "ignored")
	s.Shutdown()

	if got := s.GetVersion(); got != "test" {
		t.Errorf("GetVersion() = %q, want %q", got, "test")
	}
}

func TestServiceNotReady(t *testing.T) {
	s := New("test")

	if _, err := s.Translate("hello"); !errors.Is(err, errNotReady) {
		t.Errorf("Translate() error = %v, want %v", err, errNotReady)
	}
	if err := s.CopyResult(); !errors.Is(err, errNotReady) {
		t.Errorf("CopyResult() error = %v, want %v", err, errNotReady)
	}
}
