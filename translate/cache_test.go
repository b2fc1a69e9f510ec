package translate

import (
	"context"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"go.aimuz.me/cliptrans/cache"
)

// scriptedEngine replays a fixed event list, re-tagged with the request ID.
type scriptedEngine struct {
	events []Event
	calls  atomic.Int32
}

func (s *scriptedEngine) Init(context.Context) error { return nil }

func (s *scriptedEngine) Stream(_ context.Context, req Request) iter.Seq[Event] {
	s.calls.Add(1)
	return func(yield func(Event) bool) {
		for _, ev := range s.events {
			ev.RequestID = req.ID
			if !yield(ev) {
				return
			}
		}
	}
}

func TestWithCache(t *testing.T) {
	store, err := cache.New("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	inner := &scriptedEngine{events: []Event{Chunk(0, "こん"), Chunk(0, "にちは"), Completed(0, "こんにちは")}}
	engine := WithCache(inner, store, time.Hour, "test")

	miss := collect(engine.Stream(context.Background(), Request{ID: 1, Text: "hello", Source: "English", Target: "Japanese"}))
	want := []Event{Chunk(1, "こん"), Chunk(1, "にちは"), Completed(1, "こんにちは")}
	if diff := cmp.Diff(want, miss); diff != "" {
		t.Fatalf("miss events mismatch (-want +got):\n%s", diff)
	}

	hit := collect(engine.Stream(context.Background(), Request{ID: 2, Text: "hello", Source: "English", Target: "Japanese"}))
	want = []Event{Chunk(2, "こんにちは"), Completed(2, "こんにちは")}
	if diff := cmp.Diff(want, hit); diff != "" {
		t.Fatalf("hit events mismatch (-want +got):\n%s", diff)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner engine streamed %d times, want 1", got)
	}

	// Different direction is a different key.
	collect(engine.Stream(context.Background(), Request{ID: 3, Text: "hello", Source: "Japanese", Target: "English"}))
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner engine streamed %d times, want 2", got)
	}
}

func TestWithCacheSkipsFailures(t *testing.T) {
	store, err := cache.New("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	inner := &scriptedEngine{events: []Event{Failed(0, "model error", ErrNonZeroExit)}}
	engine := WithCache(inner, store, time.Hour, "test")

	req := Request{ID: 1, Text: "hello", Source: "English", Target: "Japanese"}
	collect(engine.Stream(context.Background(), req))
	collect(engine.Stream(context.Background(), req))

	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner engine streamed %d times, want 2", got)
	}
}
