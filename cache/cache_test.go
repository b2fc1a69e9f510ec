package cache

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	key := GenerateKey("process", "English", "Japanese", "hello")
	if _, ok := c.Get(key); ok {
		t.Fatal("Get() on empty cache returned an entry")
	}

	want := &Entry{Text: "こんにちは", Source: "English", Target: "Japanese", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := c.Set(key, want, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() after Set() missed")
	}
	if got.Text != want.Text || got.Source != want.Source || got.Target != want.Target || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestCachePersists(t *testing.T) {
	dir := t.TempDir()
	key := GenerateKey("k")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Set(key, &Entry{Text: "persisted"}, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	c, err = New(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer c.Close()

	got, ok := c.Get(key)
	if !ok || got.Text != "persisted" {
		t.Fatalf("Get() = %+v, %v; want persisted entry", got, ok)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		same bool
	}{
		{name: "deterministic", a: []string{"x", "y"}, b: []string{"x", "y"}, same: true},
		{name: "order matters", a: []string{"x", "y"}, b: []string{"y", "x"}},
		{name: "boundaries matter", a: []string{"ab", "c"}, b: []string{"a", "bc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateKey(tt.a...) == GenerateKey(tt.b...); got != tt.same {
				t.Errorf("GenerateKey(%q) == GenerateKey(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}
