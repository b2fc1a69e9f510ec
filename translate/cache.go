package translate

import (
	"context"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"go.aimuz.me/cliptrans/cache"
)

// Store is the subset of cache.Cache used by WithCache.
type Store interface {
	Get(key string) (*cache.Entry, bool)
	Set(key string, entry *cache.Entry, ttl time.Duration) error
}

// WithCache wraps engine with a translation cache. scope separates entries
// of differently configured engines sharing one store.
//
// A hit yields the cached text as a single chunk followed by Completed
// without touching engine. A miss streams from engine and stores the
// completed text.
func WithCache(engine Engine, store Store, ttl time.Duration, scope string) Engine {
	return &cachedEngine{Engine: engine, store: store, ttl: ttl, scope: scope}
}

type cachedEngine struct {
	Engine
	store Store
	ttl   time.Duration
	scope string
}

func (c *cachedEngine) Stream(ctx context.Context, req Request) iter.Seq[Event] {
	key := cache.GenerateKey(c.scope, string(req.Source), string(req.Target), req.Text)
	var used atomic.Bool
	return func(yield func(Event) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}

		if entry, ok := c.store.Get(key); ok {
			slog.Debug("translation cache hit", "request", req.ID)
			if yield(Chunk(req.ID, entry.Text)) {
				yield(Completed(req.ID, entry.Text))
			}
			return
		}

		for ev := range c.Engine.Stream(ctx, req) {
			if ev.Kind == KindCompleted && ev.Text != "" {
				c.put(key, req, ev.Text)
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func (c *cachedEngine) put(key string, req Request, text string) {
	entry := &cache.Entry{
		Text:      text,
		Source:    string(req.Source),
		Target:    string(req.Target),
		CreatedAt: time.Now(),
	}
	// Best effort.
	if err := c.store.Set(key, entry, c.ttl); err != nil {
		slog.Warn("store translation", "error", err)
	}
}
