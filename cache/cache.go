// Package cache stores finished translations in badger.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL is how long a translation stays cached.
const DefaultTTL = 30 * 24 * time.Hour

const gcInterval = 10 * time.Minute

// Entry is one cached translation.
type Entry struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is a badger-backed key/value store for translations.
// Safe for concurrent use.
type Cache struct {
	db   *badger.DB
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New opens the cache at path. An empty path keeps everything in memory.
func New(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{slog.Default().With("component", "badger")})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	c := &Cache{db: db, done: make(chan struct{})}
	if path != "" {
		c.wg.Add(1)
		go c.runGC()
	}
	return c, nil
}

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (*Entry, bool) {
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("cache get", "error", err)
		}
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key for ttl. A non-positive ttl uses DefaultTTL.
func (c *Cache) Set(key string, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), val).WithTTL(ttl))
	})
}

// Close stops background GC and closes the database.
func (c *Cache) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.wg.Wait()
		err = c.db.Close()
	})
	return err
}

func (c *Cache) runGC() {
	defer c.wg.Done()
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			// Rewrite value log files until badger reports nothing left.
			for {
				if err := c.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

// GenerateKey hashes parts into a cache key. Parts are separated so that
// ("ab", "c") and ("a", "bc") differ.
func GenerateKey(parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return "tr:" + strconv.FormatUint(h.Sum64(), 16)
}

// badgerLogger forwards badger's printf-style logs to slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(trim(format, args))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(trim(format, args))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(trim(format, args))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(trim(format, args))
}

func trim(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
