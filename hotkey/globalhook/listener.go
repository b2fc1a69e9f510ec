// Package globalhook feeds system-wide copy shortcuts into a callback.
// It needs accessibility permission on macOS and an X11 session on Linux.
package globalhook

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"

	hook "github.com/robotn/gohook"
)

// Listener reports every copy-shortcut key-down (Cmd+C on macOS, Ctrl+C
// elsewhere). gohook keeps global state, so only one Listener may run.
type Listener struct {
	log *slog.Logger

	mu   sync.Mutex
	done chan struct{} // Non-nil while running
}

// New creates a Listener.
func New(log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{log: log.With("component", "globalhook")}
}

// CopyShortcut returns the key combination reported by the Listener.
func CopyShortcut() []string {
	if runtime.GOOS == "darwin" {
		return []string{"c", "cmd"}
	}
	return []string{"c", "ctrl"}
}

// Start registers the shortcut and begins processing events in the
// background. signal is called on the hook goroutine and must not block.
func (l *Listener) Start(signal func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		return errors.New("globalhook: already running")
	}

	keys := CopyShortcut()
	hook.Register(hook.KeyDown, keys, func(hook.Event) {
		signal()
	})

	events := hook.Start()
	done := make(chan struct{})
	l.done = done
	go func() {
		defer close(done)
		<-hook.Process(events)
	}()

	l.log.Info("listening for copy shortcut", "keys", keys)
	return nil
}

// Stop ends event processing and waits for the hook goroutine.
func (l *Listener) Stop() {
	l.mu.Lock()
	done := l.done
	l.done = nil
	l.mu.Unlock()

	if done == nil {
		return
	}
	hook.End()
	<-done
	l.log.Info("hotkey listener stopped")
}
