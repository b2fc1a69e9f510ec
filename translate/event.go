// Package translate runs translation engines and streams their output as
// ordered events.
package translate

import (
	"context"
	"errors"
	"iter"

	"go.aimuz.me/cliptrans/internal/types"
)

// Failure classes carried by Failed events.
var (
	ErrInit        = errors.New("translator unavailable")
	ErrSpawn       = errors.New("start translator")
	ErrTimeout     = errors.New("translation timed out")
	ErrNonZeroExit = errors.New("translator exited with error")
	ErrStream      = errors.New("read translator output")
)

// Request is one immutable translation job.
type Request struct {
	ID      uint64
	Text    string
	Source  types.Language
	Target  types.Language
	TraceID string
}

// Kind tags an Event.
type Kind uint8

const (
	KindChunk Kind = iota + 1
	KindCompleted
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindCompleted:
		return "completed"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one item of a translation stream.
//
// For KindChunk, Text is the increment. For KindCompleted, Text is the full
// translation. For KindFailed, Text is the human-readable reason and Err
// wraps one of the failure classes above.
type Event struct {
	RequestID uint64
	Kind      Kind
	Text      string
	Err       error
}

// Terminal reports whether e ends its stream.
func (e Event) Terminal() bool {
	return e.Kind == KindCompleted || e.Kind == KindFailed
}

// Chunk builds a KindChunk event.
func Chunk(id uint64, text string) Event {
	return Event{RequestID: id, Kind: KindChunk, Text: text}
}

// Completed builds a KindCompleted event.
func Completed(id uint64, text string) Event {
	return Event{RequestID: id, Kind: KindCompleted, Text: text}
}

// Failed builds a KindFailed event.
func Failed(id uint64, reason string, err error) Event {
	return Event{RequestID: id, Kind: KindFailed, Text: reason, Err: err}
}

// Engine is a translation backend.
//
// Init performs one-time setup and may be slow. Stream returns a lazy,
// single-pass sequence: zero or more chunks followed by exactly one
// terminal event. Both block and must not run on the UI goroutine.
type Engine interface {
	Init(ctx context.Context) error
	Stream(ctx context.Context, req Request) iter.Seq[Event]
}
