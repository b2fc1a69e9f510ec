package app

import "log/slog"

// emitter forwards session updates to the frontend as events.
// Its methods run on the dispatcher goroutine, one at a time.
type emitter struct {
	emit func(name string, data any)
}

func (e emitter) OnStatus(msg string) {
	slog.Debug("status", "message", msg)
	e.emit(EventStatus, msg)
}

func (e emitter) OnChunk(text string) {
	e.emit(EventChunk, text)
}

func (e emitter) OnComplete(text string) {
	e.emit(EventComplete, text)
}

func (e emitter) OnError(msg string) {
	slog.Warn("translation error", "message", msg)
	e.emit(EventError, msg)
}
