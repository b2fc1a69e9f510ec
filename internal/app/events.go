package app

// Event names for frontend communication.
const (
	EventStatus   = "translation-status"
	EventChunk    = "translation-chunk"
	EventComplete = "translation-complete"
	EventError    = "translation-error"
)
