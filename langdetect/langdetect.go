// Package langdetect decides which side of a language pair a text is in.
package langdetect

import (
	"fmt"

	"go.aimuz.me/cliptrans/internal/types"
)

// Detector kinds accepted by New.
const (
	KindScript = "script"
	KindLingua = "lingua"
)

// Detector maps a text to a translation direction within a pair.
type Detector interface {
	Detect(text string) types.DetectResult
}

// New returns the detector named by kind for pair. An empty kind means
// KindScript.
func New(kind string, pair types.LanguagePair) (Detector, error) {
	switch kind {
	case "", KindScript:
		return NewScript(pair)
	case KindLingua:
		return NewLingua(pair)
	default:
		return nil, fmt.Errorf("unknown detector %q", kind)
	}
}

func result(pair types.LanguagePair, source types.Language) types.DetectResult {
	return types.DetectResult{Source: source, Target: pair.Other(source)}
}
