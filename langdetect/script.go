package langdetect

import (
	"errors"
	"strings"

	"go.aimuz.me/cliptrans/internal/types"
)

// Script detects Japanese by the presence of kana or kanji. Anything else is
// taken to be the other language of the pair.
type Script struct {
	pair types.LanguagePair
}

// NewScript creates a Script detector. The pair must include Japanese.
func NewScript(pair types.LanguagePair) (*Script, error) {
	if !pair.Contains(types.Japanese) {
		return nil, errors.New("script detector requires Japanese in the language pair")
	}
	return &Script{pair: pair}, nil
}

// Detect implements Detector.
func (s *Script) Detect(text string) types.DetectResult {
	if HasJapanese(text) {
		return result(s.pair, types.Japanese)
	}
	return result(s.pair, s.pair.Other(types.Japanese))
}

// HasJapanese reports whether text contains hiragana, katakana or CJK
// unified ideographs.
func HasJapanese(text string) bool {
	return strings.ContainsFunc(text, isJapanese)
}

func isJapanese(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	}
	return false
}
