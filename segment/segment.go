// Package segment splits translated Japanese into phrases so that line
// wrapping never breaks inside a word.
package segment

import (
	"log/slog"
	"strings"
	"unicode"
)

// ZeroWidthSpace marks a line-break opportunity between phrases.
const ZeroWidthSpace = "\u200b"

// Segmenter splits a paragraph into phrases. The phrases must concatenate
// back to the paragraph.
type Segmenter interface {
	Segment(paragraph string) []string
}

// Func adapts a function to Segmenter.
type Func func(string) []string

// Segment implements Segmenter.
func (f Func) Segment(s string) []string { return f(s) }

// Apply collapses blank-line runs, segments each paragraph with seg, and
// joins phrases with ZeroWidthSpace and paragraphs with a blank line.
// A nil seg only collapses paragraphs. If seg panics or returns phrases that
// do not reassemble the paragraph, that paragraph is kept as is.
func Apply(text string, seg Segmenter) string {
	paragraphs := splitParagraphs(text)
	for i, p := range paragraphs {
		if seg == nil {
			continue
		}
		phrases, ok := safeSegment(seg, p)
		if !ok || strings.Join(phrases, "") != p {
			slog.Debug("segmentation skipped", "paragraph", i)
			continue
		}
		paragraphs[i] = strings.Join(phrases, ZeroWidthSpace)
	}
	return strings.Join(paragraphs, "\n\n")
}

func safeSegment(seg Segmenter, p string) (phrases []string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("segmenter panicked", "panic", r)
			phrases, ok = nil, false
		}
	}()
	return seg.Segment(p), true
}

// splitParagraphs normalises line endings and splits text on blank lines,
// dropping empty paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.Trim(p, "\n")
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Phrases is the default Japanese segmenter. It breaks:
//   - after closing punctuation,
//   - where a hiragana run is followed by kanji, katakana, latin or an
//     opening bracket,
//   - after whitespace that precedes a non-space.
var Phrases Segmenter = Func(phrases)

func phrases(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var out []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if boundary(runes[i-1], runes[i]) {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	return append(out, string(runes[start:]))
}

func boundary(prev, next rune) bool {
	switch {
	case isClosing(prev):
		return !isClosing(next) && !unicode.IsSpace(next)
	case unicode.IsSpace(prev):
		return !unicode.IsSpace(next)
	case isHiragana(prev):
		return isKanji(next) || isKatakana(next) || isLatin(next) || isOpening(next)
	}
	return false
}

func isHiragana(r rune) bool { return r >= 0x3041 && r <= 0x309F }

func isKatakana(r rune) bool { return (r >= 0x30A0 && r <= 0x30FF) || r == 'ー' }

func isKanji(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) || r == '々'
}

func isLatin(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
		(r >= 'Ａ' && r <= 'Ｚ') || (r >= 'ａ' && r <= 'ｚ') || (r >= '０' && r <= '９')
}

func isClosing(r rune) bool {
	return strings.ContainsRune("、。，．！？!?」』）)】〕〉》", r)
}

func isOpening(r rune) bool {
	return strings.ContainsRune("「『（(【〔〈《", r)
}
