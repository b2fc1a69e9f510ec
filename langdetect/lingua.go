package langdetect

import (
	"fmt"

	"github.com/pemistahl/lingua-go"

	"go.aimuz.me/cliptrans/internal/types"
)

var linguaLanguages = map[types.Language]lingua.Language{
	types.Japanese:   lingua.Japanese,
	types.English:    lingua.English,
	types.Chinese:    lingua.Chinese,
	types.Taiwanese:  lingua.Chinese,
	types.Korean:     lingua.Korean,
	types.Arabic:     lingua.Arabic,
	types.Italian:    lingua.Italian,
	types.Indonesian: lingua.Indonesian,
	types.Dutch:      lingua.Dutch,
	types.Spanish:    lingua.Spanish,
	types.Thai:       lingua.Thai,
	types.German:     lingua.German,
	types.French:     lingua.French,
	types.Vietnamese: lingua.Vietnamese,
	types.Russian:    lingua.Russian,
}

// Lingua detects with lingua-go's statistical models, restricted to the two
// languages of the pair.
type Lingua struct {
	pair     types.LanguagePair
	detector lingua.LanguageDetector
	primary  lingua.Language
	fallback Detector // Used when lingua cannot decide; may be nil
}

// NewLingua builds a Lingua detector for pair.
func NewLingua(pair types.LanguagePair) (*Lingua, error) {
	primary, ok := linguaLanguages[pair.Primary]
	if !ok {
		return nil, fmt.Errorf("lingua: unsupported language %q", pair.Primary)
	}
	secondary, ok := linguaLanguages[pair.Secondary]
	if !ok {
		return nil, fmt.Errorf("lingua: unsupported language %q", pair.Secondary)
	}
	if primary == secondary {
		return nil, fmt.Errorf("lingua: cannot tell %s from %s", pair.Primary, pair.Secondary)
	}

	l := &Lingua{
		pair:     pair,
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(primary, secondary).Build(),
		primary:  primary,
	}
	if s, err := NewScript(pair); err == nil {
		l.fallback = s
	}
	return l, nil
}

// Detect implements Detector.
func (l *Lingua) Detect(text string) types.DetectResult {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		if l.fallback != nil {
			return l.fallback.Detect(text)
		}
		return result(l.pair, l.pair.Primary)
	}
	if lang == l.primary {
		return result(l.pair, l.pair.Primary)
	}
	return result(l.pair, l.pair.Secondary)
}
