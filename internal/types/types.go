// Package types provides shared type definitions for the application.
package types

import "slices"

// Language is a translator language name as understood by plamo-translate.
type Language string

// Supported languages.
const (
	Japanese   Language = "Japanese"
	English    Language = "English"
	Chinese    Language = "Chinese"
	Taiwanese  Language = "Taiwanese"
	Korean     Language = "Korean"
	Arabic     Language = "Arabic"
	Italian    Language = "Italian"
	Indonesian Language = "Indonesian"
	Dutch      Language = "Dutch"
	Spanish    Language = "Spanish"
	Thai       Language = "Thai"
	German     Language = "German"
	French     Language = "French"
	Vietnamese Language = "Vietnamese"
	Russian    Language = "Russian"
)

// Languages lists every supported language.
var Languages = []Language{
	Japanese, English, Chinese, Taiwanese, Korean, Arabic, Italian,
	Indonesian, Dutch, Spanish, Thai, German, French, Vietnamese, Russian,
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return slices.Contains(Languages, l)
}

// LanguagePair is the two languages a session translates between.
// Text detected as one of them is translated into the other.
type LanguagePair struct {
	Primary   Language `json:"primary" env:"PRIMARY"`
	Secondary Language `json:"secondary" env:"SECONDARY"`
}

// DefaultPair is Japanese <-> English.
var DefaultPair = LanguagePair{Primary: Japanese, Secondary: English}

// Other returns the opposite side of the pair.
// Languages outside the pair map to Primary.
func (p LanguagePair) Other(l Language) Language {
	if l == p.Primary {
		return p.Secondary
	}
	return p.Primary
}

// Contains reports whether l is one side of the pair.
func (p LanguagePair) Contains(l Language) bool {
	return l == p.Primary || l == p.Secondary
}

// DetectResult represents the result of language detection.
type DetectResult struct {
	Source Language `json:"source"`
	Target Language `json:"target"`
}

// SessionStatus is a point-in-time view of the translation session.
type SessionStatus struct {
	State      string   `json:"state"`
	RequestID  uint64   `json:"requestId,omitempty"`
	SourceLang Language `json:"sourceLang,omitempty"`
	TargetLang Language `json:"targetLang,omitempty"`
	Partial    int      `json:"partial"` // Bytes accumulated for the active request
	Ready      bool     `json:"ready"`   // Whether the engine finished its one-time setup
}
