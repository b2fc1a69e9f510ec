// Package clipboard reads and writes the system clipboard as text.
package clipboard

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// Board is a text clipboard.
type Board interface {
	Read() (string, error)
	Write(text string) error
}

// System is the OS clipboard. On Linux it needs xclip, xsel or
// wl-clipboard on PATH.
type System struct {
	mu sync.Mutex
}

// Read returns the clipboard text.
func (s *System) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// Write replaces the clipboard text.
func (s *System) Write(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// Unsupported reports whether no clipboard utility is available.
func Unsupported() bool { return clipboard.Unsupported }

// Memory is an in-process Board.
type Memory struct {
	mu   sync.Mutex
	text string
}

// Read implements Board.
func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

// Write implements Board.
func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}
