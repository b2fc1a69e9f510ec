// Package app provides the application service for Wails bindings.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/cliptrans/clipboard"
	"go.aimuz.me/cliptrans/config"
	"go.aimuz.me/cliptrans/hotkey/globalhook"
	"go.aimuz.me/cliptrans/internal/core"
	"go.aimuz.me/cliptrans/internal/types"
)

// errNotReady is returned by bound methods when Init failed.
var errNotReady = errors.New("translator is not ready")

// Service provides application functionality bound to Wails.
// Translation logic lives in core; this type adapts it to the frontend.
type Service struct {
	core *core.Core

	// UI references - set via Init
	app    *application.App
	window application.Window

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	version string
}

// New creates a new Service. Call Init() after Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init loads configuration and starts the translation core.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, window application.Window) error {
	s.app = app
	s.window = window

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = config.Default()
	}
	setupLogger(cfg)

	c, err := core.New(core.Options{
		Config:     cfg,
		UI:         emitter{emit: s.emit},
		Clipboard:  &clipboard.System{},
		Trigger:    globalhook.New(slog.Default()),
		Log:        slog.Default(),
		OnActivate: s.showWindow,
	})
	if err != nil {
		return err
	}
	s.core = c

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := c.Run(ctx); err != nil {
			slog.Error("run core", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the core and releases resources.
func (s *Service) Shutdown() {
	s.once.Do(func() {
		if s.core == nil {
			return
		}
		s.cancel()
		<-s.done
		if err := s.core.Close(); err != nil {
			slog.Error("close core", "error", err)
		}
	})
}

// setupLogger installs a colored stderr handler at the configured level.
func setupLogger(cfg *config.Config) {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Translation
// ─────────────────────────────────────────────────────────────────────────────

// Translate translates text from the input area. It returns false when a
// translation is already running.
func (s *Service) Translate(text string) (bool, error) {
	if s.core == nil {
		return false, errNotReady
	}
	return s.core.Translate(context.Background(), text)
}

// TranslateClipboard translates the current clipboard text.
func (s *Service) TranslateClipboard() (bool, error) {
	if s.core == nil {
		return false, errNotReady
	}
	return s.core.TranslateClipboard(context.Background())
}

// Cancel abandons the running translation.
func (s *Service) Cancel() (bool, error) {
	if s.core == nil {
		return false, errNotReady
	}
	return s.core.Cancel(context.Background())
}

// CopyResult copies the latest translation to the clipboard.
func (s *Service) CopyResult() error {
	if s.core == nil {
		return errNotReady
	}
	return s.core.CopyResult(context.Background())
}

// GetStatus returns the session status.
func (s *Service) GetStatus() (types.SessionStatus, error) {
	if s.core == nil {
		return types.SessionStatus{}, errNotReady
	}
	return s.core.Status(context.Background())
}

// DetectLanguage detects the translation direction of the given text.
func (s *Service) DetectLanguage(text string) types.DetectResult {
	if s.core == nil {
		return types.DetectResult{}
	}
	return s.core.Detect(text)
}

// GetLanguages returns the configured language pair.
func (s *Service) GetLanguages() types.LanguagePair {
	if s.core == nil {
		return types.DefaultPair
	}
	return s.core.Languages()
}

// ─────────────────────────────────────────────────────────────────────────────
// Window
// ─────────────────────────────────────────────────────────────────────────────

// ShowWindow brings the main window to the front.
func (s *Service) ShowWindow() {
	s.showWindow()
}

func (s *Service) showWindow() {
	if s.window != nil {
		s.window.Show()
		s.window.Focus()
	}
}
