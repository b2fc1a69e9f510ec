// Package core wires the translation session to its trigger, clipboard,
// cache and metrics. It has no UI dependency; the desktop shell and tests
// drive it through the same API.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"go.aimuz.me/cliptrans/cache"
	"go.aimuz.me/cliptrans/clipboard"
	"go.aimuz.me/cliptrans/config"
	"go.aimuz.me/cliptrans/hotkey"
	"go.aimuz.me/cliptrans/internal/dispatch"
	"go.aimuz.me/cliptrans/internal/metrics"
	"go.aimuz.me/cliptrans/internal/session"
	"go.aimuz.me/cliptrans/internal/types"
	"go.aimuz.me/cliptrans/langdetect"
	"go.aimuz.me/cliptrans/segment"
	"go.aimuz.me/cliptrans/translate"
)

// DefaultClipboardSettle is how long the hotkey path waits for the OS copy
// to land on the clipboard before reading it.
const DefaultClipboardSettle = 200 * time.Millisecond

// ErrNothingToCopy is returned by CopyResult before any translation finished.
var ErrNothingToCopy = errors.New("no translation to copy")

// Trigger delivers raw hotkey pulses. globalhook.Listener implements it.
type Trigger interface {
	Start(signal func()) error
	Stop()
}

// Options configures a Core.
type Options struct {
	Config    *config.Config
	UI        session.UI
	Clipboard clipboard.Board
	Trigger   Trigger          // nil disables the hotkey
	Engine    translate.Engine // nil builds one from Config
	Log       *slog.Logger

	// ClipboardSettle delays the clipboard read after the hotkey fires.
	// 0 means DefaultClipboardSettle.
	ClipboardSettle time.Duration

	// OnActivate runs when the hotkey fires, before the clipboard is read.
	// It is called on the trigger's goroutine and must not block.
	OnActivate func()
}

// Core owns the session and everything feeding it.
type Core struct {
	cfg        *config.Config
	log        *slog.Logger
	ui         session.UI
	board      clipboard.Board
	trigger    Trigger
	onActivate func()
	settle     time.Duration

	d         *dispatch.Dispatcher
	session   *session.Session
	debouncer *hotkey.Debouncer
	detector  langdetect.Detector
	cache     *cache.Cache
	registry  *prometheus.Registry

	wg        sync.WaitGroup // Clipboard reads started by the hotkey
	closeOnce sync.Once
}

// New builds a Core. Nothing runs until Run is called.
func New(opts Options) (*Core, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.UI == nil {
		return nil, errors.New("core: UI is required")
	}
	if opts.ClipboardSettle <= 0 {
		opts.ClipboardSettle = DefaultClipboardSettle
	}
	board := opts.Clipboard
	if board == nil {
		board = &clipboard.System{}
	}

	detector, err := langdetect.New(cfg.Detector, cfg.Languages)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	engine := opts.Engine
	if engine == nil {
		if engine, err = NewEngine(cfg, log); err != nil {
			return nil, err
		}
	}

	c := &Core{
		cfg:        cfg,
		log:        log,
		ui:         opts.UI,
		board:      board,
		trigger:    opts.Trigger,
		onActivate: opts.OnActivate,
		settle:     opts.ClipboardSettle,
		detector:   detector,
		registry:   prometheus.NewRegistry(),
	}

	// Caching is best effort.
	if c.cache, err = OpenCache(cfg); err != nil {
		log.Error("open cache", "error", err)
	}
	engine = WithCache(engine, c.cache, cfg)

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var seg segment.Segmenter
	if cfg.Segmentation {
		seg = segment.Phrases
	}

	c.d = dispatch.New(log)
	c.session = session.New(session.Config{
		Engine:    engine,
		Detector:  detector,
		Segmenter: seg,
		UI:        opts.UI,
		Poster:    c.d,
		Metrics:   metrics.New(c.registry),
		Log:       log,
	})
	c.debouncer = hotkey.NewDebouncer(cfg.Hotkey.Window.Std(), cfg.Hotkey.Presses, c.activated)
	return c, nil
}

// Run processes events until ctx is done. It also serves metrics when
// configured and listens for the hotkey when a trigger is set.
func (c *Core) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.d.Run(gctx)
	})

	if addr := c.cfg.MetricsAddr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, addr, metrics.Handler(c.registry, c.Status))
		})
	}

	if c.trigger != nil && c.cfg.Hotkey.Enabled {
		g.Go(func() error {
			if err := c.trigger.Start(func() { c.Signal() }); err != nil {
				// The app stays usable through the UI.
				c.log.Error("start hotkey", "error", err)
				return nil
			}
			<-gctx.Done()
			c.trigger.Stop()
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops background work and releases the cache. Call after Run
// returned.
func (c *Core) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.d.Close()
		// Run what was queued after the loop stopped so that pending Calls
		// return.
		_ = c.d.Run(context.Background())
		c.wg.Wait()
		c.session.Close()
		if c.cache != nil {
			err = c.cache.Close()
		}
	})
	return err
}

// Signal feeds one raw hotkey pulse. Safe for concurrent use.
func (c *Core) Signal() bool {
	return c.debouncer.Signal()
}

// activated runs on the trigger goroutine when the debouncer fires.
func (c *Core) activated() {
	c.log.Debug("hotkey activated")
	if c.onActivate != nil {
		c.onActivate()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// The second copy key-down arrives before the OS has updated the
		// clipboard.
		time.Sleep(c.settle)
		if _, err := c.TranslateClipboard(context.Background()); err != nil {
			c.log.Warn("translate clipboard", "error", err)
		}
	}()
}

// TranslateClipboard translates the clipboard text. It reports whether the
// session accepted the activation.
func (c *Core) TranslateClipboard(ctx context.Context) (bool, error) {
	text, err := c.board.Read()
	if err != nil {
		c.d.Post(func() { c.ui.OnError("could not read the clipboard") })
		return false, err
	}
	return c.Translate(ctx, text)
}

// Translate starts translating text. It reports whether the session
// accepted it; a translation already in flight makes it return false.
func (c *Core) Translate(ctx context.Context, text string) (bool, error) {
	text = norm.NFC.String(text)
	var accepted bool
	err := c.d.Call(ctx, func() { accepted = c.session.Activate(text) })
	return accepted, err
}

// Cancel abandons the running translation, if any.
func (c *Core) Cancel(ctx context.Context) (bool, error) {
	var cancelled bool
	err := c.d.Call(ctx, func() { cancelled = c.session.Cancel() })
	return cancelled, err
}

// Status returns the session status.
func (c *Core) Status(ctx context.Context) (types.SessionStatus, error) {
	var st types.SessionStatus
	err := c.d.Call(ctx, func() { st = c.session.Status() })
	return st, err
}

// LastResult returns the latest completed translation without phrase
// markers.
func (c *Core) LastResult(ctx context.Context) (string, error) {
	var text string
	if err := c.d.Call(ctx, func() { text = c.session.LastResult() }); err != nil {
		return "", err
	}
	return strings.ReplaceAll(text, segment.ZeroWidthSpace, ""), nil
}

// CopyResult puts the latest completed translation on the clipboard.
func (c *Core) CopyResult(ctx context.Context) error {
	text, err := c.LastResult(ctx)
	if err != nil {
		return err
	}
	if text == "" {
		return ErrNothingToCopy
	}
	return c.board.Write(text)
}

// Detect reports the translation direction for text.
func (c *Core) Detect(text string) types.DetectResult {
	return c.detector.Detect(text)
}

// Languages returns the configured pair.
func (c *Core) Languages() types.LanguagePair {
	return c.cfg.Languages
}
