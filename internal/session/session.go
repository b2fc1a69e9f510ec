// Package session owns the translation state machine: at most one
// translation in flight, events applied in order on one goroutine, and
// late events from superseded requests dropped.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/cliptrans/internal/metrics"
	"go.aimuz.me/cliptrans/internal/types"
	"go.aimuz.me/cliptrans/langdetect"
	"go.aimuz.me/cliptrans/segment"
	"go.aimuz.me/cliptrans/translate"
)

// State is the session lifecycle state.
type State int

const (
	Idle State = iota
	Initializing
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// UI receives user-visible updates. Calls happen on the consumer goroutine
// of the Poster, one at a time.
type UI interface {
	OnStatus(msg string)
	OnChunk(text string)
	OnComplete(text string)
	OnError(msg string)
}

// Poster delivers tasks to the consumer goroutine in order.
// *dispatch.Dispatcher implements it.
type Poster interface {
	Post(fn func()) bool
}

// Config holds the session collaborators.
type Config struct {
	Engine    translate.Engine
	Detector  langdetect.Detector
	Segmenter segment.Segmenter // nil disables phrase segmentation
	UI        UI
	Poster    Poster
	Metrics   *metrics.Metrics // May be nil
	Log       *slog.Logger
}

// Session is the translation state machine.
//
// Activate, Cancel, Status and LastResult must be called on the Poster's
// consumer goroutine; background work reports back only through Post.
// Close may be called from any goroutine.
type Session struct {
	engine    translate.Engine
	detector  langdetect.Detector
	segmenter segment.Segmenter
	ui        UI
	poster    Poster
	metrics   *metrics.Metrics
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	// Owned by the consumer goroutine.
	state      State
	ready      bool
	nextID     uint64
	active     translate.Request // Zero when nothing is running
	started    time.Time
	acc        strings.Builder
	pending    string // Text waiting for engine init
	lastResult string
}

// New creates an idle Session.
func New(cfg Config) *Session {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		engine:    cfg.Engine,
		detector:  cfg.Detector,
		segmenter: cfg.Segmenter,
		ui:        cfg.UI,
		poster:    cfg.Poster,
		metrics:   cfg.Metrics,
		log:       log.With("component", "session"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Activate starts translating text. It reports false when the activation is
// dropped: a translation or engine init is in flight, or text is blank.
// The first activation initializes the engine before translating.
func (s *Session) Activate(text string) bool {
	if s.state == Running || s.state == Initializing {
		s.log.Debug("activation rejected", "state", s.state)
		s.metrics.Activation(metrics.ActivationRejected)
		return false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.metrics.Activation(metrics.ActivationEmpty)
		s.ui.OnError("no text to translate")
		return false
	}
	s.metrics.Activation(metrics.ActivationAccepted)

	if !s.ready {
		s.initialize(text)
		return true
	}
	s.start(text)
	return true
}

// Cancel abandons the running translation. The underlying stream keeps
// draining in the background and its remaining events are dropped.
func (s *Session) Cancel() bool {
	if s.state != Running {
		return false
	}
	s.log.Info("translation cancelled", "request", s.active.ID)
	s.finish(Idle, metrics.OutcomeCancelled)
	s.ui.OnStatus("translation cancelled")
	return true
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Status returns a snapshot for display.
func (s *Session) Status() types.SessionStatus {
	return types.SessionStatus{
		State:      s.state.String(),
		RequestID:  s.active.ID,
		SourceLang: s.active.Source,
		TargetLang: s.active.Target,
		Partial:    s.acc.Len(),
		Ready:      s.ready,
	}
}

// LastResult returns the most recent completed translation.
func (s *Session) LastResult() string { return s.lastResult }

// Close cancels background work and waits for it. Running processes are
// killed. Events still posted afterwards are stale.
func (s *Session) Close() {
	s.cancel()
	s.bg.Wait()
}

func (s *Session) initialize(text string) {
	s.state = Initializing
	s.pending = text
	s.ui.OnStatus("initializing translation engine")
	s.log.Info("initializing engine")

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		err := s.engine.Init(s.ctx)
		s.poster.Post(func() { s.initDone(err) })
	}()
}

func (s *Session) initDone(err error) {
	if s.state != Initializing {
		return
	}
	text := s.pending
	s.pending = ""

	if err != nil {
		// Stays uninitialized; the next activation retries.
		s.state = Idle
		s.log.Error("init engine", "error", err)
		s.ui.OnError(fmt.Sprintf("translation engine unavailable: %v", err))
		return
	}

	s.ready = true
	s.ui.OnStatus("translation engine ready")
	s.start(text)
}

func (s *Session) start(text string) {
	det := s.detector.Detect(text)
	s.nextID++
	req := translate.Request{
		ID:      s.nextID,
		Text:    text,
		Source:  det.Source,
		Target:  det.Target,
		TraceID: uuid.NewString(),
	}

	s.state = Running
	s.active = req
	s.acc.Reset()
	s.started = time.Now()

	s.log.Info("translation started", "request", req.ID, "trace", req.TraceID, "source", req.Source, "target", req.Target)
	s.ui.OnStatus(fmt.Sprintf("translating %s → %s", req.Source, req.Target))

	s.bg.Add(1)
	go s.pump(req)
}

// pump forwards engine events to the consumer goroutine.
func (s *Session) pump(req translate.Request) {
	defer s.bg.Done()
	for ev := range s.engine.Stream(s.ctx, req) {
		if !s.poster.Post(func() { s.apply(ev) }) {
			return
		}
	}
}

func (s *Session) apply(ev translate.Event) {
	if s.state != Running || ev.RequestID != s.active.ID {
		s.metrics.Stale()
		s.log.Debug("stale event dropped", "request", ev.RequestID, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case translate.KindChunk:
		s.acc.WriteString(ev.Text)
		s.metrics.Chunk()
		s.ui.OnChunk(ev.Text)

	case translate.KindCompleted:
		result := segment.Apply(ev.Text, s.segmenter)
		s.finish(Completed, metrics.OutcomeCompleted)
		s.lastResult = result
		s.ui.OnComplete(result)
		s.ui.OnStatus("translation completed")

	case translate.KindFailed:
		s.log.Warn("translation failed", "reason", ev.Text, "error", ev.Err)
		s.finish(Failed, metrics.OutcomeFailed)
		s.ui.OnError(ev.Text)
	}
}

// finish leaves Running. Partial text is discarded.
func (s *Session) finish(state State, outcome string) {
	s.metrics.Translation(outcome, time.Since(s.started))
	s.log.Debug("translation finished", "request", s.active.ID, "outcome", outcome)
	s.state = state
	s.active = translate.Request{}
	s.acc.Reset()
}
