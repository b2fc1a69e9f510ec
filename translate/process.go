package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const (
	// DefaultCommand is the PLaMo translation CLI.
	DefaultCommand = "plamo-translate"

	// DefaultTimeout bounds how long the translator may stay silent.
	DefaultTimeout = 10 * time.Second

	defaultReadSize = 4096
	waitDelay       = 2 * time.Second
)

// DefaultArgs is the argument template for plamo-translate.
// {from} and {to} are replaced with the request languages.
var DefaultArgs = []string{"--from", "{from}", "--to", "{to}"}

// ProcessConfig configures a Process engine.
type ProcessConfig struct {
	Command  string
	Args     []string      // Template; {from} and {to} are expanded per request
	Env      []string      // Extra KEY=VALUE entries appended to the environment
	Timeout  time.Duration // Inactivity bound; 0 means DefaultTimeout
	ReadSize int           // Largest single read from stdout; 0 means 4096
}

// Process streams translations from an external executable.
// The source text goes to stdin, the translation is read from stdout as it
// is produced, and stderr becomes the failure reason on a non-zero exit.
type Process struct {
	cfg ProcessConfig
	log *slog.Logger

	mu   sync.RWMutex
	path string // Resolved by Init
}

// NewProcess creates a Process engine. Zero config fields get defaults.
func NewProcess(cfg ProcessConfig, log *slog.Logger) *Process {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Args == nil {
		cfg.Args = DefaultArgs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = defaultReadSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Process{cfg: cfg, log: log.With("engine", "process")}
}

// Init resolves the translator executable.
func (p *Process) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := exec.LookPath(p.cfg.Command)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	p.mu.Lock()
	p.path = path
	p.mu.Unlock()

	p.log.Info("translator resolved", "path", path)
	return nil
}

// Stream spawns the translator once for req. The returned sequence can be
// iterated a single time; later iterations yield nothing.
func (p *Process) Stream(ctx context.Context, req Request) iter.Seq[Event] {
	var used atomic.Bool
	return func(yield func(Event) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		p.run(ctx, req, yield)
	}
}

func (p *Process) command() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.path != "" {
		return p.path
	}
	return p.cfg.Command
}

func (p *Process) args(req Request) []string {
	r := strings.NewReplacer("{from}", string(req.Source), "{to}", string(req.Target))
	args := make([]string, len(p.cfg.Args))
	for i, a := range p.cfg.Args {
		args[i] = r.Replace(a)
	}
	return args
}

func (p *Process) run(ctx context.Context, req Request, yield func(Event) bool) {
	// Once the consumer stops, keep draining but stop yielding.
	open := true
	emit := func(ev Event) {
		if open {
			open = yield(ev)
		}
	}
	log := p.log.With("request", req.ID, "trace", req.TraceID)

	cmd := exec.CommandContext(ctx, p.command(), p.args(req)...)
	cmd.Stdin = strings.NewReader(req.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if len(p.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), p.cfg.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		emit(Failed(req.ID, err.Error(), fmt.Errorf("%w: %w", ErrSpawn, err)))
		return
	}
	if err := cmd.Start(); err != nil {
		log.Error("start translator", "error", err)
		emit(Failed(req.ID, fmt.Sprintf("failed to start translator: %v", err), fmt.Errorf("%w: %w", ErrSpawn, err)))
		return
	}
	log.Debug("translator started", "pid", cmd.Process.Pid, "source", req.Source, "target", req.Target)
	start := time.Now()

	chunks := make(chan []byte)
	var readErr error // Written before chunks is closed
	go func() {
		defer close(chunks)
		buf := make([]byte, p.cfg.ReadSize)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				chunks <- bytes.Clone(buf[:n])
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
					readErr = err
				}
				return
			}
		}
	}()

	idle := time.NewTimer(p.cfg.Timeout)
	defer idle.Stop()

	kill := func() {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warn("kill translator", "error", err)
		}
	}

	var (
		acc      strings.Builder
		pending  []byte
		timedOut bool
		drain    <-chan time.Time
	)

loop:
	for {
		select {
		case b, ok := <-chunks:
			if !ok {
				break loop
			}
			if timedOut {
				continue
			}
			var text string
			text, pending = completeRunes(append(pending, b...))
			if text != "" {
				acc.WriteString(text)
				emit(Chunk(req.ID, text))
			}
			// Re-armed after the consumer took the chunk: only producer
			// silence counts towards the timeout.
			resetTimer(idle, p.cfg.Timeout)

		case <-idle.C:
			timedOut = true
			log.Warn("translator idle, killing", "timeout", p.cfg.Timeout)
			kill()
			drain = time.After(waitDelay)

		case <-drain:
			// A child still holds stdout open; unblock the reader.
			drain = nil
			_ = stdout.Close()
		}
	}

	if !timedOut && len(pending) > 0 {
		text := strings.ToValidUTF8(string(pending), string(utf8.RuneError))
		acc.WriteString(text)
		emit(Chunk(req.ID, text))
	}

	// A translator may close stdout and keep running; the timer still bounds
	// the wait.
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var waitErr error
wait:
	for {
		select {
		case waitErr = <-exited:
			break wait
		case <-idle.C:
			timedOut = true
			log.Warn("translator idle after closing output, killing", "timeout", p.cfg.Timeout)
			kill()
		}
	}
	log.Debug("translator exited", "elapsed", time.Since(start), "error", waitErr)

	var exitErr *exec.ExitError
	switch {
	case timedOut:
		emit(Failed(req.ID, fmt.Sprintf("translation timed out after %s", p.cfg.Timeout), ErrTimeout))
	case waitErr != nil && ctx.Err() != nil:
		emit(Failed(req.ID, "translation cancelled", fmt.Errorf("%w: %w", ErrStream, ctx.Err())))
	case errors.As(waitErr, &exitErr):
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "unknown error"
		}
		emit(Failed(req.ID, reason, fmt.Errorf("%w: exit status %d", ErrNonZeroExit, exitErr.ExitCode())))
	case waitErr != nil:
		emit(Failed(req.ID, waitErr.Error(), fmt.Errorf("%w: %w", ErrStream, waitErr)))
	case readErr != nil:
		emit(Failed(req.ID, readErr.Error(), fmt.Errorf("%w: %w", ErrStream, readErr)))
	default:
		emit(Completed(req.ID, acc.String()))
	}
}

// completeRunes splits b into the longest prefix ending on a rune boundary
// and the incomplete trailing sequence, if any. Invalid bytes in the prefix
// become U+FFFD.
func completeRunes(b []byte) (string, []byte) {
	end := len(b)
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				end = i
			}
			break
		}
	}
	text := strings.ToValidUTF8(string(b[:end]), string(utf8.RuneError))
	if end == len(b) {
		return text, nil
	}
	return text, bytes.Clone(b[end:])
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
