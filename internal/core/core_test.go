package core

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go.aimuz.me/cliptrans/clipboard"
	"go.aimuz.me/cliptrans/config"
	"go.aimuz.me/cliptrans/internal/types"
	"go.aimuz.me/cliptrans/translate"
)

// echoEngine translates by tagging the text with the direction.
type echoEngine struct{}

func (echoEngine) Init(context.Context) error { return nil }

func (echoEngine) Stream(_ context.Context, req translate.Request) iter.Seq[translate.Event] {
	return func(yield func(translate.Event) bool) {
		out := string(req.Target) + ":" + req.Text
		if yield(translate.Chunk(req.ID, out)) {
			yield(translate.Completed(req.ID, out))
		}
	}
}

type fakeTrigger struct {
	mu      sync.Mutex
	signal  func()
	stopped bool
	started chan struct{}
}

func (f *fakeTrigger) Start(signal func()) error {
	f.mu.Lock()
	f.signal = signal
	f.mu.Unlock()
	close(f.started)
	return nil
}

func (f *fakeTrigger) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTrigger) press() {
	f.mu.Lock()
	signal := f.signal
	f.mu.Unlock()
	signal()
}

type recordingUI struct {
	mu        sync.Mutex
	completed []string
	errors    []string
}

func (u *recordingUI) OnStatus(string) {}
func (u *recordingUI) OnChunk(string)  {}

func (u *recordingUI) OnComplete(text string) {
	u.mu.Lock()
	u.completed = append(u.completed, text)
	u.mu.Unlock()
}

func (u *recordingUI) OnError(msg string) {
	u.mu.Lock()
	u.errors = append(u.errors, msg)
	u.mu.Unlock()
}

func (u *recordingUI) snapshot() ([]string, []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.completed...), append([]string(nil), u.errors...)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	cfg.Segmentation = false
	return cfg
}

type fixture struct {
	core    *Core
	ui      *recordingUI
	board   *clipboard.Memory
	trigger *fakeTrigger
}

func start(t *testing.T, cfg *config.Config, onActivate func()) *fixture {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })

	f := &fixture{
		ui:      &recordingUI{},
		board:   &clipboard.Memory{},
		trigger: &fakeTrigger{started: make(chan struct{})},
	}
	c, err := New(Options{
		Config:     cfg,
		UI:         f.ui,
		Clipboard:  f.board,
		Trigger:    f.trigger,
		Engine:     echoEngine{},
		OnActivate: onActivate,
	})
	require.NoError(t, err)
	f.core = c

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errc)
		assert.NoError(t, c.Close())
	})
	return f
}

func (f *fixture) waitCompleted(t *testing.T, n int) []string {
	t.Helper()
	var got []string
	require.Eventually(t, func() bool {
		got, _ = f.ui.snapshot()
		return len(got) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestDoubleCopyTranslatesClipboard(t *testing.T) {
	activated := make(chan struct{}, 1)
	f := start(t, testConfig(), func() { activated <- struct{}{} })
	<-f.trigger.started

	require.NoError(t, f.board.Write("Hello world"))
	f.trigger.press()
	f.trigger.press()

	select {
	case <-activated:
	case <-time.After(time.Second):
		t.Fatal("OnActivate not called")
	}
	got := f.waitCompleted(t, 1)
	assert.Equal(t, []string{"Japanese:Hello world"}, got)
}

func TestDoubleCopyWaitsForClipboard(t *testing.T) {
	f := start(t, testConfig(), nil)
	<-f.trigger.started

	require.NoError(t, f.board.Write("stale text"))
	f.trigger.press()
	f.trigger.press()
	// The OS finishes the copy after the second key-down.
	require.NoError(t, f.board.Write("fresh text"))

	got := f.waitCompleted(t, 1)
	assert.Equal(t, []string{"Japanese:fresh text"}, got)
}

func TestTranslateAndCopyResult(t *testing.T) {
	cfg := testConfig()
	cfg.Segmentation = true
	f := start(t, cfg, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.core.CopyResult(ctx), ErrNothingToCopy)

	ok, err := f.core.Translate(ctx, "今日はいい天気ですね。")
	require.NoError(t, err)
	require.True(t, ok)
	f.waitCompleted(t, 1)

	require.NoError(t, f.core.CopyResult(ctx))
	text, err := f.board.Read()
	require.NoError(t, err)
	// Phrase markers never reach the clipboard.
	assert.Equal(t, "English:今日はいい天気ですね。", text)

	st, err := f.core.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "completed", st.State)
	assert.True(t, st.Ready)
}

func TestTranslateNormalizesText(t *testing.T) {
	f := start(t, testConfig(), nil)

	// か followed by a combining voiced sound mark composes to が.
	ok, err := f.core.Translate(context.Background(), "\u304b\u3099")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"English:\u304c"}, f.waitCompleted(t, 1))
}

func TestEmptyClipboard(t *testing.T) {
	f := start(t, testConfig(), nil)

	ok, err := f.core.TranslateClipboard(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.Eventually(t, func() bool {
		_, errs := f.ui.snapshot()
		return len(errs) == 1 && errs[0] == "no text to translate"
	}, time.Second, 5*time.Millisecond)
}

type brokenBoard struct{ clipboard.Memory }

func (brokenBoard) Read() (string, error) { return "", errors.New("no xclip") }

func TestClipboardReadFailure(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	ui := &recordingUI{}
	c, err := New(Options{Config: testConfig(), UI: ui, Clipboard: &brokenBoard{}, Engine: echoEngine{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	_, err = c.TranslateClipboard(ctx)
	assert.Error(t, err)
	require.Eventually(t, func() bool {
		_, errs := ui.snapshot()
		return len(errs) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
	require.NoError(t, c.Close())
}

func TestCancelWhenIdle(t *testing.T) {
	f := start(t, testConfig(), nil)
	ok, err := f.core.Cancel(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	f := start(t, testConfig(), nil)
	assert.Equal(t, types.DetectResult{Source: types.Japanese, Target: types.English}, f.core.Detect("こんにちは"))
	assert.Equal(t, types.DetectResult{Source: types.English, Target: types.Japanese}, f.core.Detect("hello"))
	assert.Equal(t, types.DefaultPair, f.core.Languages())
}

func TestNewRejectsBadDetector(t *testing.T) {
	cfg := testConfig()
	cfg.Detector = "tea-leaves"
	_, err := New(Options{Config: cfg, UI: &recordingUI{}, Engine: echoEngine{}})
	assert.Error(t, err)
}

func TestNewEngine(t *testing.T) {
	cfg := config.Default()
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &translate.Process{}, e)

	cfg.Translator.Backend = config.BackendOpenAI
	cfg.Translator.OpenAI.Model = "plamo"
	e, err = NewEngine(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &translate.OpenAI{}, e)

	cfg.Translator.Backend = "fax"
	_, err = NewEngine(cfg, nil)
	assert.Error(t, err)
}

func TestCacheScope(t *testing.T) {
	a := config.Default()
	b := config.Default()
	b.Translator.Args = []string{"--from", "{from}", "--to", "{to}", "--precision", "8bit"}
	assert.NotEqual(t, cacheScope(a), cacheScope(b))
}
