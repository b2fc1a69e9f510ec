package translate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultSystemPrompt instructs the model to answer with the translation only.
const DefaultSystemPrompt = "You are a professional translator. Reply with the translation only, preserving line breaks."

// OpenAIConfig configures an OpenAI engine.
type OpenAIConfig struct {
	BaseURL      string // Empty means api.openai.com; set for local OpenAI-compatible servers
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration // Inactivity bound; 0 means DefaultTimeout
}

// OpenAI streams translations from an OpenAI-compatible chat completion API.
type OpenAI struct {
	cfg    OpenAIConfig
	log    *slog.Logger
	client openai.Client
}

// NewOpenAI creates an OpenAI engine.
func NewOpenAI(cfg OpenAIConfig, log *slog.Logger) *OpenAI {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		cfg:    cfg,
		log:    log.With("engine", "openai"),
		client: openai.NewClient(opts...),
	}
}

// Init validates the configuration. A local server needs a base URL but no
// key; the hosted API needs a key.
func (o *OpenAI) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.cfg.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInit)
	}
	if o.cfg.APIKey == "" && o.cfg.BaseURL == "" {
		return fmt.Errorf("%w: api key or base url is required", ErrInit)
	}
	o.log.Info("openai engine ready", "model", o.cfg.Model, "base_url", o.cfg.BaseURL)
	return nil
}

// Stream requests a streamed completion for req. Single-pass.
func (o *OpenAI) Stream(ctx context.Context, req Request) iter.Seq[Event] {
	var used atomic.Bool
	return func(yield func(Event) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		o.run(ctx, req, yield)
	}
}

func (o *OpenAI) run(ctx context.Context, req Request, yield func(Event) bool) {
	open := true
	emit := func(ev Event) {
		if open {
			open = yield(ev)
		}
	}
	log := o.log.With("request", req.ID, "trace", req.TraceID)

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := o.client.Chat.Completions.NewStreaming(sctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.cfg.Model),
		Messages: buildMessages(o.cfg.SystemPrompt, req),
	})

	deltas := make(chan string)
	var streamErr error // Written before deltas is closed
	go func() {
		defer close(deltas)
		defer stream.Close()
		for stream.Next() {
			for _, choice := range stream.Current().Choices {
				if choice.Delta.Content != "" {
					deltas <- choice.Delta.Content
				}
			}
		}
		streamErr = stream.Err()
	}()

	idle := time.NewTimer(o.cfg.Timeout)
	defer idle.Stop()

	var (
		acc      strings.Builder
		timedOut bool
	)

loop:
	for {
		select {
		case d, ok := <-deltas:
			if !ok {
				break loop
			}
			if timedOut {
				continue
			}
			acc.WriteString(d)
			emit(Chunk(req.ID, d))
			resetTimer(idle, o.cfg.Timeout)

		case <-idle.C:
			timedOut = true
			log.Warn("completion stream idle, aborting", "timeout", o.cfg.Timeout)
			cancel()
		}
	}

	switch {
	case timedOut:
		emit(Failed(req.ID, fmt.Sprintf("translation timed out after %s", o.cfg.Timeout), ErrTimeout))
	case ctx.Err() != nil:
		emit(Failed(req.ID, "translation cancelled", fmt.Errorf("%w: %w", ErrStream, ctx.Err())))
	case streamErr != nil:
		log.Error("completion stream", "error", streamErr)
		emit(Failed(req.ID, streamReason(streamErr), fmt.Errorf("%w: %w", ErrStream, streamErr)))
	default:
		emit(Completed(req.ID, acc.String()))
	}
}

func buildMessages(systemPrompt string, req Request) []openai.ChatCompletionMessageParamUnion {
	content := fmt.Sprintf(
		"please translate the following text from %s to %s:\n\n%s",
		req.Source, req.Target, req.Text,
	)
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(content),
	}
}

func streamReason(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
