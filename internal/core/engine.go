package core

import (
	"fmt"
	"log/slog"
	"strings"

	"go.aimuz.me/cliptrans/cache"
	"go.aimuz.me/cliptrans/config"
	"go.aimuz.me/cliptrans/translate"
)

// NewEngine builds the configured translation backend without caching.
func NewEngine(cfg *config.Config, log *slog.Logger) (translate.Engine, error) {
	t := cfg.Translator
	switch t.Backend {
	case config.BackendProcess:
		return translate.NewProcess(translate.ProcessConfig{
			Command: t.Command,
			Args:    t.Args,
			Timeout: t.Timeout.Std(),
		}, log), nil
	case config.BackendOpenAI:
		return translate.NewOpenAI(translate.OpenAIConfig{
			BaseURL:      t.OpenAI.BaseURL,
			APIKey:       t.OpenAI.APIKey,
			Model:        t.OpenAI.Model,
			SystemPrompt: t.OpenAI.SystemPrompt,
			Timeout:      t.Timeout.Std(),
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown translator backend %q", t.Backend)
	}
}

// OpenCache opens the configured cache. It returns nil when caching is
// disabled.
func OpenCache(cfg *config.Config) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	path, err := cfg.CachePath()
	if err != nil {
		return nil, err
	}
	c, err := cache.New(path)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return c, nil
}

// cacheScope separates cache entries of differently configured backends.
func cacheScope(cfg *config.Config) string {
	t := cfg.Translator
	switch t.Backend {
	case config.BackendOpenAI:
		return strings.Join([]string{t.Backend, t.OpenAI.BaseURL, t.OpenAI.Model, t.OpenAI.SystemPrompt}, "|")
	default:
		return strings.Join(append([]string{t.Backend, t.Command}, t.Args...), "|")
	}
}

// WithCache wraps engine with c, if any.
func WithCache(engine translate.Engine, c *cache.Cache, cfg *config.Config) translate.Engine {
	if c == nil {
		return engine
	}
	return translate.WithCache(engine, c, cfg.Cache.TTL.Std(), cacheScope(cfg))
}
