// Package config handles application configuration.
//
// Settings are read from a JSON file, then overridden by a .env file in the
// working directory and by CLIPTRANS_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"go.aimuz.me/cliptrans/internal/types"
	"go.aimuz.me/cliptrans/translate"
)

const (
	appName        = "cliptrans"
	configFileName = "config.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CLIPTRANS_"

	// MemoryCache as cache.path keeps the cache in memory.
	MemoryCache = ":memory:"
)

// Translator backends.
const (
	BackendProcess = "process"
	BackendOpenAI  = "openai"
)

// Detectors.
const (
	DetectorScript = "script"
	DetectorLingua = "lingua"
)

// Config represents the application configuration.
type Config struct {
	Translator   TranslatorConfig   `json:"translator" envPrefix:"TRANSLATOR_"`
	Hotkey       HotkeyConfig       `json:"hotkey" envPrefix:"HOTKEY_"`
	Languages    types.LanguagePair `json:"languages" envPrefix:"LANGUAGES_"`
	Detector     string             `json:"detector" env:"DETECTOR"`
	Segmentation bool               `json:"segmentation" env:"SEGMENTATION"`
	Cache        CacheConfig        `json:"cache" envPrefix:"CACHE_"`
	MetricsAddr  string             `json:"metrics_addr,omitempty" env:"METRICS_ADDR"` // Empty disables the debug server
	LogLevel     string             `json:"log_level" env:"LOG_LEVEL"`
}

// TranslatorConfig selects and configures the translation backend.
type TranslatorConfig struct {
	Backend string       `json:"backend" env:"BACKEND"`
	Command string       `json:"command" env:"COMMAND"`
	Args    []string     `json:"args" env:"ARGS" envSeparator:" "`
	Timeout Duration     `json:"timeout" env:"TIMEOUT"`
	OpenAI  OpenAIConfig `json:"openai" envPrefix:"OPENAI_"`
}

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	BaseURL      string `json:"base_url,omitempty" env:"BASE_URL"`
	APIKey       string `json:"api_key,omitempty" env:"API_KEY"`
	Model        string `json:"model,omitempty" env:"MODEL"`
	SystemPrompt string `json:"system_prompt,omitempty" env:"SYSTEM_PROMPT"`
}

// HotkeyConfig configures the double-copy trigger.
type HotkeyConfig struct {
	Enabled bool     `json:"enabled" env:"ENABLED"`
	Window  Duration `json:"window" env:"WINDOW"`
	Presses int      `json:"presses" env:"PRESSES"`
}

// CacheConfig configures the translation cache.
type CacheConfig struct {
	Enabled bool     `json:"enabled" env:"ENABLED"`
	Path    string   `json:"path,omitempty" env:"PATH"` // Empty means the default directory
	TTL     Duration `json:"ttl" env:"TTL"`
}

// Duration is a time.Duration written as "10s" in JSON and environment.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Translator: TranslatorConfig{
			Backend: BackendProcess,
			Command: translate.DefaultCommand,
			Args:    slices.Clone(translate.DefaultArgs),
			Timeout: Duration(translate.DefaultTimeout),
		},
		Hotkey: HotkeyConfig{
			Enabled: true,
			Window:  Duration(time.Second),
			Presses: 2,
		},
		Languages:    types.DefaultPair,
		Detector:     DetectorScript,
		Segmentation: true,
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration(30 * 24 * time.Hour),
		},
		LogLevel: "info",
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. A missing file yields defaults.
// Environment overrides are applied and the result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "error", err)
	}
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save persists the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}
	return c.SaveFile(path)
}

// SaveFile persists the configuration to path.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// May hold an API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Translator.Backend {
	case BackendProcess:
		if c.Translator.Command == "" {
			errs = append(errs, errors.New("translator command required"))
		}
	case BackendOpenAI:
		if c.Translator.OpenAI.Model == "" {
			errs = append(errs, errors.New("openai model required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown translator backend %q", c.Translator.Backend))
	}
	if c.Translator.Timeout <= 0 {
		errs = append(errs, errors.New("translator timeout must be positive"))
	}

	if c.Hotkey.Window <= 0 {
		errs = append(errs, errors.New("hotkey window must be positive"))
	}
	if c.Hotkey.Presses < 1 {
		errs = append(errs, errors.New("hotkey presses must be at least 1"))
	}

	pair := c.Languages
	for _, l := range []types.Language{pair.Primary, pair.Secondary} {
		if !l.Valid() {
			errs = append(errs, fmt.Errorf("unsupported language %q", l))
		}
	}
	if pair.Primary == pair.Secondary {
		errs = append(errs, errors.New("languages must differ"))
	}

	switch c.Detector {
	case DetectorScript:
		if !pair.Contains(types.Japanese) {
			errs = append(errs, errors.New("script detector requires Japanese in the language pair"))
		}
	case DetectorLingua:
	default:
		errs = append(errs, fmt.Errorf("unknown detector %q", c.Detector))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

// CachePath resolves where the cache lives: "" for memory, otherwise a
// directory. An empty Path means Dir()/cache.
func (c *Config) CachePath() (string, error) {
	switch c.Cache.Path {
	case MemoryCache:
		return "", nil
	case "":
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "cache"), nil
	default:
		return c.Cache.Path, nil
	}
}

// Dir returns the application config directory.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
