// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Ollama  OllamaConfig  `toml:"ollama"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
	Bridge  BridgeConfig  `toml:"bridge"`
	Monitor MonitorConfig `toml:"monitor"`
	UI      UIConfig      `toml:"ui"`
}

// OllamaConfig configures how the inference server is reached.
type OllamaConfig struct {
	// Candidates are tried in order; the first one answering wins.
	Candidates      []string `toml:"candidates"`
	HealthTimeout   Duration `toml:"health_timeout"`
	DispatchTimeout Duration `toml:"dispatch_timeout"`

	// DefaultModel is used until a model has been selected and stored.
	DefaultModel string  `toml:"default_model"`
	Temperature  float64 `toml:"temperature"`
	TopP         float64 `toml:"top_p"`
}

// StorageConfig selects the history backend.
type StorageConfig struct {
	Backend string `toml:"backend"` // json | sqlite
	Dir     string `toml:"dir"`     // default ~/.rigchat
}

// LogConfig configures the default slog logger.
type LogConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // text | json
	File   string `toml:"file"`
}

// BridgeConfig configures the local HTTP bridge.
type BridgeConfig struct {
	Listen    string  `toml:"listen"`
	RateLimit float64 `toml:"rate_limit"` // requests per second per client
	Burst     int     `toml:"burst"`
}

// MonitorConfig configures the availability monitor.
type MonitorConfig struct {
	Interval Duration `toml:"interval"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	Thinking       bool `toml:"thinking"`
	RenderMarkdown bool `toml:"render_markdown"`
}

// Duration wraps time.Duration so it reads and writes as a string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			Candidates: []string{
				"http://127.0.0.1:11434",
				"http://localhost:11434",
				"http://[::1]:11434",
			},
			HealthTimeout:   Duration{5 * time.Second},
			DispatchTimeout: Duration{10 * time.Second},
			DefaultModel:    "deepseek",
			Temperature:     0.7,
			TopP:            0.95,
		},
		Storage: StorageConfig{
			Backend: "json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Bridge: BridgeConfig{
			Listen:    "127.0.0.1:8790",
			RateLimit: 10,
			Burst:     20,
		},
		Monitor: MonitorConfig{
			Interval: Duration{10 * time.Second},
		},
		UI: UIConfig{
			RenderMarkdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory holding history, defaulting to ConfigDir.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	return ConfigDir()
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config at path (the default path when empty). A missing
// file yields the defaults. Environment overrides are applied last and the
// result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", ValidateErrors(errs))
	}
	return cfg, nil
}

func decodeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if len(c.Ollama.Candidates) == 0 {
		c.Ollama.Candidates = defaults.Ollama.Candidates
	}
	if c.Ollama.HealthTimeout.Duration == 0 {
		c.Ollama.HealthTimeout = defaults.Ollama.HealthTimeout
	}
	if c.Ollama.DispatchTimeout.Duration == 0 {
		c.Ollama.DispatchTimeout = defaults.Ollama.DispatchTimeout
	}
	if c.Ollama.DefaultModel == "" {
		c.Ollama.DefaultModel = defaults.Ollama.DefaultModel
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Bridge.Listen == "" {
		c.Bridge.Listen = defaults.Bridge.Listen
	}
	if c.Bridge.RateLimit == 0 {
		c.Bridge.RateLimit = defaults.Bridge.RateLimit
	}
	if c.Bridge.Burst == 0 {
		c.Bridge.Burst = defaults.Bridge.Burst
	}
	if c.Monitor.Interval.Duration == 0 {
		c.Monitor.Interval = defaults.Monitor.Interval
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to path as TOML.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigchat configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - RIGCHAT_OLLAMA_URL: tried before the configured candidates
//   - RIGCHAT_MODEL: overrides ollama.default_model
//   - RIGCHAT_STORAGE: overrides storage.backend
//   - RIGCHAT_LOG_LEVEL: overrides log.level
//   - RIGCHAT_BRIDGE_LISTEN: overrides bridge.listen
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("RIGCHAT_OLLAMA_URL"); u != "" {
		u = strings.TrimRight(u, "/")
		candidates := []string{u}
		for _, existing := range c.Ollama.Candidates {
			if existing != u {
				candidates = append(candidates, existing)
			}
		}
		c.Ollama.Candidates = candidates
	}
	if model := os.Getenv("RIGCHAT_MODEL"); model != "" {
		c.Ollama.DefaultModel = model
	}
	if backend := os.Getenv("RIGCHAT_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}
	if level := os.Getenv("RIGCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if listen := os.Getenv("RIGCHAT_BRIDGE_LISTEN"); listen != "" {
		c.Bridge.Listen = listen
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Ollama.Candidates) == 0 {
		add("ollama.candidates", "at least one candidate address is required")
	}
	for i, candidate := range c.Ollama.Candidates {
		u, err := url.Parse(candidate)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(fmt.Sprintf("ollama.candidates[%d]", i), "invalid URL %q, expected http(s)://host:port", candidate)
		}
	}
	if c.Ollama.HealthTimeout.Duration < 0 {
		add("ollama.health_timeout", "must not be negative")
	}
	if c.Ollama.DispatchTimeout.Duration < 0 {
		add("ollama.dispatch_timeout", "must not be negative")
	}
	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		add("ollama.temperature", "must be between 0 and 2, got %g", c.Ollama.Temperature)
	}
	if c.Ollama.TopP < 0 || c.Ollama.TopP > 1 {
		add("ollama.top_p", "must be between 0 and 1, got %g", c.Ollama.TopP)
	}

	switch c.Storage.Backend {
	case "json", "sqlite":
	default:
		add("storage.backend", "invalid backend '%s', must be one of: json, sqlite", c.Storage.Backend)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format", "invalid format '%s', must be one of: text, json", c.Log.Format)
	}

	if _, _, err := net.SplitHostPort(c.Bridge.Listen); err != nil {
		add("bridge.listen", "invalid address %q: %v", c.Bridge.Listen, err)
	}
	if c.Bridge.RateLimit < 0 {
		add("bridge.rate_limit", "must not be negative")
	}
	if c.Bridge.Burst < 0 {
		add("bridge.burst", "must not be negative")
	}
	if c.Monitor.Interval.Duration < 0 {
		add("monitor.interval", "must not be negative")
	}

	return errs
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Ollama.Candidates = append([]string(nil), c.Ollama.Candidates...)
	return &clone
}
