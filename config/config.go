package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	anyerrors "github.com/wippyai/anyfile/errors"
)

// Info output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Defaults.
const (
	DefaultLogLevel         = "warn"
	DefaultMemoryLimitPages = 100
	DefaultServerAddress    = "127.0.0.1:8080"
	DefaultMaxBodyBytes     = 64 << 20
	DefaultInfoFormat       = FormatText
	DefaultStageTimeout     = 5 * time.Second
)

// Config is the resolved tool configuration.
type Config struct {
	LogLevel         string
	ServerAddress    string
	InfoFormat       string
	MaxBodyBytes     int64
	StageTimeout     time.Duration
	MemoryLimitPages uint32
	Strict           bool
}

type fileConfig struct {
	LogLevel         string `toml:"log_level"`
	Strict           bool   `toml:"strict"`
	MemoryLimitPages int64  `toml:"memory_limit_pages"`
	ServerAddress    string `toml:"server_address"`
	MaxBodyBytes     int64  `toml:"max_body_bytes"`
	InfoFormat       string `toml:"info_format"`
	StageTimeout     string `toml:"stage_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:         DefaultLogLevel,
		ServerAddress:    DefaultServerAddress,
		InfoFormat:       DefaultInfoFormat,
		MaxBodyBytes:     DefaultMaxBodyBytes,
		MemoryLimitPages: DefaultMemoryLimitPages,
		StageTimeout:     DefaultStageTimeout,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/anyfile/config.toml, falling back to
// the OS user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "anyfile", "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults;
// any other read or decode failure is returned. Keys absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, anyerrors.InvalidInput(anyerrors.PhaseConfig,
			fmt.Sprintf("unknown key %q in %s", undecoded[0].String(), path))
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("strict") {
		cfg.Strict = raw.Strict
	}
	if meta.IsDefined("memory_limit_pages") {
		if raw.MemoryLimitPages <= 0 || raw.MemoryLimitPages > 65536 {
			return Config{}, anyerrors.OutOfBounds(anyerrors.PhaseConfig,
				fmt.Sprintf("memory_limit_pages must be in 1..65536, got %d", raw.MemoryLimitPages),
				raw.MemoryLimitPages)
		}
		cfg.MemoryLimitPages = uint32(raw.MemoryLimitPages)
	}
	if meta.IsDefined("server_address") {
		cfg.ServerAddress = strings.TrimSpace(raw.ServerAddress)
	}
	if meta.IsDefined("max_body_bytes") {
		cfg.MaxBodyBytes = raw.MaxBodyBytes
	}
	if meta.IsDefined("info_format") {
		cfg.InfoFormat = strings.ToLower(strings.TrimSpace(raw.InfoFormat))
	}
	if meta.IsDefined("stage_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StageTimeout))
		if err != nil {
			return Config{}, anyerrors.Wrap(anyerrors.PhaseConfig, anyerrors.KindInvalidInput, err,
				fmt.Sprintf("stage_timeout %q in %s", raw.StageTimeout, path))
		}
		cfg.StageTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.InfoFormat {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return anyerrors.InvalidInput(anyerrors.PhaseConfig,
			fmt.Sprintf("info_format must be text, json or yaml, got %q", c.InfoFormat))
	}
	if c.MaxBodyBytes <= 0 {
		return anyerrors.OutOfBounds(anyerrors.PhaseConfig, "max_body_bytes must be positive", c.MaxBodyBytes)
	}
	if c.StageTimeout <= 0 {
		return anyerrors.OutOfBounds(anyerrors.PhaseConfig, "stage_timeout must be positive", c.StageTimeout)
	}
	if c.ServerAddress == "" {
		return anyerrors.InvalidInput(anyerrors.PhaseConfig, "server_address is empty")
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, anyerrors.Wrap(anyerrors.PhaseConfig, anyerrors.KindInvalidInput, err,
			fmt.Sprintf("log_level %q", c.LogLevel))
	}
	return lvl, nil
}
