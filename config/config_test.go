package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.toml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg != Default() {
			t.Fatalf("Load(%q) = %+v, want defaults", path, cfg)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
log_level = " DEBUG "
strict = true
memory_limit_pages = 256
server_address = "0.0.0.0:9000"
max_body_bytes = 1024
info_format = "yaml"
stage_timeout = "750ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		LogLevel:         "debug",
		Strict:           true,
		MemoryLimitPages: 256,
		ServerAddress:    "0.0.0.0:9000",
		MaxBodyBytes:     1024,
		InfoFormat:       FormatYAML,
		StageTimeout:     750 * time.Millisecond,
	}
	if cfg != want {
		t.Fatalf("Load = %+v, want %+v", cfg, want)
	}

	lvl, err := cfg.Level()
	if err != nil || lvl != zapcore.DebugLevel {
		t.Fatalf("Level = %v, %v", lvl, err)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "strict = false\ninfo_format = \"json\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InfoFormat != FormatJSON {
		t.Fatalf("info_format = %q", cfg.InfoFormat)
	}
	if cfg.MemoryLimitPages != DefaultMemoryLimitPages || cfg.ServerAddress != DefaultServerAddress ||
		cfg.StageTimeout != DefaultStageTimeout {
		t.Fatalf("unset keys lost defaults: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "log_level = ", "load config"},
		{"unknown key", "colour = true\n", "unknown key"},
		{"bad level", "log_level = \"loud\"\n", "log_level"},
		{"bad format", "info_format = \"xml\"\n", "info_format"},
		{"zero pages", "memory_limit_pages = 0\n", "memory_limit_pages"},
		{"too many pages", "memory_limit_pages = 70000\n", "memory_limit_pages"},
		{"negative body", "max_body_bytes = -1\n", "max_body_bytes"},
		{"empty address", "server_address = \"  \"\n", "server_address"},
		{"bad timeout", "stage_timeout = \"soon\"\n", "stage_timeout"},
		{"zero timeout", "stage_timeout = \"0s\"\n", "stage_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != filepath.Join("/tmp/xdg", "anyfile", "config.toml") {
		t.Fatalf("DefaultPath = %q", got)
	}
}
