package blazepool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blazepool.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "num_threads: 6\nlog_level: debug\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NumThreads != 6 {
		t.Errorf("NumThreads = %d, want 6", cfg.NumThreads)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NumThreads != 0 || cfg.LogLevel != defaultLogLevel {
		t.Errorf("cfg = %+v, want zero threads and level %q", *cfg, defaultLogLevel)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative threads", "num_threads: -1\n"},
		{"unknown level", "log_level: chatty\n"},
		{"bad yaml", "num_threads: [1, 2\n"},
		{"wrong type", "num_threads: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("LoadConfig accepted an invalid config")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) = %v, want ErrNotExist", err)
	}
}

func TestNew_RejectsNegativeThreads(t *testing.T) {
	if _, err := New(Config{NumThreads: -3}); !errors.Is(err, ErrNegativeThreads) {
		t.Errorf("New = %v, want ErrNegativeThreads", err)
	}
}

func TestNew_CustomLogger(t *testing.T) {
	logger := logrus.New()
	s, err := New(Config{Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.log.Logger != logger {
		t.Error("scheduler did not adopt the supplied logger")
	}
}

func TestClampThreads(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 1},
		{0, 1},
		{1, 1},
		{12, 12},
		{MaxThreads, MaxThreads},
		{MaxThreads + 1, MaxThreads},
	}
	for _, tt := range tests {
		if got := clampThreads(tt.in); got != tt.want {
			t.Errorf("clampThreads(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEnvThreads(t *testing.T) {
	t.Setenv(EnvNumThreads, " 9 ")
	if n, err := envThreads(); err != nil || n != 9 {
		t.Errorf("envThreads() = %d, %v; want 9", n, err)
	}

	t.Setenv(EnvNumThreads, "-2")
	if _, err := envThreads(); !errors.Is(err, ErrNegativeThreads) {
		t.Errorf("envThreads(-2) error = %v, want ErrNegativeThreads", err)
	}

	t.Setenv(EnvNumThreads, "")
	if n, err := envThreads(); err != nil || n != 0 {
		t.Errorf("envThreads(empty) = %d, %v; want 0, nil", n, err)
	}
}
