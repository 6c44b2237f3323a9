package blazepool

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/GoBlaze/blazepool/constants"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
	"gopkg.in/yaml.v3"
)

// EnvNumThreads overrides the detected CPU count when Config.NumThreads is 0.
const EnvNumThreads = "BLAZEPOOL_NUM_THREADS"

const defaultLogLevel = "warn"

// Config holds the settings of a Scheduler.
type Config struct {
	// NumThreads is the number of goroutines, the submitter included, that
	// should be working at once. 0 means the BLAZEPOOL_NUM_THREADS
	// environment variable, or the CPU count if it is unset.
	NumThreads int `yaml:"num_threads"`
	// LogLevel is a logrus level name. Defaults to "warn".
	LogLevel string `yaml:"log_level"`

	// Logger replaces the default logger; LogLevel is then ignored.
	Logger *logrus.Logger `yaml:"-"`
}

// DefaultConfig returns the configuration used by New(Config{}).
func DefaultConfig() Config {
	return Config{LogLevel: defaultLogLevel}
}

// LoadConfig reads a YAML config file from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks that all config values are valid.
func (c *Config) validate() error {
	if c.NumThreads < 0 {
		return fmt.Errorf("invalid num_threads %d: %w", c.NumThreads, ErrNegativeThreads)
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

func clampThreads(n int) int {
	return clamp(n, 1, constants.MaxThreads)
}

// envThreads parses EnvNumThreads. It returns 0 when the variable is unset.
func envThreads() (int, error) {
	v, ok := os.LookupEnv(EnvNumThreads)
	if !ok || strings.TrimSpace(v) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", EnvNumThreads, v, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s=%q: %w", EnvNumThreads, v, ErrNegativeThreads)
	}
	return n, nil
}

// defaultThreads resolves an unset thread count from the environment and the
// CPU count. A malformed override is reported and ignored.
func defaultThreads() (int, error) {
	n, err := envThreads()
	if err != nil || n == 0 {
		return clampThreads(numCPU()), err
	}
	return clampThreads(n), nil
}
