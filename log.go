package blazepool

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

type logrusLogger struct {
	*logrus.Logger
}

func (l *logrusLogger) Debug(format string, args ...interface{}) {
	l.Logger.Debugf(format, args...)
}

func (l *logrusLogger) Warn(format string, args ...interface{}) {
	l.Logger.Warnf(format, args...)
}

func (l *logrusLogger) Error(format string, args ...interface{}) {
	l.Logger.Errorf(format, args...)
}

func (l *logrusLogger) Trace(format string, args ...interface{}) {
	l.Logger.Tracef(format, args...)
}

// NewLog returns the scheduler's default logger: colored text on stderr
// when it is a terminal.
func NewLog(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(colorable.NewColorableStderr())
	logger.SetReportCaller(level >= logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:      isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		TimestampFormat:  "2006-01-02 15:04:05.000",
		FullTimestamp:    true,
		PadLevelText:     true,
		QuoteEmptyFields: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			_, file := filepath.Split(f.File)
			return "", fmt.Sprintf("%s:%d", file, f.Line)
		},
		EnvironmentOverrideColors: true,
	})

	return logger
}

func newLogger(cfg *Config) *logrusLogger {
	if cfg.Logger != nil {
		return &logrusLogger{Logger: cfg.Logger}
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	return &logrusLogger{Logger: NewLog(level)}
}
