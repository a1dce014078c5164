package log

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Setup initializes the global logger. Build output (script stdout/stderr)
// is passed through on the process's own stdout/stderr, so structured logs
// go to stderr to avoid interleaving with a script's own output.
func Setup(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	SetupLevel(level)
}

// SetupLevel initializes the global logger at an explicit level, for
// callers that have a configured level name (e.g. a ".remake.yaml"
// log_level field) rather than a plain debug flag.
func SetupLevel(level slog.Level) {
	once.Do(func() {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// Get returns the configured logger, or a default INFO-level one if Setup
// hasn't been called yet.
func Get() *slog.Logger {
	if logger == nil {
		Setup(false)
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithJob returns a logger with the job_id field set.
func WithJob(id int) *slog.Logger {
	return Get().With(slog.String("job_id", strconv.Itoa(id)))
}

// WithTarget returns a logger with the target field set.
func WithTarget(name string) *slog.Logger {
	return Get().With(slog.String("target", name))
}

// WithRun returns a logger with the run correlation id field set.
func WithRun(id string) *slog.Logger {
	return Get().With(slog.String("run_id", id))
}

// ParseLevel maps a CLI-style level name to an slog.Level, defaulting to
// INFO for anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs at INFO level on the default logger.
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Debug logs at DEBUG level on the default logger.
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Warn logs at WARN level on the default logger.
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs at ERROR level on the default logger.
func Error(msg string, args ...any) { Get().Error(msg, args...) }
