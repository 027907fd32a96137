package log

import (
	"os"

	"github.com/paularlott/logger"
	logslog "github.com/paularlott/logger/slog"
)

var defaultLogger logger.Logger

func init() {
	defaultLogger = logslog.New(logslog.Config{
		Level:  "warn",
		Format: "console",
		Writer: os.Stderr,
	})
}

// Configure replaces the process logger. Output goes to stderr so command
// output on stdout stays pipeable.
func Configure(level, format string) {
	defaultLogger = logslog.New(logslog.Config{
		Level:  level,
		Format: format,
		Writer: os.Stderr,
	})
}

func Info(msg string, keysAndValues ...any) {
	defaultLogger.Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	defaultLogger.Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	defaultLogger.Error(msg, keysAndValues...)
}

func Debug(msg string, keysAndValues ...any) {
	defaultLogger.Debug(msg, keysAndValues...)
}
