// Package logger provides the sandbox's structured logging: a single
// slog.Logger writing to stderr (and optionally a log file), with
// --verbose mapped to debug level, matching the original's single
// `verbose` global rather than a graded log-level knob.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Log defaults to a plain stderr logger so that a package calling Warn/Error
// before the CLI's Init runs (e.g. a reexec'd child process that hasn't
// reached its own Init call yet) doesn't panic on a nil logger.
var Log = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Init configures the global logger. verbose mirrors the CLI's
// --verbose flag directly.
func Init(verbose bool, logFile string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	writers := []io.Writer{os.Stderr}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)
	return nil
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
