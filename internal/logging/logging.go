package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

var (
	// Logger is the process-wide structured logger. Setup replaces it.
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Verbose reports whether debug logging is enabled.
	Verbose bool
)

// Setup configures Logger. When w is nil, logs go to stderr. JSON output is
// used when forced or when w is a file that is not a terminal.
func Setup(verbose, forceJSON bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	Verbose = verbose

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if forceJSON || !isTerminal(w) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// Discard silences Logger, used while a full-screen UI owns the terminal.
func Discard() {
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	slog.SetDefault(Logger)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		// Buffers and pipes in tests get the human-readable format.
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

func Debug(msg string, args ...any) { Logger.Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger.Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger.Warn(msg, args...) }
func Error(msg string, args ...any) { Logger.Error(msg, args...) }

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}
