package logging

import (
	"fmt"
	"io"
	"os"
)

// User-facing output functions with status prefixes.
// These write to stdout/stderr directly for CLI output,
// separate from the structured logging.

var (
	userOut io.Writer = os.Stdout
	userErr io.Writer = os.Stderr
)

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...any) {
	fmt.Fprintf(userOut, "ℹ "+format+"\n", args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...any) {
	fmt.Fprintf(userOut, "✓ "+format+"\n", args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...any) {
	fmt.Fprintf(userErr, "⚠ "+format+"\n", args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...any) {
	fmt.Fprintf(userErr, "✗ "+format+"\n", args...)
}
