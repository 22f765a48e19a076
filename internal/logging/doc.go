// Package logging provides logging utilities for portman.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Structured Logging
//
// Logs are written using slog. Setup chooses the handler: JSON when
// requested or when the destination is not a terminal, text otherwise.
//
//	logging.Debug("socket table unreadable", "path", path, "error", err)
//	logging.Warn("ledger not persisted", "port", port, "error", err)
//
// Components accept a *slog.Logger and fall back to Logger when none is
// given.
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserSuccess("Port %d reserved for %s", port, service)
//	logging.UserWarning("Reservation kept but not saved: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
