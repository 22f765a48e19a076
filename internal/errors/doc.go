// Package errors provides typed errors with exit codes for portman.
//
// # Error Types
//
// PortmanError wraps an error with an exit code:
//
//	type PortmanError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess             = 0
//	ExitGeneralError        = 1
//	ExitAlreadyReserved     = 2
//	ExitNotReserved         = 3
//	ExitPortInUse           = 4
//	ExitPlatformUnavailable = 5
//	ExitConfigError         = 6
//	ExitPersistence         = 7
//	ExitInvalidInput        = 8
//
// # Ledger Errors
//
// FromLedger maps the ledger's sentinel errors onto these codes so commands
// can return ledger results directly:
//
//	if err := l.Reserve(port, service); err != nil {
//	    return errors.FromLedger(err)
//	}
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
