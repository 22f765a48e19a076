package errors

import (
	"errors"
	"fmt"

	"github.com/pranshuparmar/portman/internal/ledger"
	"github.com/pranshuparmar/portman/internal/proc"
)

// Exit codes for portman
const (
	ExitSuccess             = 0
	ExitGeneralError        = 1
	ExitAlreadyReserved     = 2
	ExitNotReserved         = 3
	ExitPortInUse           = 4
	ExitPlatformUnavailable = 5
	ExitConfigError         = 6
	ExitPersistence         = 7
	ExitInvalidInput        = 8
)

// PortmanError is the base error type for portman commands
type PortmanError struct {
	Code    int
	Message string
	Cause   error
}

func (e *PortmanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PortmanError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *PortmanError) ExitCode() int {
	return e.Code
}

func New(code int, message string) *PortmanError {
	return &PortmanError{
		Code:    code,
		Message: message,
	}
}

func Wrap(code int, message string, cause error) *PortmanError {
	return &PortmanError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// PlatformUnavailable returns an error when the socket table cannot be read
func PlatformUnavailable(cause error) *PortmanError {
	return Wrap(ExitPlatformUnavailable, "cannot read the socket table", cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *PortmanError {
	return Wrap(ExitConfigError, message, cause)
}

// PersistenceError returns an error for ledger storage failures
func PersistenceError(message string, cause error) *PortmanError {
	return Wrap(ExitPersistence, message, cause)
}

// InvalidInput returns an error for bad arguments
func InvalidInput(message string) *PortmanError {
	return New(ExitInvalidInput, message)
}

// FromLedger converts an error returned by the ledger into a PortmanError.
// The ledger error stays in the chain. Errors it does not recognise are
// returned unchanged.
func FromLedger(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ledger.ErrAlreadyReserved):
		return Wrap(ExitAlreadyReserved, "reservation refused", err)
	case errors.Is(err, ledger.ErrNotReserved):
		return Wrap(ExitNotReserved, "release refused", err)
	case errors.Is(err, ledger.ErrPortInUse):
		return Wrap(ExitPortInUse, "reservation refused", err)
	case errors.Is(err, ledger.ErrInvalidPort), errors.Is(err, ledger.ErrInvalidService):
		return Wrap(ExitInvalidInput, "invalid reservation", err)
	case errors.Is(err, proc.ErrPlatformUnavailable):
		return PlatformUnavailable(err)
	case errors.Is(err, ledger.ErrPersistence):
		return PersistenceError("ledger not saved", err)
	}
	return err
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var portmanErr *PortmanError
	if errors.As(err, &portmanErr) {
		return portmanErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
