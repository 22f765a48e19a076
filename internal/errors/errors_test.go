package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pranshuparmar/portman/internal/ledger"
	"github.com/pranshuparmar/portman/internal/proc"
)

func TestPortmanError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *PortmanError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestPortmanError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestFromLedger(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"already reserved", &ledger.ReservationError{Op: "reserve", Port: 9090, Service: "api", Err: ledger.ErrAlreadyReserved}, ExitAlreadyReserved},
		{"not reserved", &ledger.ReservationError{Op: "release", Port: 9090, Err: ledger.ErrNotReserved}, ExitNotReserved},
		{"port in use", &ledger.ReservationError{Op: "reserve", Port: 8080, Err: ledger.ErrPortInUse}, ExitPortInUse},
		{"invalid port", &ledger.ReservationError{Op: "reserve", Err: ledger.ErrInvalidPort}, ExitInvalidInput},
		{"invalid service", &ledger.ReservationError{Op: "reserve", Port: 1, Err: ledger.ErrInvalidService}, ExitInvalidInput},
		{"platform unavailable", &ledger.ReservationError{Op: "reserve", Port: 1, Err: proc.ErrPlatformUnavailable}, ExitPlatformUnavailable},
		{"persistence", &ledger.PersistError{Op: "reserve", Port: 1, Err: errors.New("disk full")}, ExitPersistence},
		{"unknown", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromLedger(tt.err)
			if got := GetExitCode(err); got != tt.wantCode {
				t.Errorf("GetExitCode(FromLedger()) = %d, want %d", got, tt.wantCode)
			}
			if !errors.Is(err, tt.err) {
				t.Error("the ledger error should stay in the chain")
			}
		})
	}

	if FromLedger(nil) != nil {
		t.Error("FromLedger(nil) should be nil")
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name     string
		err      *PortmanError
		wantCode int
	}{
		{"platform", PlatformUnavailable(cause), ExitPlatformUnavailable},
		{"config", ConfigError("bad config", cause), ExitConfigError},
		{"persistence", PersistenceError("not saved", cause), ExitPersistence},
		{"input", InvalidInput("port must be a number"), ExitInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.ExitCode() != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", tt.err.ExitCode(), tt.wantCode)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"PortmanError", New(ExitConfigError, "test"), ExitConfigError},
		{"wrapped PortmanError", fmt.Errorf("context: %w", New(ExitPortInUse, "test")), ExitPortInUse},
		{"standard error", errors.New("standard error"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
