package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyReserved = errors.New("port already reserved")
	ErrNotReserved     = errors.New("port not reserved")
	ErrPortInUse       = errors.New("port in use")
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidService  = errors.New("invalid service name")

	// ErrPersistence marks a mutation that was applied in memory but could
	// not be written to the store.
	ErrPersistence = errors.New("ledger persistence failed")
)

// ReservationError carries the port a ledger operation refused.
type ReservationError struct {
	Op      string
	Port    uint16
	Service string // holder for ErrAlreadyReserved, requester otherwise
	Err     error
}

func (e *ReservationError) Error() string {
	if errors.Is(e.Err, ErrAlreadyReserved) && e.Service != "" {
		return fmt.Sprintf("%s port %d: %v by %q", e.Op, e.Port, e.Err, e.Service)
	}
	return fmt.Sprintf("%s port %d: %v", e.Op, e.Port, e.Err)
}

func (e *ReservationError) Unwrap() error { return e.Err }

// PersistError is returned when the in-memory ledger changed but the store
// rejected the write. The mutation is not rolled back.
type PersistError struct {
	Op   string
	Port uint16
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s port %d applied, but %v: %v", e.Op, e.Port, ErrPersistence, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Is(target error) bool { return target == ErrPersistence }
