// Package ledger keeps the advisory port reservation map.
//
// A reservation binds a port number to a service name. Reserving a port fails
// if it is already reserved or if any socket on the host is currently bound to
// it. The ledger does not enforce anything at the OS level; it only records
// intent.
//
// All operations are safe for concurrent use. The live-usage check and the
// insert run inside the same critical section, so concurrent Reserve calls for
// one free port produce exactly one success.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/pranshuparmar/portman/internal/logging"
	"github.com/pranshuparmar/portman/internal/proc"
	"github.com/pranshuparmar/portman/internal/store"
	"github.com/pranshuparmar/portman/pkg/model"
)

// PortChecker reports whether a local port is bound by any live socket.
type PortChecker interface {
	PortInUse(port uint16) (bool, error)
}

type Option func(*Ledger)

// WithStore enables write-through persistence to s.
func WithStore(s store.Store) Option {
	return func(l *Ledger) { l.store = s }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

type Ledger struct {
	mu           sync.Mutex
	reservations map[uint16]string
	version      uint64

	checker PortChecker
	store   store.Store
	logger  *slog.Logger

	// saveMu orders writes to the store; savedVersion keeps an older map from
	// overwriting a newer one when saves race.
	saveMu       sync.Mutex
	savedVersion uint64
}

func New(checker PortChecker, opts ...Option) *Ledger {
	l := &Ledger{
		reservations: make(map[uint16]string),
		checker:      checker,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.Logger
	}
	return l
}

// Load replaces the in-memory map with the persisted one. Entries are taken as
// stored, without checking live usage. A ledger that was never saved loads
// empty.
func (l *Ledger) Load() error {
	if l.store == nil {
		return nil
	}

	m, err := l.store.Load()
	if err != nil {
		if store.IsNotExist(err) {
			l.logger.Debug("no persisted ledger, starting empty")
			m = map[uint16]string{}
		} else {
			return fmt.Errorf("loading ledger: %w", err)
		}
	}

	l.mu.Lock()
	l.reservations = maps.Clone(m)
	if l.reservations == nil {
		l.reservations = map[uint16]string{}
	}
	l.version++
	l.mu.Unlock()

	l.logger.Debug("ledger loaded", "reservations", len(m))
	return nil
}

func (l *Ledger) Reserve(port uint16, service string) error {
	if port == 0 {
		return &ReservationError{Op: "reserve", Port: port, Service: service, Err: ErrInvalidPort}
	}
	if strings.TrimSpace(service) == "" {
		return &ReservationError{Op: "reserve", Port: port, Err: ErrInvalidService}
	}

	l.mu.Lock()
	if holder, ok := l.reservations[port]; ok {
		l.mu.Unlock()
		return &ReservationError{Op: "reserve", Port: port, Service: holder, Err: ErrAlreadyReserved}
	}

	// The checker is consulted with the lock held so no other mutation can
	// interleave between the check and the insert.
	inUse, err := l.checkLive(port)
	if err != nil {
		l.mu.Unlock()
		return &ReservationError{Op: "reserve", Port: port, Service: service, Err: err}
	}
	if inUse {
		l.mu.Unlock()
		return &ReservationError{Op: "reserve", Port: port, Service: service, Err: ErrPortInUse}
	}

	l.reservations[port] = service
	version, snapshot := l.bumpLocked()
	l.mu.Unlock()

	l.logger.Info("port reserved", "port", port, "service", service)
	return l.persist("reserve", port, version, snapshot)
}

func (l *Ledger) checkLive(port uint16) (bool, error) {
	if l.checker == nil {
		return false, nil
	}
	inUse, err := l.checker.PortInUse(port)
	if err != nil {
		if !errors.Is(err, proc.ErrPlatformUnavailable) {
			err = fmt.Errorf("%w: %w", proc.ErrPlatformUnavailable, err)
		}
		return false, err
	}
	return inUse, nil
}

func (l *Ledger) Release(port uint16) error {
	l.mu.Lock()
	service, ok := l.reservations[port]
	if !ok {
		l.mu.Unlock()
		return &ReservationError{Op: "release", Port: port, Err: ErrNotReserved}
	}
	delete(l.reservations, port)
	version, snapshot := l.bumpLocked()
	l.mu.Unlock()

	l.logger.Info("port released", "port", port, "service", service)
	return l.persist("release", port, version, snapshot)
}

func (l *Ledger) bumpLocked() (uint64, map[uint16]string) {
	l.version++
	return l.version, maps.Clone(l.reservations)
}

func (l *Ledger) persist(op string, port uint16, version uint64, snapshot map[uint16]string) error {
	if l.store == nil {
		return nil
	}

	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	if version <= l.savedVersion {
		return nil
	}
	if err := l.store.Save(snapshot); err != nil {
		l.logger.Warn("failed to persist ledger", "op", op, "port", port, "error", err)
		return &PersistError{Op: op, Port: port, Err: err}
	}
	l.savedVersion = version
	return nil
}

func (l *Ledger) IsReserved(port uint16) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.reservations[port]
	return ok
}

// Service returns the service holding port.
func (l *Ledger) Service(port uint16) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	service, ok := l.reservations[port]
	return service, ok
}

// All returns a copy of the reservation map.
func (l *Ledger) All() map[uint16]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.reservations)
}

// Reservations returns the reservations ordered by port.
func (l *Ledger) Reservations() []model.Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	ports := slices.Sorted(maps.Keys(l.reservations))
	out := make([]model.Reservation, 0, len(ports))
	for _, port := range ports {
		out = append(out, model.Reservation{Port: port, Service: l.reservations[port]})
	}
	return out
}
