// Package inventory turns the raw socket table into port records.
//
// Every Snapshot reads the OS afresh; nothing is cached between calls, so the
// caller decides the refresh cadence.
package inventory

import (
	"cmp"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/pranshuparmar/portman/internal/logging"
	"github.com/pranshuparmar/portman/internal/proc"
	"github.com/pranshuparmar/portman/internal/query"
	"github.com/pranshuparmar/portman/pkg/model"
)

type Inventory struct {
	reader     proc.SocketTableReader
	correlator proc.Correlator
	logger     *slog.Logger
	now        func() time.Time
}

type Options struct {
	Logger *slog.Logger
}

func New(reader proc.SocketTableReader, correlator proc.Correlator, opts Options) *Inventory {
	if opts.Logger == nil {
		opts.Logger = logging.Logger
	}
	return &Inventory{
		reader:     reader,
		correlator: correlator,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// NewSystem returns an inventory backed by the platform reader and correlator.
func NewSystem(procRoot string, logger *slog.Logger) *Inventory {
	popts := proc.Options{ProcRoot: procRoot, Logger: logger}
	return New(proc.NewSocketTableReader(popts), proc.NewCorrelator(popts), Options{Logger: logger})
}

// Snapshot reads and correlates the socket table. A reader error is returned
// alongside whatever could be read; callers treat it as a warning.
func (inv *Inventory) Snapshot() (model.Snapshot, error) {
	raw, readErr := inv.reader.ReadSockets()
	if readErr != nil {
		inv.logger.Warn("socket table read failed", "error", readErr)
	}

	var owners map[string]model.ProcessInfo
	if inv.correlator != nil && len(raw) > 0 {
		owners = inv.correlator.Correlate(raw)
	}

	records := make([]model.PortRecord, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, s := range raw {
		r := toRecord(s, owners)
		key := r.Key()
		if i, dup := index[key]; dup {
			if preferOver(r, records[i]) {
				records[i] = r
			}
			continue
		}
		index[key] = len(records)
		records = append(records, r)
	}

	slices.SortStableFunc(records, func(a, b model.PortRecord) int {
		return cmp.Or(
			cmp.Compare(a.LocalPort, b.LocalPort),
			cmp.Compare(a.Protocol, b.Protocol),
			cmp.Compare(a.LocalAddress, b.LocalAddress),
		)
	})

	inv.logger.Debug("snapshot taken", "sockets", len(raw), "records", len(records), "correlated", len(owners))
	return model.NewSnapshot(inv.now(), records), readErr
}

func toRecord(s model.RawSocket, owners map[string]model.ProcessInfo) model.PortRecord {
	r := model.PortRecord{
		Protocol:      s.Protocol,
		Family:        s.Family,
		LocalAddress:  net.JoinHostPort(s.LocalIP, strconv.Itoa(int(s.LocalPort))),
		RemoteAddress: remoteAddress(s),
		LocalPort:     s.LocalPort,
		State:         s.State,
		PID:           s.PID,
		Tags:          []string{},
	}
	if info, ok := owners[s.Key]; ok {
		if info.PID > 0 {
			r.PID = info.PID
		}
		r.ProcessName = info.Name
		r.User = info.User
	}
	return r
}

func remoteAddress(s model.RawSocket) string {
	if s.Protocol == model.UDP && s.RemotePort == 0 {
		return "-"
	}
	if s.RemoteIP == "" {
		return "-"
	}
	return net.JoinHostPort(s.RemoteIP, strconv.Itoa(int(s.RemotePort)))
}

// preferOver decides which of two records sharing (protocol, local address)
// is kept: a correlated record beats an uncorrelated one, then a listener
// beats a connection. Otherwise the first one seen stays.
func preferOver(candidate, current model.PortRecord) bool {
	if candidate.HasPID() != current.HasPID() {
		return candidate.HasPID()
	}
	return candidate.State == "LISTEN" && current.State != "LISTEN"
}

// Filter applies p to the snapshot's records.
func (inv *Inventory) Filter(snap model.Snapshot, p query.Predicate) []model.PortRecord {
	return query.Filter(snap.Records(), p)
}

// PortInUse reports whether any live TCP or UDP socket, in any state, is bound
// to port. The table is read fresh and not correlated.
func (inv *Inventory) PortInUse(port uint16) (bool, error) {
	raw, err := inv.reader.ReadSockets()
	if err != nil {
		return false, err
	}
	for _, s := range raw {
		if s.LocalPort == port {
			return true, nil
		}
	}
	return false, nil
}
