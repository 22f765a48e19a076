// Package proc reads the host socket table and resolves which process owns
// each socket.
//
// Two capabilities are exposed, each with per-platform implementations
// selected at build time:
//
//   - SocketTableReader enumerates raw TCP/UDP sockets for IPv4 and IPv6.
//   - Correlator maps raw sockets to the owning process.
//
// On Linux both are backed by procfs: the socket tables under /proc/net and
// the per-process descriptor tables under /proc/<pid>/fd. Everywhere else
// they are backed by gopsutil, whose connection listing already carries the
// owning pid.
package proc

import (
	"errors"
	"log/slog"

	"github.com/pranshuparmar/portman/internal/logging"
	"github.com/pranshuparmar/portman/pkg/model"
)

// ErrPlatformUnavailable reports that the OS socket facility could not be
// queried at all.
var ErrPlatformUnavailable = errors.New("socket table unavailable")

// SocketTableReader enumerates the host's raw socket entries. Readers return
// whatever subset of the tables they could read; an error is only returned
// when nothing could be read.
type SocketTableReader interface {
	ReadSockets() ([]model.RawSocket, error)
}

// Correlator resolves owning processes for raw socket entries, keyed by
// RawSocket.Key. Entries it cannot resolve are simply absent from the result.
type Correlator interface {
	Correlate(entries []model.RawSocket) map[string]model.ProcessInfo
}

type Options struct {
	// ProcRoot is the procfs mount point. Only used on Linux.
	ProcRoot string
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ProcRoot == "" {
		o.ProcRoot = DefaultProcRoot
	}
	if o.Logger == nil {
		o.Logger = logging.Logger
	}
	return o
}

const DefaultProcRoot = "/proc"

// NewSocketTableReader returns the reader for the current platform.
func NewSocketTableReader(opts Options) SocketTableReader {
	return newPlatformReader(opts.withDefaults())
}

// NewCorrelator returns the correlator for the current platform.
func NewCorrelator(opts Options) Correlator {
	return newPlatformCorrelator(opts.withDefaults())
}
