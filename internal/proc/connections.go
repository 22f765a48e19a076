package proc

import (
	"fmt"
	"log/slog"
	"strings"

	gnet "github.com/shirou/gopsutil/v4/net"
	gprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/pranshuparmar/portman/pkg/model"
)

// ConnectionsReader enumerates sockets through gopsutil's connection listing,
// which already associates each socket with its owning pid.
type ConnectionsReader struct {
	Logger *slog.Logger

	// list is replaced in tests.
	list func(kind string) ([]gnet.ConnectionStat, error)
}

func (r *ConnectionsReader) ReadSockets() ([]model.RawSocket, error) {
	list := r.list
	if list == nil {
		list = gnet.Connections
	}

	var sockets []model.RawSocket
	failed := 0
	for _, kind := range []struct {
		name     string
		protocol model.Protocol
	}{
		{"tcp", model.TCP},
		{"udp", model.UDP},
	} {
		conns, err := list(kind.name)
		if err != nil {
			failed++
			r.logger().Debug("connection listing failed", "kind", kind.name, "error", err)
			continue
		}
		for _, c := range conns {
			sockets = append(sockets, fromConnectionStat(c, kind.protocol))
		}
	}

	if failed == 2 {
		return nil, fmt.Errorf("%w: connection listing failed", ErrPlatformUnavailable)
	}
	return sockets, nil
}

func (r *ConnectionsReader) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func fromConnectionStat(c gnet.ConnectionStat, protocol model.Protocol) model.RawSocket {
	family := model.IPv4
	if strings.Contains(c.Laddr.IP, ":") {
		family = model.IPv6
	}

	state := model.StateUDP
	if protocol == model.TCP {
		state = normalizeStatus(c.Status)
	}

	s := model.RawSocket{
		Protocol:   protocol,
		Family:     family,
		LocalIP:    c.Laddr.IP,
		LocalPort:  uint16(c.Laddr.Port),
		RemoteIP:   c.Raddr.IP,
		RemotePort: uint16(c.Raddr.Port),
		State:      state,
		PID:        int(c.Pid),
	}
	s.Key = fmt.Sprintf("%d|%s|%s|%d|%s|%d|%d", s.PID, protocol, s.LocalIP, s.LocalPort, s.RemoteIP, s.RemotePort, c.Fd)
	return s
}

func normalizeStatus(status string) string {
	switch s := strings.ToUpper(strings.TrimSpace(status)); s {
	case "", "NONE":
		return "UNKNOWN"
	case "LISTENING":
		return "LISTEN"
	case "FIN_WAIT_1":
		return "FIN_WAIT1"
	case "FIN_WAIT_2":
		return "FIN_WAIT2"
	default:
		return s
	}
}

// ConnectionsCorrelator resolves name and user for the pids carried on raw
// entries. A pid whose details cannot be read is still reported, without a
// name.
type ConnectionsCorrelator struct {
	Logger *slog.Logger

	// describe is replaced in tests.
	describe func(pid int) model.ProcessInfo
}

func (c *ConnectionsCorrelator) Correlate(entries []model.RawSocket) map[string]model.ProcessInfo {
	describe := c.describe
	if describe == nil {
		describe = describeProcess
	}

	owners := make(map[string]model.ProcessInfo)
	known := make(map[int]model.ProcessInfo)
	for _, e := range entries {
		if e.PID <= 0 {
			continue
		}
		info, ok := known[e.PID]
		if !ok {
			info = describe(e.PID)
			info.PID = e.PID
			known[e.PID] = info
		}
		owners[e.Key] = info
	}
	return owners
}

func describeProcess(pid int) model.ProcessInfo {
	info := model.ProcessInfo{PID: pid}
	p, err := gprocess.NewProcess(int32(pid))
	if err != nil {
		return info
	}
	if name, err := p.Name(); err == nil {
		info.Name = name
	}
	if user, err := p.Username(); err == nil {
		info.User = user
	}
	return info
}
