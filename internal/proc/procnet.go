package proc

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pranshuparmar/portman/pkg/model"
)

var stateMap = map[string]string{
	"01": "ESTABLISHED",
	"02": "SYN_SENT",
	"03": "SYN_RECV",
	"04": "FIN_WAIT1",
	"05": "FIN_WAIT2",
	"06": "TIME_WAIT",
	"07": "CLOSE",
	"08": "CLOSE_WAIT",
	"09": "LAST_ACK",
	"0A": "LISTEN",
	"0B": "CLOSING",
}

type procNetTable struct {
	name     string
	protocol model.Protocol
	family   model.Family
}

var procNetTables = []procNetTable{
	{"tcp", model.TCP, model.IPv4},
	{"tcp6", model.TCP, model.IPv6},
	{"udp", model.UDP, model.IPv4},
	{"udp6", model.UDP, model.IPv6},
}

// ProcNetReader reads /proc/net/{tcp,tcp6,udp,udp6}.
type ProcNetReader struct {
	Root   string
	Logger *slog.Logger
}

func (r *ProcNetReader) ReadSockets() ([]model.RawSocket, error) {
	results := make([][]model.RawSocket, len(procNetTables))
	var failed atomic.Int32

	// Each table is independent; a failing one is dropped rather than
	// failing the whole read.
	var g errgroup.Group
	for i, table := range procNetTables {
		g.Go(func() error {
			path := filepath.Join(r.Root, "net", table.name)
			entries, err := readProcNetFile(path, table.protocol, table.family)
			if err != nil {
				failed.Add(1)
				r.logger().Debug("socket table unreadable", "path", path, "error", err)
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	if int(failed.Load()) == len(procNetTables) {
		return nil, fmt.Errorf("%w: no readable tables under %s", ErrPlatformUnavailable, filepath.Join(r.Root, "net"))
	}

	var sockets []model.RawSocket
	for _, entries := range results {
		sockets = append(sockets, entries...)
	}
	return sockets, nil
}

func (r *ProcNetReader) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func readProcNetFile(path string, protocol model.Protocol, family model.Family) ([]model.RawSocket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseProcNet(f, protocol, family)
}

// parseProcNet parses one /proc/net socket table. Malformed lines are skipped.
func parseProcNet(r io.Reader, protocol model.Protocol, family model.Family) ([]model.RawSocket, error) {
	ipv6 := family == model.IPv6

	var sockets []model.RawSocket
	scanner := bufio.NewScanner(r)
	scanner.Scan() // skip header

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}

		localIP, localPort, ok := parseAddr(fields[1], ipv6)
		if !ok {
			continue
		}
		remoteIP, remotePort, ok := parseAddr(fields[2], ipv6)
		if !ok {
			continue
		}

		state := model.StateUDP
		if protocol == model.TCP {
			s, ok := stateMap[strings.ToUpper(fields[3])]
			if !ok {
				s = "UNKNOWN"
			}
			state = s
		}

		sockets = append(sockets, model.RawSocket{
			Key:        fields[9],
			Protocol:   protocol,
			Family:     family,
			LocalIP:    localIP,
			LocalPort:  localPort,
			RemoteIP:   remoteIP,
			RemotePort: remotePort,
			State:      state,
		})
	}

	return sockets, scanner.Err()
}

// parseAddr decodes the kernel's hex "ADDR:PORT" notation.
func parseAddr(raw string, ipv6 bool) (string, uint16, bool) {
	ipHex, portHex, found := strings.Cut(raw, ":")
	if !found {
		return "", 0, false
	}
	port, err := strconv.ParseUint(portHex, 16, 16)
	if err != nil {
		return "", 0, false
	}

	b, err := hex.DecodeString(ipHex)
	if err != nil {
		return "", 0, false
	}

	if ipv6 {
		if len(b) != net.IPv6len {
			return "", 0, false
		}
		// Stored as four host-order (little-endian) 32-bit words.
		ip := make(net.IP, net.IPv6len)
		for i := 0; i < 4; i++ {
			ip[i*4+0] = b[i*4+3]
			ip[i*4+1] = b[i*4+2]
			ip[i*4+2] = b[i*4+1]
			ip[i*4+3] = b[i*4+0]
		}
		return ip.String(), uint16(port), true
	}

	if len(b) != net.IPv4len {
		return "", 0, false
	}
	ip := net.IPv4(b[3], b[2], b[1], b[0])
	return ip.String(), uint16(port), true
}
