package model

type Protocol string

const (
	TCP Protocol = "TCP"
	UDP Protocol = "UDP"
)

type Family string

const (
	IPv4 Family = "IPv4"
	IPv6 Family = "IPv6"
)

// StateUDP is the state reported for UDP sockets, which have no connection state.
const StateUDP = "UDP"

// RawSocket is one entry of the OS socket table before ownership is known.
type RawSocket struct {
	Key        string // inode on Linux, synthetic per-connection key elsewhere
	Protocol   Protocol
	Family     Family
	LocalIP    string
	LocalPort  uint16
	RemoteIP   string
	RemotePort uint16
	State      string // LISTEN, ESTABLISHED, TIME_WAIT, ... or StateUDP
	PID        int    // only set by readers backed by a unified socket/process API
}

// ProcessInfo identifies the owner of a socket.
type ProcessInfo struct {
	PID  int
	Name string // empty when the platform cannot resolve it
	User string
}
