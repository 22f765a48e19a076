package model

import (
	"encoding/json"
	"slices"
	"strconv"
	"time"
)

// PortRecord is one observed socket at snapshot time.
type PortRecord struct {
	Protocol      Protocol `json:"protocol"`
	Family        Family   `json:"family"`
	LocalAddress  string   `json:"local_address"`
	RemoteAddress string   `json:"remote_address"`
	LocalPort     uint16   `json:"port"`
	State         string   `json:"state"`
	PID           int      `json:"pid,omitempty"` // 0 when the socket could not be correlated
	ProcessName   string   `json:"process_name,omitempty"`
	Tags          []string `json:"tags"`
	User          string   `json:"user,omitempty"`
}

// Key identifies the live socket within a snapshot.
func (r PortRecord) Key() string {
	return string(r.Protocol) + "|" + r.LocalAddress
}

func (r PortRecord) HasPID() bool {
	return r.PID > 0
}

// PIDString renders the owning pid, or "-" when unknown.
func (r PortRecord) PIDString() string {
	if !r.HasPID() {
		return "-"
	}
	return strconv.Itoa(r.PID)
}

// ProcessLabel renders the process name, or "-" when unknown.
func (r PortRecord) ProcessLabel() string {
	if r.ProcessName == "" {
		return "-"
	}
	return r.ProcessName
}

func (r PortRecord) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

func (r PortRecord) clone() PortRecord {
	r.Tags = slices.Clone(r.Tags)
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return r
}

// Snapshot is an immutable, point-in-time view of the socket table.
type Snapshot struct {
	takenAt time.Time
	records []PortRecord
}

// NewSnapshot copies records so later changes by the caller are not observed.
func NewSnapshot(takenAt time.Time, records []PortRecord) Snapshot {
	own := make([]PortRecord, len(records))
	for i, r := range records {
		own[i] = r.clone()
	}
	return Snapshot{takenAt: takenAt, records: own}
}

func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

func (s Snapshot) Len() int {
	return len(s.records)
}

// Records returns a copy of the snapshot contents in snapshot order.
func (s Snapshot) Records() []PortRecord {
	out := make([]PortRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Records())
}

// Reservation is an operator's claim on a port for a named service.
type Reservation struct {
	Port    uint16 `json:"port"`
	Service string `json:"service"`
}
