// Package query filters port records.
//
// A Predicate is a set of optional constraints. Every set field must hold for
// a record to match; there is no way to express "A or B". Callers that need a
// union run two filters and merge the results.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pranshuparmar/portman/pkg/model"
)

// Predicate constrains port records. The zero value matches everything.
type Predicate struct {
	// Query is a case-insensitive substring of the process name.
	Query string
	// Interactive widens Query to the local address, remote address and state.
	Interactive bool

	Protocol  string
	State     string
	PortStart *uint16
	PortEnd   *uint16
	Tags      []string
	User      string
}

// IsZero reports whether p imposes no constraint.
func (p Predicate) IsZero() bool {
	return p.Query == "" && p.Protocol == "" && p.State == "" &&
		p.PortStart == nil && p.PortEnd == nil && len(p.Tags) == 0 && p.User == ""
}

// Matches reports whether r satisfies every constraint in p.
func Matches(r model.PortRecord, p Predicate) bool {
	if p.Query != "" && !matchesQuery(r, p.Query, p.Interactive) {
		return false
	}
	if p.Protocol != "" && !strings.EqualFold(string(r.Protocol), p.Protocol) {
		return false
	}
	if p.State != "" && !strings.EqualFold(r.State, p.State) {
		return false
	}
	if p.PortStart != nil && r.LocalPort < *p.PortStart {
		return false
	}
	if p.PortEnd != nil && r.LocalPort > *p.PortEnd {
		return false
	}
	for _, tag := range p.Tags {
		if !r.HasTag(tag) {
			return false
		}
	}
	if p.User != "" && r.User != p.User {
		return false
	}
	return true
}

func matchesQuery(r model.PortRecord, query string, interactive bool) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(r.ProcessName), q) {
		return true
	}
	if !interactive {
		return false
	}
	for _, field := range []string{r.LocalAddress, r.RemoteAddress, r.State} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Filter returns the records matching p, in their original order.
func Filter(records []model.PortRecord, p Predicate) []model.PortRecord {
	out := make([]model.PortRecord, 0, len(records))
	for _, r := range records {
		if Matches(r, p) {
			out = append(out, r)
		}
	}
	return out
}

// ParsePredicate builds a predicate from URL query parameters. Tags may be
// repeated or comma separated; process_name is accepted as an alias for query.
func ParsePredicate(v url.Values) (Predicate, error) {
	p := Predicate{
		Query:    v.Get("query"),
		Protocol: v.Get("protocol"),
		State:    v.Get("state"),
		User:     v.Get("user"),
	}
	if p.Query == "" {
		p.Query = v.Get("process_name")
	}

	var err error
	if p.PortStart, err = parsePortParam(v, "port_start"); err != nil {
		return Predicate{}, err
	}
	if p.PortEnd, err = parsePortParam(v, "port_end"); err != nil {
		return Predicate{}, err
	}
	if p.PortStart != nil && p.PortEnd != nil && *p.PortStart > *p.PortEnd {
		return Predicate{}, fmt.Errorf("port_start %d is greater than port_end %d", *p.PortStart, *p.PortEnd)
	}

	p.Tags = SplitTags(v["tags"])
	return p, nil
}

func parsePortParam(v url.Values, key string) (*uint16, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	port, err := ParsePort(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &port, nil
}

// ParsePort parses a decimal port number in 0-65535.
func ParsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return uint16(n), nil
}

// SplitTags flattens repeated and comma separated tag values, dropping blanks.
func SplitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// Uint16 returns a pointer to v, for building port bounds.
func Uint16(v uint16) *uint16 {
	return &v
}
