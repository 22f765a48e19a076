package tui

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/truncate"

	"github.com/pranshuparmar/portman/internal/ledger"
	"github.com/pranshuparmar/portman/internal/query"
	"github.com/pranshuparmar/portman/pkg/model"
)

type tickMsg time.Time

type snapshotMsg struct {
	records  []model.PortRecord
	reserved map[uint16]string
	err      error
}

// ledgerMsg reports the outcome of a reserve or release.
type ledgerMsg struct {
	text string
	err  error
}

type termMsg struct {
	pid int
	err error
}

func (m MainModel) waitTick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m MainModel) refreshPorts() tea.Cmd {
	inv, l := m.inventory, m.ledger
	return func() tea.Msg {
		snap, err := inv.Snapshot()
		return snapshotMsg{records: snap.Records(), reserved: l.All(), err: err}
	}
}

// unknownService is recorded when the selected socket has no known owner.
const unknownService = "unknown"

func (m MainModel) reservePort(r model.PortRecord) tea.Cmd {
	l := m.ledger
	service := r.ProcessName
	if service == "" {
		service = unknownService
	}
	port := r.LocalPort
	return func() tea.Msg {
		err := l.Reserve(port, service)
		return ledgerResult(err, fmt.Sprintf("Port %d reserved for %s", port, service))
	}
}

func (m MainModel) releasePort(port uint16) tea.Cmd {
	l := m.ledger
	return func() tea.Msg {
		err := l.Release(port)
		return ledgerResult(err, fmt.Sprintf("Port %d released", port))
	}
}

func ledgerResult(err error, success string) ledgerMsg {
	var perr *ledger.PersistError
	if errors.As(err, &perr) {
		// Applied in memory; only the save failed.
		return ledgerMsg{text: success + " (not saved: " + perr.Err.Error() + ")"}
	}
	if err != nil {
		return ledgerMsg{err: err}
	}
	return ledgerMsg{text: success}
}

func (m MainModel) terminatePID(pid int) tea.Cmd {
	terminate := m.terminate
	return func() tea.Msg {
		return termMsg{pid: pid, err: terminate(pid)}
	}
}

func (m *MainModel) sortRecords() {
	key, desc := m.sortKey, m.sortDesc
	slices.SortStableFunc(m.records, func(a, b model.PortRecord) int {
		var c int
		switch key {
		case sortProcess:
			c = cmp.Compare(strings.ToLower(a.ProcessName), strings.ToLower(b.ProcessName))
		case sortProtocol:
			c = cmp.Compare(a.Protocol, b.Protocol)
		case sortState:
			c = cmp.Compare(a.State, b.State)
		}
		if desc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.LocalPort, b.LocalPort))
	})
}

func (m *MainModel) predicate() query.Predicate {
	return query.Predicate{Query: strings.TrimSpace(m.input.Value()), Interactive: true}
}

func baseColumns() []table.Column {
	return []table.Column{
		{Title: "Proto", Width: 6},
		{Title: "Local Address", Width: 28},
		{Title: "Remote Address", Width: 28},
		{Title: "State", Width: 12},
		{Title: "PID", Width: 8},
		{Title: "Process", Width: 20},
		{Title: "Reservation", Width: 20},
	}
}

func (m *MainModel) getColumns() []table.Column {
	cols := baseColumns()

	for idx, key := range columnSort {
		if key != m.sortKey {
			continue
		}
		if m.sortDesc {
			cols[idx].Title += " ↓"
		} else {
			cols[idx].Title += " ↑"
		}
	}
	return cols
}

func (m *MainModel) updateTable() {
	var selectedKey string
	if r, ok := m.selectedRecord(); ok {
		selectedKey = r.Key()
	}

	m.sortRecords()
	m.filtered = query.Filter(m.records, m.predicate())

	existingCols := m.table.Columns()
	newCols := m.getColumns()
	for i := range existingCols {
		if i < len(newCols) {
			newCols[i].Width = existingCols[i].Width
		}
	}
	m.table.SetColumns(newCols)

	rows := make([]table.Row, 0, len(m.filtered))
	cursor := 0
	for i, r := range m.filtered {
		reservation := ""
		if service, ok := m.reserved[r.LocalPort]; ok {
			reservation = "(reserved) " + service
		}
		rows = append(rows, table.Row{
			string(r.Protocol),
			r.LocalAddress,
			r.RemoteAddress,
			r.State,
			r.PIDString(),
			r.ProcessLabel(),
			reservation,
		})
		if r.Key() == selectedKey {
			cursor = i
		}
	}
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetCursor(cursor)
	}
}

func (m *MainModel) selectedRecord() (model.PortRecord, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.filtered) {
		return model.PortRecord{}, false
	}
	return m.filtered[idx], true
}

func (m *MainModel) setStatus(text string, isErr bool) {
	m.statusMsg = text
	m.statusErr = isErr
}

// fitStatus keeps long ledger errors on the status row so the table
// stays where mouse handling expects it.
func (m MainModel) fitStatus(s string) string {
	if m.width > 8 {
		return truncate.StringWithTail(s, uint(m.width-8), "…")
	}
	return s
}
