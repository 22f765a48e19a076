package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Screen rows, counted from the top of the outer frame.
const (
	inputRow       = 4
	tableHeaderRow = 6
	firstDataRow   = 8
	contentLeft    = 2
)

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		var cmd tea.Cmd
		if !m.quitting && !m.input.Focused() {
			cmd = m.refreshPorts()
		}
		return m, tea.Batch(cmd, m.waitTick())

	case snapshotMsg:
		m.records = msg.records
		if msg.reserved != nil {
			m.reserved = msg.reserved
		}
		m.readErr = msg.err
		m.updateTable()
		return m, nil

	case ledgerMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus(msg.text, false)
		}
		return m, m.refreshPorts()

	case termMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Error: %v", msg.err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Signal sent to PID %d", msg.pid), false)
		return m, m.refreshPorts()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		tableHeight := msg.Height - 12
		if tableHeight < 5 {
			tableHeight = 5
		}
		tableWidth := msg.Width - 6
		if tableWidth < 20 {
			tableWidth = 20
		}

		// Proto(6)+State(12)+PID(8)+Process(20)+Reservation(20) plus cell padding.
		fixedColumnsWidth := 66 + 14
		addrWidth := (tableWidth - fixedColumnsWidth) / 2
		if addrWidth < 15 {
			addrWidth = 15
		}

		columns := m.getColumns()
		columns[1].Width = addrWidth
		columns[2].Width = addrWidth
		m.table.SetColumns(columns)
		m.table.SetWidth(tableWidth)
		m.table.SetHeight(tableHeight)
		m.input.Width = max(tableWidth-4, 10)
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.input.Focused() {
		if msg.String() == "enter" || msg.String() == "esc" {
			m.input.Blur()
			return m, nil
		}
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		m.updateTable()
		m.table.SetCursor(0)
		return m, inputCmd
	}

	// confirmation prompt
	if m.pendingAction != actionNone {
		switch msg.String() {
		case "y", "Y":
			pid := m.pendingPID
			m.pendingAction = actionNone
			m.pendingPID = 0
			return m, m.terminatePID(pid)
		case "n", "N", "esc":
			m.pendingAction = actionNone
			m.pendingPID = 0
			m.setStatus("", false)
		}
		return m, nil
	}

	m.setStatus("", false) // clear any transient message on interaction

	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "/":
		m.input.Focus()
		return m, textinput.Blink
	case "s":
		m.sortKey = (m.sortKey + 1) % sortKeyCount
		m.sortDesc = false
		m.updateTable()
		return m, nil
	case "S":
		m.sortDesc = !m.sortDesc
		m.updateTable()
		return m, nil
	case "r":
		rec, ok := m.selectedRecord()
		if !ok {
			return m, nil
		}
		return m, m.reservePort(rec)
	case "u":
		rec, ok := m.selectedRecord()
		if !ok {
			return m, nil
		}
		return m, m.releasePort(rec.LocalPort)
	case "c":
		rec, ok := m.selectedRecord()
		if !ok || !rec.HasPID() {
			m.setStatus("No owning process for this socket", true)
			return m, nil
		}
		m.pendingAction = actionTerm
		m.pendingPID = rec.PID
		return m, nil
	case "ctrl+r":
		return m, m.refreshPorts()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m MainModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	// The wheel scrolls by one row without jumping the cursor to the mouse Y position.
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.table.MoveUp(1)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.table.MoveDown(1)
		return m, nil
	case tea.MouseButtonLeft:
	default:
		return m, nil
	}

	if msg.Y == inputRow {
		m.input.Focus()
		return m, textinput.Blink
	}
	if m.input.Focused() {
		m.input.Blur()
	}

	contentX := msg.X - contentLeft
	if contentX < 0 {
		return m, nil
	}
	if msg.Y == tableHeaderRow {
		m.handleHeaderClick(contentX)
		return m, nil
	}
	if msg.Y < firstDataRow {
		return m, nil
	}

	m.selectRowAt(msg.Y - tableHeaderRow)

	isDoubleClick := time.Since(m.lastClickTime) < 500*time.Millisecond && m.lastClickY == msg.Y
	m.lastClickTime = time.Now()
	m.lastClickY = msg.Y

	// Double click toggles the reservation of the clicked port.
	if isDoubleClick {
		rec, ok := m.selectedRecord()
		if !ok {
			return m, nil
		}
		if _, reserved := m.reserved[rec.LocalPort]; reserved {
			return m, m.releasePort(rec.LocalPort)
		}
		return m, m.reservePort(rec)
	}
	return m, nil
}

// selectRowAt moves the cursor to the row drawn on the given line of the
// table view. Rows are matched on their rendered protocol and addresses so
// a scrolled table still selects what the user clicked.
func (m *MainModel) selectRowAt(line int) {
	lines := strings.Split(m.table.View(), "\n")
	if line < 0 || line >= len(lines) {
		return
	}
	fields := strings.Fields(stripAnsi(lines[line]))
	if len(fields) < 2 {
		return
	}

	for i, row := range m.table.Rows() {
		if len(row) < 3 || row[0] != fields[0] || !cellMatches(row[1], fields[1]) {
			continue
		}
		if len(fields) > 2 && !cellMatches(row[2], fields[2]) {
			continue
		}
		m.table.SetCursor(i)
		return
	}
}

// cellMatches compares a row value with its possibly truncated rendering.
func cellMatches(value, rendered string) bool {
	return strings.HasPrefix(value, strings.TrimSuffix(rendered, "…"))
}
