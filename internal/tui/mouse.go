package tui

import "github.com/charmbracelet/bubbles/table"

// returns the column index at x pixels, or -1 if not found.
func (m *MainModel) getColumnAtX(x int, cols []table.Column) int {
	currentX := 0
	for i, col := range cols {
		colWidth := col.Width + 2
		if x >= currentX && x < currentX+colWidth {
			return i
		}
		currentX += colWidth
	}
	return -1
}

// columnSort maps table columns to the sort they select. PID, remote
// address and reservation are not sortable.
var columnSort = map[int]sortKey{
	0: sortProtocol,
	1: sortPort,
	3: sortState,
	5: sortProcess,
}

func (m *MainModel) handleHeaderClick(x int) {
	colIdx := m.getColumnAtX(x, m.table.Columns())
	key, ok := columnSort[colIdx]
	if !ok {
		return
	}

	if m.sortKey == key {
		m.sortDesc = !m.sortDesc
	} else {
		m.sortKey = key
		m.sortDesc = false
	}
	m.updateTable()
}
