package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/pranshuparmar/portman/pkg/model"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bcbcbc"))
	reservedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	listenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff"))
)

type column struct {
	title string
	max   int
}

var portColumns = []column{
	{"PROTO", 5},
	{"LOCAL ADDRESS", 40},
	{"REMOTE ADDRESS", 40},
	{"STATE", 11},
	{"PID", 7},
	{"PROCESS", 24},
	{"USER", 12},
}

func portCells(r model.PortRecord) []string {
	user := r.User
	if user == "" {
		user = "-"
	}
	return []string{
		string(r.Protocol),
		r.LocalAddress,
		r.RemoteAddress,
		r.State,
		r.PIDString(),
		r.ProcessLabel(),
		user,
	}
}

// RenderPorts writes records as an aligned table. Ports present in reserved
// get a "(reserved: service)" marker.
func RenderPorts(w io.Writer, records []model.PortRecord, reserved map[uint16]string, colorEnabled bool) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No sockets match.")
		return
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = portCells(r)
	}
	widths := columnWidths(portColumns, rows)

	titles := make([]string, len(portColumns))
	for i, c := range portColumns {
		titles[i] = c.title
	}
	header := formatRow(titles, widths)
	if colorEnabled {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(w, header)

	marked := 0
	for i, r := range records {
		line := formatRow(rows[i], widths)
		if colorEnabled && r.State == "LISTEN" {
			line = listenStyle.Render(line)
		}
		if service, ok := reserved[r.LocalPort]; ok {
			marked++
			marker := fmt.Sprintf("(reserved: %s)", service)
			if colorEnabled {
				marker = reservedStyle.Render(marker)
			}
			line += "  " + marker
		}
		fmt.Fprintln(w, line)
	}

	summary := fmt.Sprintf("%d sockets, %d on reserved ports", len(records), marked)
	if colorEnabled {
		summary = dimStyle.Render(summary)
	}
	fmt.Fprintln(w, summary)
}

// RenderReservations writes the ledger as a two-column table.
func RenderReservations(w io.Writer, reservations []model.Reservation, colorEnabled bool) {
	if len(reservations) == 0 {
		fmt.Fprintln(w, "No reservations.")
		return
	}

	cols := []column{{"PORT", 5}, {"SERVICE", 60}}
	rows := make([][]string, len(reservations))
	for i, r := range reservations {
		rows[i] = []string{strconv.Itoa(int(r.Port)), r.Service}
	}
	widths := columnWidths(cols, rows)

	header := formatRow([]string{cols[0].title, cols[1].title}, widths)
	if colorEnabled {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(w, header)
	for _, row := range rows {
		fmt.Fprintln(w, formatRow(row, widths))
	}
}

func columnWidths(cols []column, rows [][]string) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c.title)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := lipgloss.Width(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	for i, c := range cols {
		if widths[i] > c.max && c.max >= lipgloss.Width(c.title) {
			widths[i] = c.max
		}
	}
	return widths
}

func formatRow(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		cell = truncate.StringWithTail(cell, uint(widths[i]), "…")
		b.WriteString(cell)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
		}
	}
	return b.String()
}
