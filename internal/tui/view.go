package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m MainModel) View() string {
	if m.quitting {
		return ""
	}

	outerStyle := baseStyle.
		Width(m.width-2).
		Height(m.height-2).
		Padding(0, 1)

	reservedCount := 0
	for _, r := range m.filtered {
		if _, ok := m.reserved[r.LocalPort]; ok {
			reservedCount++
		}
	}
	headerComponents := []string{
		titleStyle.Render("portman"),
		badgeStyle.Render(fmt.Sprintf("%d sockets", len(m.filtered))),
	}
	if len(m.reserved) > 0 {
		headerComponents = append(headerComponents,
			lipgloss.NewStyle().Padding(0, 1).Render(fmt.Sprintf("%d reserved, %d in view", len(m.reserved), reservedCount)))
	}

	status := "Mode: Navigation (Press / to search)"
	switch {
	case m.pendingAction == actionTerm:
		status = confirmStyle.Render(fmt.Sprintf("Terminate PID %d? [y]es / [n]o", m.pendingPID))
	case m.statusMsg != "" && m.statusErr:
		status = errorStyle.Render(m.fitStatus(m.statusMsg))
	case m.statusMsg != "":
		status = okStyle.Render(m.fitStatus(m.statusMsg))
	case m.readErr != nil:
		status = errorStyle.Render(m.fitStatus("Socket table incomplete: " + m.readErr.Error()))
	case m.input.Focused():
		status = "Mode: Searching (Press Esc/Enter to stop)"
	}

	helpText := "/: Search | s: Sort | r: Reserve | u: Release | c: Terminate | q: Quit"
	footerContent := helpText
	if m.version != "" {
		gap := m.width - 6 - lipgloss.Width(helpText) - lipgloss.Width(m.version)
		if gap > 0 {
			footerContent = helpText + strings.Repeat(" ", gap) + m.version
		}
	}

	return outerStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Center, headerComponents...),
			lipgloss.NewStyle().Height(1).Render(""),
			status,
			m.input.View(),
			lipgloss.NewStyle().Height(1).Render(""),
			m.table.View(),
			footerStyle.Width(m.width-4).Render(footerContent),
		),
	)
}
