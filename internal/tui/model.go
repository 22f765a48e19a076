package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pranshuparmar/portman/pkg/model"
)

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#585858")) // Dark Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")). // White
			Background(lipgloss.Color("#7D56F4")). // Purple
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
				Bold(true).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				BorderForeground(lipgloss.Color("#585858")). // Dark Gray
				Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676")). // Dimmed Gray
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("#585858")). // Dark Gray
			Padding(0, 1).
			Width(100)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")). // White
			Background(lipgloss.Color("#22aa22")). // Green
			Padding(0, 1).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5f5f")). // Soft red
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5fd75f")). // Green
		Bold(true)

	confirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffaf5f")). // Orange-amber
			Bold(true)
)

// Inventory is what the dashboard reads the socket table through.
type Inventory interface {
	Snapshot() (model.Snapshot, error)
}

// Ledger is what the dashboard reserves ports through.
type Ledger interface {
	Reserve(port uint16, service string) error
	Release(port uint16) error
	All() map[uint16]string
}

type Options struct {
	Inventory Inventory
	Ledger    Ledger
	Refresh   time.Duration
	Version   string
}

type sortKey int

const (
	sortPort sortKey = iota
	sortProcess
	sortProtocol
	sortState
	sortKeyCount
)

func (k sortKey) String() string {
	switch k {
	case sortProcess:
		return "process"
	case sortProtocol:
		return "protocol"
	case sortState:
		return "state"
	default:
		return "port"
	}
}

type actionKind int

const (
	actionNone actionKind = iota
	actionTerm            // SIGTERM
)

type MainModel struct {
	table    table.Model
	input    textinput.Model
	records  []model.PortRecord
	filtered []model.PortRecord
	reserved map[uint16]string

	inventory Inventory
	ledger    Ledger
	refresh   time.Duration
	version   string

	statusMsg string // transient result of the last action
	statusErr bool
	readErr   error // last socket table failure; the table still shows what was read
	width     int
	height    int
	quitting  bool

	sortKey  sortKey
	sortDesc bool

	// Mouse double-click tracking
	lastClickTime time.Time
	lastClickY    int

	pendingAction actionKind
	pendingPID    int

	// terminate is replaced in tests.
	terminate func(pid int) error
}

func InitialModel(opts Options) MainModel {
	t := table.New(
		table.WithColumns(baseColumns()),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	s := table.DefaultStyles()
	s.Header = tableHeaderStyle.BorderForeground(lipgloss.Color("#585858"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffaf")). // Light Yellow
		Background(lipgloss.Color("#5f00d7")). // Purple
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "Search process, address, state..."
	ti.CharLimit = 156
	ti.Width = 50
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.Blur()

	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = 2 * time.Second
	}

	return MainModel{
		table:     t,
		input:     ti,
		reserved:  map[uint16]string{},
		inventory: opts.Inventory,
		ledger:    opts.Ledger,
		refresh:   refresh,
		version:   opts.Version,
		sortKey:   sortPort,
		terminate: termProcess,
	}
}

func Start(opts Options) error {
	if os.Getenv("COLORTERM") == "" {
		os.Setenv("COLORTERM", "truecolor") //nolint:errcheck
	}

	p := tea.NewProgram(InitialModel(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running tui: %w", err)
	}
	return nil
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.refreshPorts(),
		m.waitTick(),
	)
}
