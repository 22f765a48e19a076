// Package app wires the portman command tree.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pranshuparmar/portman/internal/config"
	"github.com/pranshuparmar/portman/internal/errors"
	"github.com/pranshuparmar/portman/internal/inventory"
	"github.com/pranshuparmar/portman/internal/ledger"
	"github.com/pranshuparmar/portman/internal/logging"
	"github.com/pranshuparmar/portman/internal/output"
	"github.com/pranshuparmar/portman/internal/query"
	"github.com/pranshuparmar/portman/internal/store"
	"github.com/pranshuparmar/portman/pkg/model"
)

var versionString = "dev"

// SetVersionBuildCommitString records the build metadata shown by --version.
func SetVersionBuildCommitString(version, commit, buildDate string) {
	if version == "" {
		version = "dev"
	}
	versionString = version
	if commit != "" {
		versionString += " (" + commit
		if buildDate != "" {
			versionString += ", built " + buildDate
		}
		versionString += ")"
	}
}

// Inventory is the socket table as the commands see it.
type Inventory interface {
	Snapshot() (model.Snapshot, error)
	Filter(model.Snapshot, query.Predicate) []model.PortRecord
	PortInUse(port uint16) (bool, error)
}

type globalFlags struct {
	configPath string
	ledgerPath string
	verbose    bool
	logJSON    bool
	logFile    string
	ephemeral  bool
	noColor    bool
}

type app struct {
	flags globalFlags
	cfg   *config.Config

	stdout io.Writer

	// newInventory is replaced in tests.
	newInventory func(procRoot string, logger *slog.Logger) Inventory
}

func newApp() *app {
	return &app{
		stdout: os.Stdout,
		newInventory: func(procRoot string, logger *slog.Logger) Inventory {
			return inventory.NewSystem(procRoot, logger)
		},
	}
}

// Execute runs the command tree and exits with the error's exit code.
func Execute() {
	root := newRootCmd(newApp())
	if err := root.Execute(); err != nil {
		logging.UserError("%v", err)
		os.Exit(errors.GetExitCode(err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "portman",
		Short: "Inspect local sockets and reserve ports",
		Long: `portman lists the sockets open on this machine, shows which process owns
each one, and keeps a ledger of ports reserved for named services.

Without a subcommand it opens the interactive dashboard.`,
		Version:       versionString,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file (default $"+config.EnvConfig+")")
	pf.StringVar(&a.flags.ledgerPath, "ledger", "", "Reservation ledger file; the extension selects the format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVar(&a.flags.logJSON, "log-json", false, "Output logs in JSON format")
	pf.StringVar(&a.flags.logFile, "log-file", "", "Write logs to this file while the dashboard is open")
	pf.BoolVar(&a.flags.ephemeral, "ephemeral", false, "Keep reservations in memory only")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "Disable colorized output")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newTUICmd(a),
		newListCmd(a),
		newStatusCmd(a),
		newReserveCmd(a),
		newReleaseCmd(a),
		newReservationsCmd(a),
		newServeCmd(a),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return errors.ConfigError("loading config", err)
	}
	if a.flags.ledgerPath != "" {
		cfg.LedgerPath = a.flags.ledgerPath
	}
	if a.flags.verbose {
		cfg.Log.Verbose = true
	}
	if a.flags.logJSON {
		cfg.Log.JSON = true
	}
	if a.flags.logFile != "" {
		cfg.Log.File = a.flags.logFile
	}
	if err := cfg.Validate(); err != nil {
		return errors.ConfigError("invalid config", err)
	}

	a.cfg = cfg
	logging.Setup(cfg.Log.Verbose, cfg.Log.JSON, os.Stderr)
	return nil
}

// open builds the inventory and a loaded ledger using the current logger.
func (a *app) open() (Inventory, *ledger.Ledger, error) {
	logger := logging.Logger
	inv := a.newInventory(a.cfg.ProcRoot, logger)

	var s store.Store
	if a.flags.ephemeral {
		s = store.NewMemoryStore()
	} else {
		fileStore, err := store.NewFileStore(a.cfg.LedgerPath)
		if err != nil {
			return nil, nil, errors.ConfigError("ledger_path", err)
		}
		s = fileStore
	}

	l := ledger.New(inv, ledger.WithStore(s), ledger.WithLogger(logger))
	if err := l.Load(); err != nil {
		return nil, nil, errors.PersistenceError("loading ledger", err)
	}
	logger.Debug("ledger loaded", "path", a.cfg.LedgerPath, "reservations", len(l.All()), "ephemeral", a.flags.ephemeral)
	return inv, l, nil
}

func (a *app) colorEnabled() bool {
	if a.flags.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := a.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) printJSON(v any) error {
	out, err := output.ToJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, out)
	return err
}
