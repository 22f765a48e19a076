package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pranshuparmar/portman/internal/logging"
	"github.com/pranshuparmar/portman/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}
}

// runTUI moves logging off the terminal before opening the dashboard.
func (a *app) runTUI() error {
	if a.cfg.Log.File != "" {
		f, err := os.OpenFile(a.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logging.Setup(a.cfg.Log.Verbose, a.cfg.Log.JSON, f)
	} else {
		logging.Discard()
	}

	inv, l, err := a.open()
	if err != nil {
		return err
	}

	return tui.Start(tui.Options{
		Inventory: inv,
		Ledger:    l,
		Refresh:   a.cfg.Refresh(),
		Version:   versionString,
	})
}
