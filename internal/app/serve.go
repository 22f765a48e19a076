package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranshuparmar/portman/internal/api"
	"github.com/pranshuparmar/portman/internal/logging"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory and ledger over HTTP",
		Long: `Serve the socket inventory and the reservation ledger as a JSON API.

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	return cmd
}

func (a *app) runServe(ctx context.Context, addr string) error {
	inv, l, err := a.open()
	if err != nil {
		return err
	}

	logger := logging.With("component", "api")
	srv := api.NewServer(addr, api.NewHandler(inv, l, logger), logger)
	return srv.Run(ctx)
}
