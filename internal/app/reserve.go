package app

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pranshuparmar/portman/internal/errors"
	"github.com/pranshuparmar/portman/internal/ledger"
	"github.com/pranshuparmar/portman/internal/logging"
	"github.com/pranshuparmar/portman/internal/output"
	"github.com/pranshuparmar/portman/internal/query"
)

func newReserveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reserve <port> <service>",
		Short: "Reserve a free port for a service",
		Long: `Reserve a port for a named service.

The port must not already be reserved and must not be bound by any live
socket. The reservation is saved to the ledger file immediately.`,
		Example: `  portman reserve 9090 api`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReserve(args[0], strings.Join(args[1:], " "))
		},
	}
}

func (a *app) runReserve(portArg, service string) error {
	port, err := query.ParsePort(portArg)
	if err != nil {
		return errors.InvalidInput(err.Error())
	}

	_, l, err := a.open()
	if err != nil {
		return err
	}

	if err := l.Reserve(port, service); err != nil {
		if !errors.Is(err, ledger.ErrPersistence) {
			return errors.FromLedger(err)
		}
		logging.UserWarning("Reservation kept for this run only: %v", err)
	}
	logging.UserSuccess("Port %d reserved for %s", port, service)
	return nil
}

func newReleaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "release <port>",
		Aliases: []string{"unreserve"},
		Short:   "Release a reserved port",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRelease(args[0])
		},
	}
}

func (a *app) runRelease(portArg string) error {
	port, err := query.ParsePort(portArg)
	if err != nil {
		return errors.InvalidInput(err.Error())
	}

	_, l, err := a.open()
	if err != nil {
		return err
	}

	service, _ := l.Service(port)
	if err := l.Release(port); err != nil {
		if !errors.Is(err, ledger.ErrPersistence) {
			return errors.FromLedger(err)
		}
		logging.UserWarning("Release applies to this run only: %v", err)
	}
	logging.UserSuccess("Port %d released (was %s)", port, service)
	return nil
}

func newReservationsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "List reserved ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, l, err := a.open()
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(l.All())
			}
			output.RenderReservations(a.stdout, l.Reservations(), a.colorEnabled())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
