package app

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pranshuparmar/portman/internal/errors"
	"github.com/pranshuparmar/portman/internal/logging"
	"github.com/pranshuparmar/portman/internal/output"
	"github.com/pranshuparmar/portman/internal/query"
	"github.com/pranshuparmar/portman/pkg/model"
)

type listOptions struct {
	query     string
	protocol  string
	state     string
	portStart string
	portEnd   string
	tags      []string
	user      string
	json      bool
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List open sockets",
		Long: `List the sockets open on this machine with their owning process.

All filters must hold for a socket to be listed. Port bounds are inclusive
and either may be omitted.`,
		Example: `  portman list --protocol tcp --state listen
  portman list --port-start 1024 --port-end 2048 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.query, "query", "q", "", "Match process names containing this text")
	f.StringVar(&opts.protocol, "protocol", "", "Only this protocol (tcp or udp)")
	f.StringVar(&opts.state, "state", "", "Only sockets in this state, e.g. LISTEN")
	f.StringVar(&opts.portStart, "port-start", "", "Lowest local port")
	f.StringVar(&opts.portEnd, "port-end", "", "Highest local port")
	f.StringSliceVar(&opts.tags, "tag", nil, "Require this tag (repeatable)")
	f.StringVar(&opts.user, "user", "", "Only sockets owned by this user")
	f.BoolVar(&opts.json, "json", false, "Output as JSON")
	return cmd
}

// predicate builds the filter through the same parser the HTTP API uses.
func (o listOptions) predicate() (query.Predicate, error) {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("query", o.query)
	set("protocol", o.protocol)
	set("state", o.state)
	set("port_start", o.portStart)
	set("port_end", o.portEnd)
	set("user", o.user)
	if len(o.tags) > 0 {
		v.Set("tags", strings.Join(o.tags, ","))
	}
	return query.ParsePredicate(v)
}

func (a *app) runList(opts listOptions) error {
	p, err := opts.predicate()
	if err != nil {
		return errors.InvalidInput(err.Error())
	}

	inv, l, err := a.open()
	if err != nil {
		return err
	}

	snap, err := inv.Snapshot()
	if err != nil {
		logging.UserWarning("Socket table incomplete: %v", err)
	}
	records := inv.Filter(snap, p)

	if opts.json {
		return a.printJSON(records)
	}
	output.RenderPorts(a.stdout, records, l.All(), a.colorEnabled())
	return nil
}

type statusResult struct {
	Port     uint16             `json:"port"`
	Reserved bool               `json:"reserved"`
	Service  string             `json:"service,omitempty"`
	Sockets  []model.PortRecord `json:"sockets"`
}

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <port>",
		Short: "Show whether a port is reserved and what is bound to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func (a *app) runStatus(arg string, asJSON bool) error {
	port, err := query.ParsePort(arg)
	if err != nil {
		return errors.InvalidInput(err.Error())
	}

	inv, l, err := a.open()
	if err != nil {
		return err
	}

	snap, err := inv.Snapshot()
	if err != nil {
		logging.UserWarning("Socket table incomplete: %v", err)
	}
	sockets := inv.Filter(snap, query.Predicate{PortStart: &port, PortEnd: &port})
	service, reserved := l.Service(port)

	if asJSON {
		return a.printJSON(statusResult{Port: port, Reserved: reserved, Service: service, Sockets: sockets})
	}
	output.PrintStatus(a.stdout, port, service, reserved, sockets, a.colorEnabled())
	return nil
}
