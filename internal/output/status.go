package output

import (
	"fmt"
	"io"

	"github.com/pranshuparmar/portman/pkg/model"
)

var (
	colorReset   = "\033[0m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorDim     = "\033[2m"
)

// maxStatusSockets caps how many live sockets PrintStatus lists.
const maxStatusSockets = 10

// PrintStatus writes the reservation state of port followed by the live
// sockets bound to it, as a small tree.
func PrintStatus(w io.Writer, port uint16, service string, reserved bool, sockets []model.PortRecord, colorEnabled bool) {
	reset, magenta, green, dim := "", "", "", ""
	if colorEnabled {
		reset, magenta, green, dim = colorReset, colorMagenta, colorGreen, colorDim
	}

	if reserved {
		fmt.Fprintf(w, "Port %d %s(reserved by %s)%s\n", port, green, service, reset)
	} else {
		fmt.Fprintf(w, "Port %d %s(not reserved)%s\n", port, dim, reset)
	}

	if len(sockets) == 0 {
		fmt.Fprintf(w, "  %s└─ %sno live sockets\n", magenta, reset)
		return
	}

	count := len(sockets)
	for i, s := range sockets {
		if i >= maxStatusSockets {
			fmt.Fprintf(w, "  %s└─ %s... and %d more\n", magenta, reset, count-maxStatusSockets)
			break
		}

		connector := "├─ "
		if i == count-1 || (i == maxStatusSockets-1 && count <= maxStatusSockets) {
			connector = "└─ "
		}

		fmt.Fprintf(w, "  %s%s%s%s %s -> %s %s  %s (%spid %s%s)\n",
			magenta, connector, reset,
			s.Protocol, s.LocalAddress, s.RemoteAddress, s.State,
			s.ProcessLabel(), dim, s.PIDString(), reset)

		if note, ok := lingeringNote(s.State); ok {
			indent := "│  "
			if connector == "└─ " {
				indent = "   "
			}
			fmt.Fprintf(w, "  %s%s%s   %s%s%s\n", magenta, indent, reset, dim, note.explanation, reset)
			if note.workaround != "" {
				fmt.Fprintf(w, "  %s%s%s   %s%s%s\n", magenta, indent, reset, dim, note.workaround, reset)
			}
		}
	}
}
