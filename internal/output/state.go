package output

// stateNote describes what a TCP state means for whoever wants the port.
type stateNote struct {
	explanation string
	workaround  string
}

var stateNotes = map[string]stateNote{
	"TIME_WAIT": {
		explanation: "Connection closed, waiting for delayed packets",
		workaround:  "Wait for timeout (usually 60s) or bind with SO_REUSEADDR",
	},
	"CLOSE_WAIT": {
		explanation: "Remote side closed connection, local side has not closed yet",
		workaround:  "The owning process should close the socket",
	},
	"FIN_WAIT1": {explanation: "Local side initiated close, waiting for acknowledgment"},
	"FIN_WAIT2": {explanation: "Local close acknowledged, waiting for remote close"},
	"CLOSING":   {explanation: "Both sides initiated close simultaneously"},
	"LAST_ACK":  {explanation: "Waiting for final acknowledgment of close"},
}

// lingeringNote returns the note for states that keep a port busy after its
// owner is done with it. Healthy states have none.
func lingeringNote(state string) (stateNote, bool) {
	n, ok := stateNotes[state]
	return n, ok
}
