package conntrack

import "fmt"

// State is a connection's position in the TCP state machine spec.md §4.9
// defines for protocol validation. The zero value, New, is the state a
// freshly inserted entry starts in.
type State int32

const (
	New State = iota
	SynSent
	SynRecv
	Established
	FinWait
	Closed
	TimeWait
	Rst
)

var stateName = map[State]string{
	New:         "NEW",
	SynSent:     "SYN_SENT",
	SynRecv:     "SYN_RECV",
	Established: "ESTABLISHED",
	FinWait:     "FIN_WAIT",
	Closed:      "CLOSED",
	TimeWait:    "TIME_WAIT",
	Rst:         "RST",
}

// String renders the state's name, or a placeholder for an unrecognized
// value (defensive: State is a plain int32, not a closed Go type).
func (s State) String() string {
	if name, ok := stateName[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_STATE_%d", int32(s))
}
