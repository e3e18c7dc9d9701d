package phase

// Phase is an ordered stage of session startup. Phases only move forward
// within one process lifetime.
type Phase int

const (
	// PreNetwork is the phase before the session starts
	PreNetwork Phase = iota
	// WaitingForNetwork is the phase while the transport comes up
	WaitingForNetwork
	// NetworkReady is the phase right after the transport is established
	NetworkReady
	// WaitingForSpawn is the phase while the local player entity appears
	WaitingForSpawn
	// PostNetwork is the phase after the local player is fully represented
	PostNetwork
	// Complete is the final phase; all subsystems may run
	Complete
)

func (p Phase) String() string {
	switch p {
	case PreNetwork:
		return "PreNetwork"
	case WaitingForNetwork:
		return "WaitingForNetwork"
	case NetworkReady:
		return "NetworkReady"
	case WaitingForSpawn:
		return "WaitingForSpawn"
	case PostNetwork:
		return "PostNetwork"
	case Complete:
		return "Complete"
	}
	return "InvalidPhase"
}
