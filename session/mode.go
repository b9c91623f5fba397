package session

// Mode is the recording state of a session. Repeating and Recording are
// mutually exclusive.
type Mode int

const (
	Idle Mode = iota
	Repeating
	Recording
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Repeating:
		return "repeating"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}
