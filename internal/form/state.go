package form

// State is the lifecycle state of a workload entry
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateEditing
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateEditing:
		return "editing"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}
