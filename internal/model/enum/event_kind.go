package enum

// EventKind describes the meaning of a normalized event.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventSnapshot
	EventDelta
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventDelta:
		return "delta"
	default:
		return "unknown"
	}
}
