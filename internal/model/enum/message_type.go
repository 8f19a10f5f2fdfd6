package enum

// MessageType discriminates raw feed messages.
type MessageType uint8

const (
	MessageUnknown MessageType = iota
	MessageSnapshot
	MessageDelta
)

// Shoonya touchline wire tags.
const (
	wireSnapshot = "tk"
	wireDelta    = "tf"
)

// MessageTypeFromWire maps the wire "t" tag to a MessageType.
func MessageTypeFromWire(tag string) MessageType {
	switch tag {
	case wireSnapshot:
		return MessageSnapshot
	case wireDelta:
		return MessageDelta
	default:
		return MessageUnknown
	}
}

func (t MessageType) IsAvailable() bool {
	return t == MessageSnapshot || t == MessageDelta
}

func (t MessageType) Wire() string {
	switch t {
	case MessageSnapshot:
		return wireSnapshot
	case MessageDelta:
		return wireDelta
	default:
		return ""
	}
}

func (t MessageType) String() string {
	switch t {
	case MessageSnapshot:
		return "snapshot"
	case MessageDelta:
		return "delta"
	default:
		return "unknown"
	}
}
