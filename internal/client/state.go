package client

// State is where a Controller is in its session lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	AwaitingHandshake
	Streaming
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingHandshake:
		return "awaiting-handshake"
	case Streaming:
		return "streaming"
	case Failed:
		return "error"
	case Closed:
		return "closed"
	}
	return "unknown"
}
