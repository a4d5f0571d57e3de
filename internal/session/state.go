package session

// State is the protocol state of one session.
type State uint8

const (
	AwaitingRequest State = iota
	Processing
	SendingResponse
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingRequest:
		return "awaiting_request"
	case Processing:
		return "processing"
	case SendingResponse:
		return "sending_response"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// allowed lists the legal transitions.
var allowed = map[State][]State{
	AwaitingRequest: {Processing, Closed},
	Processing:      {SendingResponse, Closed},
	SendingResponse: {Closed},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
