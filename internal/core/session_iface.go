package core

type SessionID string

// SendResult is the outcome of a single delivery attempt to one user.
type SendResult int

const (
	Delivered SendResult = iota
	NotConnected
	TransportError
	// Dropped: the frame was discarded by policy, the session stays bound.
	Dropped
)

func (r SendResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case NotConnected:
		return "not_connected"
	case TransportError:
		return "transport_error"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}
