package client

import "fmt"

// State is the lifecycle stage of a connection.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// DisconnectReason says why a connection reached StateDisconnected.
type DisconnectReason int

const (
	ReasonNone DisconnectReason = iota
	// ReasonServerNotice is a text/disconnect-notice from the switch.
	ReasonServerNotice
	// ReasonConnectionClosed is the remote closing the socket.
	ReasonConnectionClosed
	// ReasonIOError is a failed read or write.
	ReasonIOError
	// ReasonHeartbeatExpired is the liveness window elapsing without traffic.
	ReasonHeartbeatExpired
	// ReasonProtocolError is an unparsable stream.
	ReasonProtocolError
	// ReasonClientRequested is a call to Disconnect.
	ReasonClientRequested
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonServerNotice:
		return "server notice"
	case ReasonConnectionClosed:
		return "connection closed"
	case ReasonIOError:
		return "io error"
	case ReasonHeartbeatExpired:
		return "heartbeat expired"
	case ReasonProtocolError:
		return "protocol error"
	case ReasonClientRequested:
		return "client requested"
	default:
		return "none"
	}
}

// Status is a snapshot of the connection state. Reason and Err are only set
// once disconnected.
type Status struct {
	State  State
	Reason DisconnectReason
	Err    error
}

func (s Status) String() string {
	if s.State != StateDisconnected {
		return s.State.String()
	}

	if s.Err != nil {
		return fmt.Sprintf("disconnected (%s: %v)", s.Reason, s.Err)
	}

	return fmt.Sprintf("disconnected (%s)", s.Reason)
}
