package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind categorises failures so callers can decide between reconnecting and
// retrying without matching on every variant.
type ErrorKind int

const (
	// ErrKindIO is a transport failure on the underlying socket.
	ErrKindIO ErrorKind = iota
	// ErrKindNotConnected is an operation attempted after the connection was torn down.
	ErrKindNotConnected
	// ErrKindConnectionClosed is the remote closing the connection.
	ErrKindConnectionClosed
	// ErrKindAuthFailed is a rejected authentication handshake.
	ErrKindAuthFailed
	// ErrKindProtocol is malformed framing. The stream cannot be resynchronised.
	ErrKindProtocol
	// ErrKindInvalidHeader is a header line without a separator or an unparsable length.
	ErrKindInvalidHeader
	// ErrKindCommandFailed is a -ERR reply to a command.
	ErrKindCommandFailed
	// ErrKindUnexpectedReply is a reply matching neither +OK nor -ERR.
	ErrKindUnexpectedReply
	// ErrKindTimeout is no reply within the command timeout.
	ErrKindTimeout
	// ErrKindHeartbeatExpired is no traffic within the liveness window.
	ErrKindHeartbeatExpired
	// ErrKindBufferOverflow is too many unparsed bytes accumulated.
	ErrKindBufferOverflow
	// ErrKindQueueFull is events dropped because the consumer fell behind.
	ErrKindQueueFull
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindIO:
		return "io error"
	case ErrKindNotConnected:
		return "not connected"
	case ErrKindConnectionClosed:
		return "connection closed"
	case ErrKindAuthFailed:
		return "authentication failed"
	case ErrKindProtocol:
		return "protocol error"
	case ErrKindInvalidHeader:
		return "invalid header"
	case ErrKindCommandFailed:
		return "command failed"
	case ErrKindUnexpectedReply:
		return "unexpected reply"
	case ErrKindTimeout:
		return "timed out"
	case ErrKindHeartbeatExpired:
		return "heartbeat expired"
	case ErrKindBufferOverflow:
		return "buffer overflow"
	case ErrKindQueueFull:
		return "event queue full"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// Sentinel errors, one per kind. Use errors.Is against these; any *Error of the
// same kind matches.
var (
	ErrIO               = &Error{Kind: ErrKindIO}
	ErrNotConnected     = &Error{Kind: ErrKindNotConnected}
	ErrConnectionClosed = &Error{Kind: ErrKindConnectionClosed}
	ErrAuthFailed       = &Error{Kind: ErrKindAuthFailed}
	ErrProtocol         = &Error{Kind: ErrKindProtocol}
	ErrInvalidHeader    = &Error{Kind: ErrKindInvalidHeader}
	ErrCommandFailed    = &Error{Kind: ErrKindCommandFailed}
	ErrUnexpectedReply  = &Error{Kind: ErrKindUnexpectedReply}
	ErrTimeout          = &Error{Kind: ErrKindTimeout}
	ErrHeartbeatExpired = &Error{Kind: ErrKindHeartbeatExpired}
	ErrBufferOverflow   = &Error{Kind: ErrKindBufferOverflow}
	ErrQueueFull        = &Error{Kind: ErrKindQueueFull}
)

// Error is the single error type produced by the protocol engine.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// IsConnectionError reports whether the connection is gone and the caller
// must reconnect. Auth failures and a corrupt or oversized stream end the
// connection too.
func (e *Error) IsConnectionError() bool {
	switch e.Kind {
	case ErrKindIO, ErrKindNotConnected, ErrKindConnectionClosed, ErrKindHeartbeatExpired,
		ErrKindAuthFailed, ErrKindProtocol, ErrKindInvalidHeader, ErrKindBufferOverflow:
		return true
	default:
		return false
	}
}

// IsRecoverable reports whether the connection remains usable after this error.
func (e *Error) IsRecoverable() bool {
	switch e.Kind {
	case ErrKindTimeout, ErrKindCommandFailed, ErrKindUnexpectedReply, ErrKindQueueFull:
		return true
	default:
		return false
	}
}

// IsConnectionError reports whether err, or anything it wraps, is a
// connection-level *Error.
func IsConnectionError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsConnectionError()
	}

	return false
}

// IsRecoverable reports whether err, or anything it wraps, is an *Error the
// connection survives.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRecoverable()
	}

	return false
}
