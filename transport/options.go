package transport

import (
	"go.uber.org/zap"

	"github.com/luma/esl/client"
	"github.com/luma/esl/storage"
)

// DefaultMaxSessions bounds concurrently served outbound sessions.
const DefaultMaxSessions = 256

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on, 0 picks a free port (see Server.Addr)
	Port int

	// Reuseport controls setting SO_REUSEPORT, which lets NumListeners
	// listeners share the port
	Reuseport bool

	NumListeners int

	// MaxSessions caps concurrent sessions, connections past the cap are
	// closed immediately
	MaxSessions int

	// Connect sends "connect" before handing the session over, which fills
	// in Session.Channel
	Connect bool

	Handler SessionHandler

	// Store, when set, is fed the channel data of every connected session
	Store storage.Store

	ClientOptions []client.Option

	Log *zap.Logger
}
