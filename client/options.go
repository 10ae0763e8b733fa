package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/esl/protocol"
)

const (
	DefaultCommandTimeout = 5 * time.Second
	DefaultConnectTimeout = 25 * time.Second
	DefaultPollInterval   = 2 * time.Second
	DefaultEventQueueSize = 1000
)

type options struct {
	log *zap.Logger

	commandTimeout  time.Duration
	livenessTimeout time.Duration
	connectTimeout  time.Duration
	pollInterval    time.Duration

	eventQueueSize int
	maxBufferSize  int
	maxMessageSize int
}

// Option configures a Client.
type Option func(*options)

func defaultOptions() options {
	return options{
		log:            zap.NewNop(),
		commandTimeout: DefaultCommandTimeout,
		connectTimeout: DefaultConnectTimeout,
		pollInterval:   DefaultPollInterval,
		eventQueueSize: DefaultEventQueueSize,
		maxBufferSize:  protocol.DefaultMaxBufferSize,
		maxMessageSize: protocol.DefaultMaxMessageSize,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the logger, the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithCommandTimeout bounds how long a command waits for its reply.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.commandTimeout = d
		}
	}
}

// WithLivenessTimeout disconnects once nothing has been received for d.
// Zero disables the check.
func WithLivenessTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.livenessTimeout = d
		}
	}
}

// WithConnectTimeout bounds dialing and the authentication handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithPollInterval sets how often the reader wakes to check liveness.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithEventQueueSize bounds the number of undelivered events. Events
// arriving while the queue is full are dropped.
func WithEventQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventQueueSize = n
		}
	}
}

// WithBufferLimits overrides the parser limits on buffered bytes and on
// the size of a single message.
func WithBufferLimits(maxBuffer, maxMessage int) Option {
	return func(o *options) {
		if maxBuffer > 0 {
			o.maxBufferSize = maxBuffer
		}
		if maxMessage > 0 {
			o.maxMessageSize = maxMessage
		}
	}
}
