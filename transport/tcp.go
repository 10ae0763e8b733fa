package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/esl/client"
	"github.com/luma/esl/protocol"
	"github.com/luma/esl/storage"
)

// Session is one call the switch handed to us over an outbound socket.
type Session struct {
	Client *client.Client
	Events *client.EventStream

	// Channel holds the channel data returned by connect, nil unless
	// Options.Connect is set.
	Channel *protocol.Event
}

// UUID returns the session's channel UUID, empty before connect.
func (s *Session) UUID() string {
	if s.Channel == nil {
		return ""
	}

	return s.Channel.UniqueID()
}

// SessionHandler drives a session. The connection is closed once it returns.
type SessionHandler func(ctx context.Context, s *Session) error

// Server accepts outbound event socket connections and runs a
// SessionHandler for each on a bounded worker pool.
type Server struct {
	cancel        context.CancelFunc
	stopWaiter    sync.WaitGroup
	sessionWaiter sync.WaitGroup

	addr         string
	reuseport    bool
	numListeners int
	maxSessions  int
	connect      bool

	handler    SessionHandler
	store      storage.Store
	clientOpts []client.Option
	pool       *ants.Pool

	mu        sync.Mutex
	listeners []net.Listener
	sessions  map[*client.Client]struct{}

	log *zap.Logger
}

func NewServer(options Options) *Server {
	numListeners := options.NumListeners
	if numListeners < 1 || !options.Reuseport {
		numListeners = 1
	}

	maxSessions := options.MaxSessions
	if maxSessions < 1 {
		maxSessions = DefaultMaxSessions
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		reuseport:    options.Reuseport,
		numListeners: numListeners,
		maxSessions:  maxSessions,
		connect:      options.Connect,
		handler:      options.Handler,
		store:        options.Store,
		clientOpts:   options.ClientOptions,
		sessions:     make(map[*client.Client]struct{}),
		log:          log,
	}
}

// Start binds every listener before returning, then accepts in the
// background until ctx is cancelled or Close is called.
func (s *Server) Start(parentCtx context.Context) error {
	if s.handler == nil {
		return errors.New("transport: no session handler")
	}

	pool, err := ants.NewPool(s.maxSessions, ants.WithNonblocking(true))
	if err != nil {
		return fmt.Errorf("failed to create session pool: %w", err)
	}
	s.pool = pool

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	s.log.Info("Starting outbound listeners",
		zap.Int("count", s.numListeners),
		zap.Int("maxSessions", s.maxSessions))

	addr := s.addr
	for i := 0; i < s.numListeners; i++ {
		listener, err := s.listen(addr)
		if err != nil {
			cancel()
			return multierr.Append(fmt.Errorf("failed to listen on %s: %w", addr, err), s.closeListeners())
		}

		// Later listeners join the port the first one was given.
		addr = listener.Addr().String()

		s.mu.Lock()
		s.listeners = append(s.listeners, listener)
		s.mu.Unlock()

		s.stopWaiter.Add(1)
		go func(i int, listener net.Listener) {
			defer s.stopWaiter.Done()
			s.acceptLoop(ctx, listener, s.log.Named("listener").With(zap.Int("listener", i)))
		}(i, listener)
	}

	go func() {
		<-ctx.Done()
		if err := s.closeListeners(); err != nil {
			s.log.Warn("Listeners did not close cleanly", zap.Error(err))
		}
	}()

	return nil
}

func (s *Server) listen(addr string) (net.Listener, error) {
	if s.reuseport {
		return reuseport.Listen("tcp", addr)
	}

	return net.Listen("tcp", addr)
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.listeners) == 0 {
		return nil
	}

	return s.listeners[0].Addr()
}

// Sessions returns the number of sessions being served.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Close stops accepting, disconnects every session and waits for their
// handlers to return.
func (s *Server) Close() error {
	if s.cancel == nil {
		return nil
	}

	s.log.Info("Stopping outbound server")
	s.cancel()

	err := s.closeListeners()
	s.stopWaiter.Wait()

	s.mu.Lock()
	sessions := make([]*client.Client, 0, len(s.sessions))
	for c := range s.sessions {
		sessions = append(sessions, c)
	}
	s.mu.Unlock()

	for _, c := range sessions {
		err = multierr.Append(err, c.Disconnect())
	}

	s.sessionWaiter.Wait()
	s.pool.Release()

	s.log.Info("Outbound server stopped")

	return err
}

func (s *Server) closeListeners() error {
	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()

	var err error
	for _, listener := range listeners {
		if cerr := listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}

	return err
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener, log *zap.Logger) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				log.Info("Stopped accepting new connections")
				return
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			log.Error("Failed to accept", zap.Error(err))
			return
		}

		s.sessionWaiter.Add(1)
		err = s.pool.Submit(func() {
			defer s.sessionWaiter.Done()
			s.serve(ctx, conn, log)
		})

		if err != nil {
			s.sessionWaiter.Done()

			log.Warn("Refusing session",
				zap.Stringer("remote", conn.RemoteAddr()),
				zap.Error(err))
			conn.Close()
		}
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn, log *zap.Logger) {
	log = log.With(zap.Stringer("remote", conn.RemoteAddr()))

	c, events := client.NewOutbound(conn, s.clientOpts...)
	s.addSession(c)

	defer func() {
		s.removeSession(c)

		if err := c.Disconnect(); err != nil {
			log.Debug("Session did not close cleanly", zap.Error(err))
		}
	}()

	session := &Session{Client: c, Events: events}

	if s.connect {
		channel, err := c.ConnectSession(ctx)
		if err != nil {
			log.Warn("Failed to connect session", zap.Error(err))
			return
		}

		session.Channel = channel
		log = log.With(zap.String("uuid", session.UUID()))

		if s.store != nil {
			if err := s.store.Apply(ctx, channel); err != nil {
				log.Warn("Failed to track channel", zap.Error(err))
			}
		}
	}

	log.Debug("Serving session")

	if err := s.handler(ctx, session); err != nil {
		log.Warn("Session handler failed", zap.Error(err))
	}
}

func (s *Server) addSession(c *client.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[c] = struct{}{}
}

func (s *Server) removeSession(c *client.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, c)
}
