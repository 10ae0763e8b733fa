package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/esl/protocol"
)

// Mode is the direction of the event socket.
type Mode int

const (
	// ModeInbound is a client that dialed the switch and authenticated.
	ModeInbound Mode = iota
	// ModeOutbound is a connection the switch made to us for one channel.
	ModeOutbound
)

func (m Mode) String() string {
	if m == ModeOutbound {
		return "outbound"
	}

	return "inbound"
}

type reply struct {
	msg *protocol.Message
}

// Client is a command handle on an event socket connection. It is safe for
// concurrent use, commands are sent one at a time in call order.
type Client struct {
	conn net.Conn
	mode Mode
	opts options

	// exchange admits a single command between its write and its reply,
	// replies carry no correlation id
	exchange chan struct{}

	pendingMu sync.Mutex
	pending   chan reply

	commandTimeout  atomic.Int64
	livenessTimeout atomic.Int64
	lastActivity    atomic.Int64

	statusMu sync.RWMutex
	status   Status
	done     chan struct{}

	readerDone chan struct{}
	closeOnce  sync.Once
	closeErr   error

	log *zap.Logger
}

func newClient(conn net.Conn, mode Mode, o options) *Client {
	c := &Client{
		conn:     conn,
		mode:     mode,
		opts:     o,
		exchange: make(chan struct{}, 1),
		status:   Status{State: StateConnecting},
		done:     make(chan struct{}),
		log: o.log.Named("client").With(
			zap.String("mode", mode.String()),
			zap.String("remote", conn.RemoteAddr().String())),
	}

	c.commandTimeout.Store(int64(o.commandTimeout))
	c.livenessTimeout.Store(int64(o.livenessTimeout))
	c.touch()

	return c
}

// start marks the connection usable and hands the socket to the reader.
func (c *Client) start(p *protocol.Parser) *EventStream {
	events := newEventStream(c.opts.eventQueueSize, c.log)
	c.readerDone = make(chan struct{})

	c.setState(StateConnected)
	c.touch()

	go c.readLoop(p, events)

	return events
}

// Mode reports whether this is an inbound or outbound connection.
func (c *Client) Mode() Mode {
	return c.mode
}

// RemoteAddr returns the address of the switch.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Status returns a snapshot of the connection state.
func (c *Client) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()

	return c.status
}

// IsConnected reports whether commands can be sent.
func (c *Client) IsConnected() bool {
	return c.Status().State == StateConnected
}

// Done is closed once the connection is disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// CommandTimeout returns the current per-command reply timeout.
func (c *Client) CommandTimeout() time.Duration {
	return time.Duration(c.commandTimeout.Load())
}

// SetCommandTimeout changes the reply timeout for subsequent commands.
func (c *Client) SetCommandTimeout(d time.Duration) {
	if d > 0 {
		c.commandTimeout.Store(int64(d))
	}
}

// LivenessTimeout returns the current liveness window, zero when disabled.
func (c *Client) LivenessTimeout() time.Duration {
	return time.Duration(c.livenessTimeout.Load())
}

// SetLivenessTimeout disconnects the client once nothing has been received
// for d. The switch sends HEARTBEAT events every 20 seconds to subscribers,
// so a window somewhat above that detects dead peers. Zero disables it.
func (c *Client) SetLivenessTimeout(d time.Duration) {
	if d >= 0 {
		c.livenessTimeout.Store(int64(d))
	}
}

// SendCommand writes cmd and waits for its reply. Only one command is in
// flight at a time, concurrent callers queue in call order.
func (c *Client) SendCommand(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	if !c.IsConnected() {
		return nil, c.notConnected()
	}

	select {
	case c.exchange <- struct{}{}:
		defer func() { <-c.exchange }()

	case <-c.done:
		return nil, c.notConnected()

	case <-ctx.Done():
		return nil, protocol.NewError(protocol.ErrKindTimeout, "waiting to send", ctx.Err())
	}

	if !c.IsConnected() {
		return nil, c.notConnected()
	}

	wire := protocol.Marshal(cmd)
	verb := commandVerb(wire)
	timeout := c.CommandTimeout()

	replyChan := make(chan reply, 1)
	c.setPending(replyChan)

	if err := c.write(wire, timeout); err != nil {
		c.clearPending(replyChan)
		c.shutdown(ReasonIOError, err)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-replyChan:
		return protocol.NewResponse(r.msg.Headers, r.msg.Body), nil

	case <-timer.C:
		c.clearPending(replyChan)
		c.log.Warn("Command timed out", zap.String("command", verb), zap.Duration("timeout", timeout))
		return nil, protocol.NewError(protocol.ErrKindTimeout,
			fmt.Sprintf("no reply to %s within %s", verb, timeout), nil)

	case <-ctx.Done():
		c.clearPending(replyChan)
		return nil, protocol.NewError(protocol.ErrKindTimeout,
			fmt.Sprintf("waiting for reply to %s", verb), ctx.Err())

	case <-c.done:
		select {
		case r := <-replyChan:
			return protocol.NewResponse(r.msg.Headers, r.msg.Body), nil
		default:
		}

		c.clearPending(replyChan)
		return nil, c.closedError()
	}
}

// Disconnect closes the connection. It is safe to call more than once.
func (c *Client) Disconnect() error {
	if !c.markDisconnected(ReasonClientRequested, nil) {
		return nil
	}

	err := c.closeConn()

	if c.readerDone != nil {
		<-c.readerDone
	}

	return err
}

func (c *Client) write(wire string, timeout time.Duration) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return protocol.NewError(protocol.ErrKindIO, "set write deadline", err)
	}

	if _, err := io.WriteString(c.conn, wire); err != nil {
		return protocol.NewError(protocol.ErrKindIO, "write command", err)
	}

	return nil
}

func (c *Client) readLoop(p *protocol.Parser, events *EventStream) {
	log := c.log.Named("readLoop")

	defer close(c.readerDone)
	defer events.close()

	var readErr error
	buf := make([]byte, protocol.SocketBufferSize)

	for {
		// drain what is buffered before touching the socket again
		msg, err := p.ParseMessage()
		if err != nil {
			log.Error("Failed to parse message, closing connection", zap.Error(err))
			c.shutdown(ReasonProtocolError, err)
			return
		}

		if msg != nil {
			if !c.dispatch(msg, events) {
				return
			}
			continue
		}

		if readErr != nil {
			c.handleReadError(readErr)
			return
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.pollInterval)); err != nil {
			c.handleReadError(err)
			return
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.touch()

			if err := p.AddData(buf[:n]); err != nil {
				log.Error("Read buffer overflow, closing connection", zap.Error(err))
				c.shutdown(ReasonProtocolError, err)
				return
			}
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if c.livenessExpired() {
					log.Warn("No traffic within liveness window", zap.Duration("timeout", c.LivenessTimeout()))
					c.shutdown(ReasonHeartbeatExpired, protocol.NewError(protocol.ErrKindHeartbeatExpired,
						fmt.Sprintf("nothing received for %s", c.LivenessTimeout()), nil))
					return
				}
				continue
			}

			readErr = err
		}
	}
}

func (c *Client) handleReadError(err error) {
	if !c.IsConnected() {
		// closed by Disconnect
		return
	}

	if errors.Is(err, io.EOF) {
		c.log.Info("Connection closed by remote")
		c.shutdown(ReasonConnectionClosed,
			protocol.NewError(protocol.ErrKindConnectionClosed, "closed by remote", nil))
		return
	}

	c.log.Warn("Failed to read from socket", zap.Error(err))
	c.shutdown(ReasonIOError, protocol.NewError(protocol.ErrKindIO, "read", err))
}

// dispatch routes one message. It returns false once the reader should stop.
func (c *Client) dispatch(msg *protocol.Message, events *EventStream) bool {
	switch msg.Kind {
	case protocol.MessageCommandReply, protocol.MessageAPIResponse:
		c.deliver(msg)

	case protocol.MessageEvent:
		ev, err := msg.Event()
		if err != nil {
			c.log.Warn("Dropping unparsable event", zap.String("contentType", msg.ContentType), zap.Error(err))
			return true
		}

		events.push(ev)

	case protocol.MessageDisconnect:
		if msg.IsLinger() {
			c.log.Info("Switch is lingering, session continues")
			return true
		}

		c.log.Info("Received disconnect notice")
		c.shutdown(ReasonServerNotice,
			protocol.NewError(protocol.ErrKindConnectionClosed, "disconnect notice from switch", nil))
		return false

	default:
		c.log.Debug("Ignoring message", zap.Stringer("kind", msg.Kind), zap.String("contentType", msg.ContentType))
	}

	return true
}

func (c *Client) setPending(ch chan reply) {
	c.pendingMu.Lock()
	c.pending = ch
	c.pendingMu.Unlock()
}

func (c *Client) clearPending(ch chan reply) {
	c.pendingMu.Lock()
	if c.pending == ch {
		c.pending = nil
	}
	c.pendingMu.Unlock()
}

func (c *Client) deliver(msg *protocol.Message) {
	c.pendingMu.Lock()
	ch := c.pending
	c.pending = nil
	c.pendingMu.Unlock()

	if ch == nil {
		c.log.Warn("Dropping reply with no command waiting", zap.String("replyText", msg.Header(protocol.HeaderReplyText)))
		return
	}

	ch <- reply{msg: msg}
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) livenessExpired() bool {
	window := c.LivenessTimeout()
	if window <= 0 {
		return false
	}

	return time.Since(time.Unix(0, c.lastActivity.Load())) > window
}

func (c *Client) setState(state State) {
	c.statusMu.Lock()
	if c.status.State != StateDisconnected {
		c.status.State = state
	}
	c.statusMu.Unlock()
}

// markDisconnected records the first reason the connection went away.
func (c *Client) markDisconnected(reason DisconnectReason, err error) bool {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	if c.status.State == StateDisconnected {
		return false
	}

	c.status = Status{State: StateDisconnected, Reason: reason, Err: err}
	close(c.done)

	c.log.Info("Disconnected", zap.Stringer("reason", reason), zap.Error(err))

	return true
}

func (c *Client) shutdown(reason DisconnectReason, err error) {
	if c.markDisconnected(reason, err) {
		if cerr := c.closeConn(); cerr != nil {
			c.log.Debug("Error closing connection", zap.Error(cerr))
		}
	}
}

func (c *Client) closeConn() error {
	c.closeOnce.Do(func() {
		if tc, ok := c.conn.(*net.TCPConn); ok {
			if err := tc.CloseWrite(); err != nil && !errors.Is(err, net.ErrClosed) {
				c.closeErr = multierr.Append(c.closeErr, err)
			}
		}

		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = multierr.Append(c.closeErr, err)
		}
	})

	return c.closeErr
}

// notConnected is returned to commands issued after the connection went away.
func (c *Client) notConnected() error {
	st := c.Status()
	return protocol.NewError(protocol.ErrKindNotConnected, st.String(), st.Err)
}

// closedError is returned to a command whose connection went away while it
// waited for the reply.
func (c *Client) closedError() error {
	st := c.Status()
	if st.Err != nil && protocol.IsConnectionError(st.Err) {
		return st.Err
	}

	return c.notConnected()
}

func commandVerb(wire string) string {
	verb := wire
	if idx := strings.IndexAny(verb, " \n"); idx >= 0 {
		verb = verb[:idx]
	}

	return verb
}
