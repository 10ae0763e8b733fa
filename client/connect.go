package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luma/esl/protocol"
)

// content type the switch uses to refuse connections it does not accept,
// e.g. from addresses outside its ACL
const contentTypeRudeRejection = "text/rude-rejection"

// Connect dials the switch's inbound event socket and authenticates with
// password. The returned EventStream carries every subscribed event.
func Connect(ctx context.Context, host string, port int, password string, opts ...Option) (*Client, *EventStream, error) {
	return connectAndAuth(ctx, joinHostPort(host, port), protocol.Auth{Password: password}, opts)
}

// ConnectUser is Connect authenticating as a directory user. user must be
// of the form user@domain.
func ConnectUser(ctx context.Context, host string, port int, user, password string, opts ...Option) (*Client, *EventStream, error) {
	if !strings.Contains(user, "@") {
		return nil, nil, protocol.NewError(protocol.ErrKindAuthFailed,
			fmt.Sprintf("user %q must be user@domain", user), nil)
	}

	return connectAndAuth(ctx, joinHostPort(host, port), protocol.UserAuth{User: user, Password: password}, opts)
}

// Accept waits for the switch to open an outbound connection on ln.
func Accept(ctx context.Context, ln net.Listener, opts ...Option) (*Client, *EventStream, error) {
	type accepted struct {
		conn net.Conn
		err  error
	}

	ch := make(chan accepted, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- accepted{conn, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			return nil, nil, protocol.NewError(protocol.ErrKindIO, "accept", a.err)
		}

		c, events := NewOutbound(a.conn, opts...)
		return c, events, nil

	case <-ctx.Done():
		go func() {
			if a := <-ch; a.conn != nil {
				a.conn.Close()
			}
		}()

		return nil, nil, protocol.NewError(protocol.ErrKindTimeout, "waiting for connection", ctx.Err())
	}
}

// NewOutbound wraps a connection the switch opened to us. No
// authentication takes place, send Connect (see ConnectSession) first.
func NewOutbound(conn net.Conn, opts ...Option) (*Client, *EventStream) {
	o := buildOptions(opts)
	c := newClient(conn, ModeOutbound, o)
	p := protocol.NewParserSize(o.maxBufferSize, o.maxMessageSize)

	return c, c.start(p)
}

func connectAndAuth(ctx context.Context, addr string, auth protocol.Command, opts []Option) (*Client, *EventStream, error) {
	o := buildOptions(opts)
	log := o.log.Named("client").With(zap.String("addr", addr))

	ctx, cancel := context.WithTimeout(ctx, o.connectTimeout)
	defer cancel()

	log.Debug("Connecting")

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, dialError(addr, err)
	}

	c := newClient(conn, ModeInbound, o)
	p := protocol.NewParserSize(o.maxBufferSize, o.maxMessageSize)

	if err := c.authenticate(ctx, p, auth); err != nil {
		c.markDisconnected(ReasonConnectionClosed, err)
		c.closeConn()
		return nil, nil, err
	}

	log.Info("Connected and authenticated")

	return c, c.start(p), nil
}

// authenticate runs the handshake directly on the socket. Bytes the switch
// sends after the reply stay in p for the reader.
func (c *Client) authenticate(ctx context.Context, p *protocol.Parser, auth protocol.Command) error {
	c.setState(StateAuthenticating)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return protocol.NewError(protocol.ErrKindIO, "set deadline", err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	msg, err := c.readHandshake(p)
	if err != nil {
		return err
	}

	if msg.Kind != protocol.MessageAuthRequest {
		return unexpectedHandshake("auth/request", msg)
	}

	if _, err := io.WriteString(c.conn, protocol.Marshal(auth)); err != nil {
		return protocol.NewError(protocol.ErrKindIO, "write auth", err)
	}

	for {
		msg, err = c.readHandshake(p)
		if err != nil {
			return err
		}

		if msg.Kind == protocol.MessageCommandReply {
			break
		}

		if msg.Kind != protocol.MessageEvent {
			return unexpectedHandshake("command/reply", msg)
		}
	}

	resp := protocol.NewResponse(msg.Headers, msg.Body)
	if !resp.Success() {
		return protocol.NewError(protocol.ErrKindAuthFailed, resp.ReplyText(), nil)
	}

	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return protocol.NewError(protocol.ErrKindIO, "clear deadline", err)
	}

	return nil
}

func (c *Client) readHandshake(p *protocol.Parser) (*protocol.Message, error) {
	buf := make([]byte, protocol.SocketBufferSize)

	for {
		msg, err := p.ParseMessage()
		if err != nil {
			return nil, err
		}

		if msg != nil {
			return msg, nil
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			if err := p.AddData(buf[:n]); err != nil {
				return nil, err
			}
		}

		if err != nil {
			if n > 0 && errors.Is(err, io.EOF) {
				// parse what arrived before the close, a rejection notice
				// is usually followed by EOF
				if msg, perr := p.ParseMessage(); perr == nil && msg != nil {
					return msg, nil
				}
			}

			return nil, handshakeReadError(err)
		}
	}
}

func unexpectedHandshake(want string, msg *protocol.Message) error {
	switch {
	case msg.ContentType == contentTypeRudeRejection:
		return protocol.NewError(protocol.ErrKindAuthFailed, strings.TrimSpace(msg.Body), nil)
	case msg.Kind == protocol.MessageDisconnect:
		return protocol.NewError(protocol.ErrKindConnectionClosed, "disconnected during handshake", nil)
	default:
		return protocol.NewError(protocol.ErrKindProtocol,
			fmt.Sprintf("expected %s during handshake, got %q", want, msg.ContentType), nil)
	}
}

func handshakeReadError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		return protocol.NewError(protocol.ErrKindConnectionClosed, "closed during handshake", nil)
	case errors.As(err, &netErr) && netErr.Timeout():
		return protocol.NewError(protocol.ErrKindTimeout, "handshake", err)
	default:
		return protocol.NewError(protocol.ErrKindIO, "handshake", err)
	}
}

func dialError(addr string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout() {
		return protocol.NewError(protocol.ErrKindTimeout, "dial "+addr, err)
	}

	return protocol.NewError(protocol.ErrKindIO, "dial "+addr, err)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
