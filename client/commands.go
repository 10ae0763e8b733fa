package client

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luma/esl/protocol"
)

// API runs a blocking API command and returns its api/response. The body
// is returned as is, use Response.Check to apply +OK/-ERR semantics.
func (c *Client) API(ctx context.Context, command string) (*protocol.Response, error) {
	return c.SendCommand(ctx, protocol.API{Command: command})
}

// BgAPI starts a background API command. The Job-UUID of the reply
// identifies the BACKGROUND_JOB event reporting its result.
func (c *Client) BgAPI(ctx context.Context, command string) (*protocol.Response, error) {
	return c.result(c.SendCommand(ctx, protocol.BgAPI{Command: command}))
}

// BgAPIJob is BgAPI with a locally generated job UUID, so the caller can
// match the BACKGROUND_JOB event before the reply arrives.
func (c *Client) BgAPIJob(ctx context.Context, command string) (string, *protocol.Response, error) {
	jobUUID := uuid.NewString()

	resp, err := c.result(c.SendCommand(ctx, protocol.BgAPI{Command: command, JobUUID: jobUUID}))
	if err != nil {
		return "", nil, err
	}

	if id := resp.JobUUID(); id != "" {
		jobUUID = id
	}

	return jobUUID, resp, nil
}

// SubscribeEvents subscribes to the given kinds. Including EventAll, or
// passing none, subscribes to everything.
func (c *Client) SubscribeEvents(ctx context.Context, format protocol.EventFormat, kinds ...protocol.EventKind) error {
	return c.SubscribeEventsRaw(ctx, format, joinKinds(kinds))
}

// SubscribeEventsRaw subscribes with a literal event list, which allows
// custom subclasses such as "CUSTOM sofia::register".
func (c *Client) SubscribeEventsRaw(ctx context.Context, format protocol.EventFormat, events string) error {
	return c.ok(c.SendCommand(ctx, protocol.Subscribe{Format: format, Events: events}))
}

// Filter restricts delivered events to those where header equals value.
func (c *Client) Filter(ctx context.Context, header, value string) error {
	return c.ok(c.SendCommand(ctx, protocol.Filter{Header: header, Value: value}))
}

// FilterDelete removes a filter. Pass "all" to remove every filter and an
// empty value to remove all filters on header.
func (c *Client) FilterDelete(ctx context.Context, header, value string) error {
	return c.ok(c.SendCommand(ctx, protocol.FilterDelete{Header: header, Value: value}))
}

// Execute runs a dialplan application on a channel. channelID may be empty in
// outbound mode.
func (c *Client) Execute(ctx context.Context, app, args, channelID string) (*protocol.Response, error) {
	return c.result(c.SendCommand(ctx, protocol.Execute{App: app, Args: args, UUID: channelID}))
}

// ExecuteLocked is Execute with event-lock set, so the application waits
// for the ones already queued on the channel.
func (c *Client) ExecuteLocked(ctx context.Context, app, args, channelID string) (*protocol.Response, error) {
	return c.result(c.SendCommand(ctx, protocol.Execute{App: app, Args: args, UUID: channelID, Lock: true}))
}

// SendMsg sends a raw message to a channel.
func (c *Client) SendMsg(ctx context.Context, channelID string, ev *protocol.Event) (*protocol.Response, error) {
	return c.result(c.SendCommand(ctx, protocol.SendMsg{UUID: channelID, Event: ev}))
}

// SendEvent fires an event into the switch.
func (c *Client) SendEvent(ctx context.Context, ev *protocol.Event) (*protocol.Response, error) {
	return c.result(c.SendCommand(ctx, protocol.SendEvent{Event: ev}))
}

// MyEvents subscribes to the events of a single channel.
func (c *Client) MyEvents(ctx context.Context, format protocol.EventFormat, channelID string) error {
	return c.ok(c.SendCommand(ctx, protocol.MyEvents{Format: format, UUID: channelID}))
}

// Linger keeps the session open after hangup so the final events arrive.
func (c *Client) Linger(ctx context.Context, timeout time.Duration) error {
	return c.ok(c.SendCommand(ctx, protocol.Linger{Timeout: timeout}))
}

// NoLinger cancels Linger.
func (c *Client) NoLinger(ctx context.Context) error {
	return c.ok(c.SendCommand(ctx, protocol.NoLinger{}))
}

// Resume makes the dialplan continue once the socket goes away.
func (c *Client) Resume(ctx context.Context) error {
	return c.ok(c.SendCommand(ctx, protocol.Resume{}))
}

// NixEvent unsubscribes from the given kinds.
func (c *Client) NixEvent(ctx context.Context, kinds ...protocol.EventKind) error {
	return c.ok(c.SendCommand(ctx, protocol.NixEvent{Events: joinKinds(kinds)}))
}

// NoEvents cancels every subscription.
func (c *Client) NoEvents(ctx context.Context) error {
	return c.ok(c.SendCommand(ctx, protocol.NoEvents{}))
}

// DivertEvents switches event diversion on or off.
func (c *Client) DivertEvents(ctx context.Context, on bool) error {
	return c.ok(c.SendCommand(ctx, protocol.DivertEvents{On: on}))
}

// GetVar reads a channel variable. The reply text is the value itself.
func (c *Client) GetVar(ctx context.Context, name string) (string, error) {
	resp, err := c.SendCommand(ctx, protocol.GetVar{Name: name})
	if err != nil {
		return "", err
	}

	if resp.Status() == protocol.StatusErr {
		_, err := resp.Result()
		return "", err
	}

	return resp.ReplyText(), nil
}

// Log starts log/data delivery at level.
func (c *Client) Log(ctx context.Context, level string) error {
	return c.ok(c.SendCommand(ctx, protocol.Log{Level: level}))
}

// NoLog stops log delivery.
func (c *Client) NoLog(ctx context.Context) error {
	return c.ok(c.SendCommand(ctx, protocol.NoLog{}))
}

// NoOp round trips a no-op command.
func (c *Client) NoOp(ctx context.Context) error {
	return c.ok(c.SendCommand(ctx, protocol.NoOp{}))
}

// Exit asks the switch to close the session. The connection is torn down
// once the switch sends its disconnect notice.
func (c *Client) Exit(ctx context.Context) error {
	return c.ok(c.SendCommand(ctx, protocol.Exit{}))
}

// ConnectSession sends connect on an outbound socket and returns the channel
// data the switch replies with.
func (c *Client) ConnectSession(ctx context.Context) (*protocol.Event, error) {
	resp, err := c.result(c.SendCommand(ctx, protocol.Connect{}))
	if err != nil {
		return nil, err
	}

	return protocol.EventFromHeaders(resp.Headers, resp.Body), nil
}

func (c *Client) result(resp *protocol.Response, err error) (*protocol.Response, error) {
	if err != nil {
		return nil, err
	}

	return resp.Result()
}

func (c *Client) ok(resp *protocol.Response, err error) error {
	_, err = c.result(resp, err)
	return err
}

func joinKinds(kinds []protocol.EventKind) string {
	if len(kinds) == 0 {
		return string(protocol.EventAll)
	}

	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if k == protocol.EventAll {
			return string(protocol.EventAll)
		}

		names = append(names, string(k))
	}

	return strings.Join(names, " ")
}
