package protocol

import (
	"strings"
)

// ReplyStatus is the three way outcome of a reply.
type ReplyStatus int

const (
	// StatusOK is a +OK reply.
	StatusOK ReplyStatus = iota
	// StatusErr is a -ERR reply.
	StatusErr
	// StatusOther is any other reply, e.g. the bare value returned by getvar.
	StatusOther
)

func (s ReplyStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusErr:
		return "err"
	default:
		return "other"
	}
}

// Response is the reply to a command.
type Response struct {
	Headers map[string]string
	Body    string
}

// NewResponse wraps the headers and body of a reply message.
func NewResponse(headers map[string]string, body string) *Response {
	if headers == nil {
		headers = map[string]string{}
	}

	return &Response{Headers: headers, Body: body}
}

// Header returns the named header or "".
func (r *Response) Header(name string) string {
	return r.Headers[name]
}

// ReplyText returns the Reply-Text header.
func (r *Response) ReplyText() string {
	return r.Headers[HeaderReplyText]
}

// Success is true unless Reply-Text is present and does not start with +OK.
func (r *Response) Success() bool {
	text, ok := r.Headers[HeaderReplyText]
	if !ok || text == "" {
		return true
	}

	return strings.HasPrefix(text, ReplyOK)
}

// Status classifies Reply-Text, or the body for api responses which carry
// no Reply-Text.
func (r *Response) Status() ReplyStatus {
	text, ok := r.Headers[HeaderReplyText]
	if !ok {
		text = r.Body
	}

	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, ReplyOK):
		return StatusOK
	case strings.HasPrefix(text, ReplyErr):
		return StatusErr
	default:
		return StatusOther
	}
}

// Result returns r when it succeeded and an ErrCommandFailed otherwise.
func (r *Response) Result() (*Response, error) {
	if !r.Success() {
		return nil, NewError(ErrKindCommandFailed, errorText(r.ReplyText()), nil)
	}

	return r, nil
}

// Check applies the strict three way status: -ERR fails with
// ErrCommandFailed, anything that is not +OK fails with ErrUnexpectedReply.
func (r *Response) Check() error {
	switch r.Status() {
	case StatusOK:
		return nil
	case StatusErr:
		text := r.ReplyText()
		if text == "" {
			text = r.Body
		}

		return NewError(ErrKindCommandFailed, errorText(text), nil)
	default:
		return NewError(ErrKindUnexpectedReply, strings.TrimSpace(r.ReplyText()+" "+r.Body), nil)
	}
}

// JobUUID returns the job UUID of a bgapi reply, from the Job-UUID header
// or failing that from "+OK Job-UUID: <uuid>" in Reply-Text.
func (r *Response) JobUUID() string {
	if v := r.Headers[HeaderJobUUID]; v != "" {
		return v
	}

	text := r.ReplyText()
	if idx := strings.Index(text, HeaderJobUUID+":"); idx >= 0 {
		return strings.TrimSpace(text[idx+len(HeaderJobUUID)+1:])
	}

	return ""
}

func errorText(text string) string {
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimPrefix(text, ReplyErr))
}
