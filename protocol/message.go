package protocol

import (
	"fmt"
	"strings"
)

// MessageKind classifies a Message by its Content-Type.
type MessageKind int

const (
	// MessageUnknown is any content type not listed below, including none at all.
	MessageUnknown MessageKind = iota
	MessageAuthRequest
	MessageCommandReply
	MessageAPIResponse
	MessageEvent
	MessageDisconnect
)

func (k MessageKind) String() string {
	switch k {
	case MessageAuthRequest:
		return "auth-request"
	case MessageCommandReply:
		return "command-reply"
	case MessageAPIResponse:
		return "api-response"
	case MessageEvent:
		return "event"
	case MessageDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// ClassifyContentType maps a Content-Type value to its MessageKind.
func ClassifyContentType(contentType string) MessageKind {
	switch strings.TrimSpace(contentType) {
	case ContentTypeAuthRequest:
		return MessageAuthRequest
	case ContentTypeCommandReply:
		return MessageCommandReply
	case ContentTypeAPIResponse:
		return MessageAPIResponse
	case ContentTypeEventPlain, ContentTypeEventJSON, ContentTypeEventXML, ContentTypeLogData:
		return MessageEvent
	case ContentTypeDisconnectNotice:
		return MessageDisconnect
	default:
		return MessageUnknown
	}
}

// Message is one framed unit read off the wire. For MessageUnknown the raw
// content type is kept in ContentType.
type Message struct {
	Kind        MessageKind
	ContentType string
	Headers     map[string]string
	Body        string
}

// NewMessage classifies headers into a Message.
func NewMessage(headers map[string]string, body string) *Message {
	if headers == nil {
		headers = map[string]string{}
	}

	ct := strings.TrimSpace(headers[HeaderContentType])

	return &Message{
		Kind:        ClassifyContentType(ct),
		ContentType: ct,
		Headers:     headers,
		Body:        body,
	}
}

// Header returns the value of the named header or "".
func (m *Message) Header(name string) string {
	return m.Headers[name]
}

// IsLinger reports whether a disconnect notice asks the client to keep
// the session open.
func (m *Message) IsLinger() bool {
	return strings.EqualFold(strings.TrimSpace(m.Headers[HeaderContentDisposition]), DispositionLinger)
}

// Event parses the message as an event using the format implied by its
// content type.
func (m *Message) Event() (*Event, error) {
	format, ok := FormatFromContentType(m.ContentType)
	if !ok {
		return nil, NewError(ErrKindProtocol,
			fmt.Sprintf("content type %q is not an event", m.ContentType), nil)
	}

	return ParseEvent(m, format)
}

func (m *Message) String() string {
	return fmt.Sprintf("%s message (%d headers, %d body bytes)", m.Kind, len(m.Headers), len(m.Body))
}

// ParseHeaderBlock splits a header block into name/value pairs. Lines are
// split on their first ':' and both sides are trimmed. Blank lines are
// skipped, a later duplicate wins.
func ParseHeaderBlock(block string) (map[string]string, error) {
	headers := make(map[string]string)

	for _, line := range strings.Split(block, LineTerminator) {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		idx := strings.Index(line, HeaderSeparator)
		if idx < 0 {
			return nil, NewError(ErrKindInvalidHeader,
				fmt.Sprintf("missing separator in %q", line), nil)
		}

		name := strings.TrimSpace(line[:idx])
		if name == "" {
			return nil, NewError(ErrKindInvalidHeader,
				fmt.Sprintf("empty header name in %q", line), nil)
		}

		headers[name] = strings.TrimSpace(line[idx+1:])
	}

	return headers, nil
}
