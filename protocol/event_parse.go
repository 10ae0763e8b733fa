package protocol

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const jsonBodyKey = "_body"

// ParseEvent decodes an event message in the given format.
func ParseEvent(msg *Message, format EventFormat) (*Event, error) {
	if msg.Kind != MessageEvent {
		return nil, NewError(ErrKindProtocol,
			fmt.Sprintf("cannot parse a %s message as an event", msg.Kind), nil)
	}

	switch format {
	case FormatPlain:
		return parsePlainEvent(msg)
	case FormatJSON:
		return parseJSONEvent(msg)
	case FormatXML:
		return parseXMLEvent(msg), nil
	default:
		return nil, NewError(ErrKindProtocol, fmt.Sprintf("unknown event format %q", format), nil)
	}
}

// parsePlainEvent handles both the envelope form, where the event headers
// arrive url encoded in the message body, and events whose Event-Name sits
// among the outer headers themselves, such as log/data.
func parsePlainEvent(msg *Message) (*Event, error) {
	_, outer := msg.Headers[HeaderEventName]
	if outer || msg.ContentType != ContentTypeEventPlain || msg.Body == "" {
		ev := EventFromHeaders(msg.Headers, msg.Body)
		return ev, nil
	}

	block, rest, hasRest := strings.Cut(msg.Body, HeaderTerminator)

	headers, err := ParseHeaderBlock(block)
	if err != nil {
		return nil, err
	}

	var body string
	if raw, ok := headers[HeaderContentLength]; ok {
		delete(headers, HeaderContentLength)

		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return nil, NewError(ErrKindInvalidHeader,
				fmt.Sprintf("bad event Content-Length %q", raw), err)
		}

		if n > 0 {
			if !hasRest || len(rest) < n {
				return nil, NewError(ErrKindProtocol,
					fmt.Sprintf("event body truncated: want %d bytes, have %d", n, len(rest)), nil)
			}

			body = rest[:n]
		}
	}

	return EventFromHeaders(headers, body), nil
}

// EventFromHeaders builds an event from url encoded headers, such as the
// channel data in the reply to connect.
func EventFromHeaders(headers map[string]string, body string) *Event {
	ev := &Event{Headers: make(map[string]string, len(headers)), Body: body}
	for name, value := range headers {
		ev.Headers[name] = decodeLenient(value)
	}

	ev.Kind, _ = ParseEventKind(ev.Headers[HeaderEventName])

	return ev
}

func parseJSONEvent(msg *Message) (*Event, error) {
	if !gjson.Valid(msg.Body) {
		return nil, NewError(ErrKindProtocol, "invalid JSON event body", nil)
	}

	doc := gjson.Parse(msg.Body)
	if !doc.IsObject() {
		return nil, NewError(ErrKindProtocol, "JSON event is not an object", nil)
	}

	ev := &Event{Headers: make(map[string]string)}
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()

		v := value.Raw
		if value.Type == gjson.String {
			v = value.String()
		}

		if name == jsonBodyKey {
			ev.Body = v
			return true
		}

		ev.Headers[name] = v
		return true
	})

	ev.Kind, _ = ParseEventKind(ev.Headers[HeaderEventName])

	return ev, nil
}

// parseXMLEvent is a best effort scan. It picks up key="value" attribute
// pairs and <Name>value</Name> leaf elements, and takes <body> as the body.
// Nesting and namespaces are ignored, so the result is marked Degraded.
func parseXMLEvent(msg *Message) *Event {
	ev := &Event{Headers: make(map[string]string), Degraded: true}
	s := msg.Body

	for {
		start := strings.IndexByte(s, '<')
		if start < 0 {
			break
		}

		end := strings.IndexByte(s[start:], '>')
		if end < 0 {
			break
		}

		head := strings.TrimSpace(s[start+1 : start+end])
		s = s[start+end+1:]

		if head == "" || head[0] == '/' || head[0] == '?' || head[0] == '!' {
			continue
		}

		selfClosing := strings.HasSuffix(head, "/")
		head = strings.TrimSpace(strings.TrimSuffix(head, "/"))

		tag, attrs, _ := strings.Cut(head, " ")
		scanXMLAttrs(attrs, ev.Headers)

		if selfClosing {
			continue
		}

		closing := "</" + tag + ">"
		next := strings.IndexByte(s, '<')
		if next < 0 || !strings.HasPrefix(s[next:], closing) {
			continue
		}

		value := html.UnescapeString(s[:next])
		s = s[next+len(closing):]

		if tag == "body" {
			ev.Body = value
			continue
		}

		ev.Headers[tag] = decodeLenient(strings.TrimSpace(value))
	}

	ev.Kind, _ = ParseEventKind(ev.Headers[HeaderEventName])

	return ev
}

func scanXMLAttrs(rest string, into map[string]string) {
	rest = strings.TrimSpace(rest)
	for rest != "" {
		eq := strings.Index(rest, "=\"")
		if eq < 0 {
			return
		}

		key := strings.TrimSpace(rest[:eq])
		rest = rest[eq+2:]

		q := strings.IndexByte(rest, '"')
		if q < 0 {
			return
		}

		if key != "" {
			into[key] = html.UnescapeString(rest[:q])
		}

		rest = strings.TrimSpace(rest[q+1:])
	}
}
