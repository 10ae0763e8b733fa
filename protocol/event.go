package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/sjson"
)

// EventFormat is the wire format events are subscribed in.
type EventFormat string

const (
	FormatPlain EventFormat = "plain"
	FormatJSON  EventFormat = "json"
	FormatXML   EventFormat = "xml"
)

// ParseEventFormat parses "plain", "json" or "xml", ignoring case.
func ParseEventFormat(s string) (EventFormat, bool) {
	switch EventFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPlain:
		return FormatPlain, true
	case FormatJSON:
		return FormatJSON, true
	case FormatXML:
		return FormatXML, true
	default:
		return "", false
	}
}

// FormatFromContentType maps an event content type to its format. log/data
// is framed like a plain event.
func FormatFromContentType(contentType string) (EventFormat, bool) {
	switch strings.TrimSpace(contentType) {
	case ContentTypeEventPlain, ContentTypeLogData:
		return FormatPlain, true
	case ContentTypeEventJSON:
		return FormatJSON, true
	case ContentTypeEventXML:
		return FormatXML, true
	default:
		return "", false
	}
}

func (f EventFormat) String() string {
	return string(f)
}

// Priority is the value of the priority header on events sent to the switch.
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority parses NORMAL, LOW or HIGH, ignoring case.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityNormal:
		return PriorityNormal, true
	case PriorityLow:
		return PriorityLow, true
	case PriorityHigh:
		return PriorityHigh, true
	default:
		return "", false
	}
}

func (p Priority) String() string {
	return string(p)
}

// Event is a notification from the switch, or one built locally to send
// with sendevent or sendmsg. An empty Body means no body.
type Event struct {
	Kind    EventKind
	Headers map[string]string
	Body    string

	// Degraded is set when the event came from a format only partially
	// understood, currently XML.
	Degraded bool
}

// NewEvent creates an event of the given kind with its Event-Name header
// set. Pass EventNone for an event with no name yet.
func NewEvent(kind EventKind) *Event {
	ev := &Event{Kind: kind, Headers: make(map[string]string)}
	if kind != EventNone {
		ev.Headers[HeaderEventName] = string(kind)
	}

	return ev
}

// Header returns the named header or "".
func (e *Event) Header(name string) string {
	return e.Headers[name]
}

// Lookup returns the named header and whether it is present.
func (e *Event) Lookup(name string) (string, bool) {
	v, ok := e.Headers[name]
	return v, ok
}

// SetHeader sets or replaces a header.
func (e *Event) SetHeader(name, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}

	e.Headers[name] = value
}

// DelHeader removes a header and returns its previous value.
func (e *Event) DelHeader(name string) (string, bool) {
	v, ok := e.Headers[name]
	if ok {
		delete(e.Headers, name)
	}

	return v, ok
}

// PushHeader appends value to a multi-valued header. An absent header is
// set plainly, a plain value becomes ARRAY::old|:value.
func (e *Event) PushHeader(name, value string) {
	e.stackHeader(name, value, (*Array).Push)
}

// UnshiftHeader is PushHeader inserting at the front.
func (e *Event) UnshiftHeader(name, value string) {
	e.stackHeader(name, value, (*Array).Unshift)
}

func (e *Event) stackHeader(name, value string, op func(*Array, string)) {
	existing, ok := e.Headers[name]
	if !ok {
		e.SetHeader(name, value)
		return
	}

	arr, ok := ParseArray(existing)
	if !ok {
		arr = Array{existing}
	}

	op(&arr, value)
	e.SetHeader(name, arr.String())
}

// ArrayHeader decodes an ARRAY:: header.
func (e *Event) ArrayHeader(name string) (Array, bool) {
	v, ok := e.Headers[name]
	if !ok {
		return nil, false
	}

	return ParseArray(v)
}

// MultipartHeader decodes an ARRAY:: header of typed parts.
func (e *Event) MultipartHeader(name string) (Multipart, bool) {
	v, ok := e.Headers[name]
	if !ok {
		return nil, false
	}

	return ParseMultipart(v)
}

// SetPriority sets the priority header.
func (e *Event) SetPriority(p Priority) {
	e.SetHeader(HeaderPriority, string(p))
}

// Priority reads the priority header.
func (e *Event) Priority() (Priority, bool) {
	return ParsePriority(e.Headers[HeaderPriority])
}

// UniqueID returns the channel UUID the event refers to, falling back to
// Caller-Unique-ID.
func (e *Event) UniqueID() string {
	if v, ok := e.Headers[HeaderUniqueID]; ok {
		return v
	}

	return e.Headers[HeaderCallerUniqueID]
}

// JobUUID returns the Job-UUID of a BACKGROUND_JOB event.
func (e *Event) JobUUID() string {
	return e.Headers[HeaderJobUUID]
}

// Is reports whether the event is of the given kind.
func (e *Event) Is(kind EventKind) bool {
	return kind != EventNone && e.Kind == kind
}

// Name returns the Event-Name to use when sending the event: the kind, the
// Event-Name header, or CUSTOM.
func (e *Event) Name() string {
	if e.Kind != EventNone {
		return string(e.Kind)
	}

	if v := e.Headers[HeaderEventName]; v != "" {
		return v
	}

	return string(EventCustom)
}

// ToPlain serialises the event in the plain wire format. Event-Name comes
// first, the other headers follow sorted by name, values are percent
// encoded. A stored Content-Length is replaced by one computed from Body.
func (e *Event) ToPlain() string {
	var b strings.Builder
	e.writeHeaders(&b, PercentEncode)
	e.writeBody(&b)

	return b.String()
}

func (e *Event) writeHeaders(b *strings.Builder, encode func(string) string) {
	if name, ok := e.Headers[HeaderEventName]; ok {
		fmt.Fprintf(b, "%s: %s\n", HeaderEventName, encode(name))
	}

	for _, name := range e.sortedHeaderNames() {
		fmt.Fprintf(b, "%s: %s\n", name, encode(e.Headers[name]))
	}
}

func (e *Event) writeBody(b *strings.Builder) {
	if e.Body == "" {
		b.WriteString(LineTerminator)
		return
	}

	fmt.Fprintf(b, "%s: %d\n\n", HeaderContentLength, len(e.Body))
	b.WriteString(e.Body)
}

// sortedHeaderNames lists every header except Event-Name and Content-Length.
func (e *Event) sortedHeaderNames() []string {
	names := make([]string, 0, len(e.Headers))
	for name := range e.Headers {
		if name == HeaderEventName || name == HeaderContentLength {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// MarshalJSON renders the event the way the switch does for text/event-json:
// one key per header and the body under "_body".
func (e *Event) MarshalJSON() ([]byte, error) {
	out := []byte("{}")

	var err error
	for _, name := range e.jsonHeaderNames() {
		out, err = sjson.SetBytes(out, EscapeJSONPath(name), e.Headers[name])
		if err != nil {
			return nil, fmt.Errorf("Failed to encode header %q: %w", name, err)
		}
	}

	if e.Body != "" {
		out, err = sjson.SetBytes(out, jsonBodyKey, e.Body)
		if err != nil {
			return nil, fmt.Errorf("Failed to encode body: %w", err)
		}
	}

	return out, nil
}

func (e *Event) jsonHeaderNames() []string {
	names := e.sortedHeaderNames()
	if _, ok := e.Headers[HeaderEventName]; ok {
		names = append([]string{HeaderEventName}, names...)
	}

	return names
}

func (e *Event) String() string {
	name := e.Name()
	if id := e.UniqueID(); id != "" {
		return name + " " + id
	}

	return name + " (" + strconv.Itoa(len(e.Headers)) + " headers)"
}

// EscapeJSONPath escapes the characters gjson and sjson treat as path
// syntax so that s addresses a single object key.
func EscapeJSONPath(s string) string {
	if !strings.ContainsAny(s, `.*?|#@\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}

	return b.String()
}
