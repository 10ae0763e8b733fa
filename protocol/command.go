package protocol

// Content types sent by the switch.
const (
	ContentTypeAuthRequest      = "auth/request"
	ContentTypeCommandReply     = "command/reply"
	ContentTypeAPIResponse      = "api/response"
	ContentTypeEventPlain       = "text/event-plain"
	ContentTypeEventJSON        = "text/event-json"
	ContentTypeEventXML         = "text/event-xml"
	ContentTypeLogData          = "log/data"
	ContentTypeDisconnectNotice = "text/disconnect-notice"
)

// Well known header names.
const (
	HeaderContentType        = "Content-Type"
	HeaderContentLength      = "Content-Length"
	HeaderContentDisposition = "Content-Disposition"
	HeaderReplyText          = "Reply-Text"
	HeaderJobUUID            = "Job-UUID"
	HeaderEventName          = "Event-Name"
	HeaderUniqueID           = "Unique-ID"
	HeaderCallerUniqueID     = "Caller-Unique-ID"
	HeaderPriority           = "priority"
)

// Reply-Text prefixes.
const (
	ReplyOK  = "+OK"
	ReplyErr = "-ERR"
)

// Framing.
const (
	HeaderTerminator = "\n\n"
	LineTerminator   = "\n"
	HeaderSeparator  = ":"
)

// Size limits.
const (
	// DefaultMaxBufferSize bounds the unparsed bytes a parser accumulates.
	DefaultMaxBufferSize = 16 << 20
	// DefaultMaxMessageSize bounds the Content-Length of a single message.
	DefaultMaxMessageSize = 8 << 20
	// SocketBufferSize is the size of a single socket read.
	SocketBufferSize = 64 << 10
)

// DispositionLinger on a disconnect notice means the session continues.
const DispositionLinger = "linger"
