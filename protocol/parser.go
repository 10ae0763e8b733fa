package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var headerTerminator = []byte(HeaderTerminator)

// Parser turns a byte stream into Messages. It keeps partial input between
// calls, so data may be fed in arbitrary fragments.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	buf            *Buffer
	maxMessageSize int

	// set while the headers of a message are parsed but its body is
	// still incomplete
	pending *Message
	bodyLen int
}

// NewParser creates a Parser with the default size limits.
func NewParser() *Parser {
	return NewParserSize(DefaultMaxBufferSize, DefaultMaxMessageSize)
}

// NewParserSize creates a Parser with explicit limits. Values <= 0 select
// the defaults.
func NewParserSize(maxBuffer, maxMessage int) *Parser {
	if maxMessage <= 0 {
		maxMessage = DefaultMaxMessageSize
	}

	return &Parser{
		buf:            NewBuffer(maxBuffer),
		maxMessageSize: maxMessage,
	}
}

// AddData appends raw bytes. It fails with ErrBufferOverflow once the
// unparsed input exceeds the buffer limit.
func (p *Parser) AddData(data []byte) error {
	p.buf.Extend(data)
	return p.buf.CheckSizeLimit()
}

// Buffered returns the number of bytes not yet consumed by a message.
func (p *Parser) Buffered() int {
	return p.buf.Len()
}

// Reset drops all buffered input and any partially parsed message.
func (p *Parser) Reset() {
	p.buf.Reset()
	p.pending = nil
	p.bodyLen = 0
}

// ParseMessage returns the next complete message, or nil when more data is
// needed. Errors mean the stream is corrupt and cannot be recovered.
func (p *Parser) ParseMessage() (*Message, error) {
	if p.pending == nil {
		msg, err := p.parseHeaders()
		if err != nil || msg == nil {
			return nil, err
		}

		if p.pending == nil {
			return msg, nil
		}
	}

	body, ok := p.buf.ExtractBytes(p.bodyLen)
	if !ok {
		p.buf.Compact()
		return nil, nil
	}

	if !utf8.Valid(body) {
		p.pending = nil
		p.bodyLen = 0
		return nil, NewError(ErrKindProtocol, "invalid UTF-8 in body", nil)
	}

	msg := p.pending
	msg.Body = string(body)
	p.pending = nil
	p.bodyLen = 0

	return msg, nil
}

// parseHeaders consumes the next header block. When the block announces a
// body it is parked in p.pending.
func (p *Parser) parseHeaders() (*Message, error) {
	for {
		block, ok := p.buf.ExtractUntil(headerTerminator)
		if !ok {
			p.buf.Compact()
			return nil, nil
		}

		// stray blank lines between messages
		if strings.TrimSpace(string(block)) == "" {
			continue
		}

		if !utf8.Valid(block) {
			return nil, NewError(ErrKindProtocol, "invalid UTF-8 in headers", nil)
		}

		headers, err := ParseHeaderBlock(string(block))
		if err != nil {
			return nil, err
		}

		msg := NewMessage(headers, "")

		length, err := p.contentLength(headers)
		if err != nil {
			return nil, err
		}

		if length > 0 {
			p.pending = msg
			p.bodyLen = length
		}

		return msg, nil
	}
}

func (p *Parser) contentLength(headers map[string]string) (int, error) {
	raw, ok := headers[HeaderContentLength]
	if !ok {
		return 0, nil
	}

	length, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || length < 0 {
		return 0, NewError(ErrKindInvalidHeader,
			fmt.Sprintf("bad Content-Length %q", raw), err)
	}

	if length > p.maxMessageSize {
		return 0, NewError(ErrKindProtocol,
			fmt.Sprintf("Content-Length %d exceeds limit of %d", length, p.maxMessageSize), nil)
	}

	return length, nil
}
