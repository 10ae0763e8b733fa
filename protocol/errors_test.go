package protocol_test

import (
	"errors"
	"fmt"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/esl/protocol"
)

var _ = Describe("Error", func() {
	It("matches sentinels by kind", func() {
		err := protocol.NewError(protocol.ErrKindTimeout, "no reply within 5s", nil)
		Expect(errors.Is(err, protocol.ErrTimeout)).To(BeTrue())
		Expect(errors.Is(err, protocol.ErrIO)).To(BeFalse())
	})

	It("matches through wrapping and exposes the cause", func() {
		err := fmt.Errorf("Failed to connect: %w",
			protocol.NewError(protocol.ErrKindIO, "dial", io.ErrUnexpectedEOF))

		Expect(errors.Is(err, protocol.ErrIO)).To(BeTrue())
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
		Expect(err.Error()).To(Equal("Failed to connect: io error: dial: unexpected EOF"))
	})

	It("classifies connection errors", func() {
		for _, kind := range []protocol.ErrorKind{
			protocol.ErrKindIO,
			protocol.ErrKindNotConnected,
			protocol.ErrKindConnectionClosed,
			protocol.ErrKindHeartbeatExpired,
			protocol.ErrKindAuthFailed,
			protocol.ErrKindProtocol,
			protocol.ErrKindInvalidHeader,
			protocol.ErrKindBufferOverflow,
		} {
			err := protocol.NewError(kind, "", nil)
			Expect(protocol.IsConnectionError(err)).To(BeTrue(), kind.String())
			Expect(protocol.IsRecoverable(err)).To(BeFalse(), kind.String())
		}
	})

	It("classifies recoverable errors", func() {
		for _, kind := range []protocol.ErrorKind{
			protocol.ErrKindTimeout,
			protocol.ErrKindCommandFailed,
			protocol.ErrKindUnexpectedReply,
			protocol.ErrKindQueueFull,
		} {
			err := protocol.NewError(kind, "", nil)
			Expect(protocol.IsRecoverable(err)).To(BeTrue(), kind.String())
			Expect(protocol.IsConnectionError(err)).To(BeFalse(), kind.String())
		}
	})

	It("does not classify foreign errors", func() {
		Expect(protocol.IsConnectionError(io.EOF)).To(BeFalse())
		Expect(protocol.IsRecoverable(io.EOF)).To(BeFalse())
	})
})
