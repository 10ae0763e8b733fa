package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/esl/client"
	"github.com/luma/esl/protocol"
)

type connectResult struct {
	c      *client.Client
	events *client.EventStream
	err    error
}

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		sw     *mockSwitch
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		sw = newMockSwitch()
	})

	AfterEach(func() {
		sw.close()
		cancel()
	})

	dial := func(opts ...client.Option) <-chan connectResult {
		ch := make(chan connectResult, 1)
		go func() {
			c, events, err := client.Connect(ctx, "127.0.0.1", sw.port(), "ClueCon", opts...)
			ch <- connectResult{c, events, err}
		}()

		return ch
	}

	connect := func(opts ...client.Option) (*client.Client, *client.EventStream, *mockSession) {
		result := dial(opts...)

		sess := sw.accept()
		sess.send("Content-Type: auth/request\n\n")
		Expect(sess.readCommand()).To(Equal("auth ClueCon"))
		sess.reply("+OK accepted")

		var r connectResult
		Eventually(result, 2*time.Second).Should(Receive(&r))
		Expect(r.err).To(Succeed())

		return r.c, r.events, sess
	}

	Describe("authentication", func() {
		It("connects with the password", func() {
			c, _, sess := connect()
			defer sess.close()
			defer c.Disconnect()

			Expect(c.IsConnected()).To(BeTrue())
			Expect(c.Mode()).To(Equal(client.ModeInbound))
			Expect(c.Status().State).To(Equal(client.StateConnected))
		})

		It("fails when the password is rejected", func() {
			result := dial()

			sess := sw.accept()
			defer sess.close()

			sess.send("Content-Type: auth/request\n\n")
			Expect(sess.readCommand()).To(Equal("auth ClueCon"))
			sess.reply("-ERR invalid")

			var r connectResult
			Eventually(result, 2*time.Second).Should(Receive(&r))
			Expect(errors.Is(r.err, protocol.ErrAuthFailed)).To(BeTrue())
			Expect(r.err.Error()).To(ContainSubstring("invalid"))
		})

		It("fails when the switch rejects the connection", func() {
			result := dial()

			sess := sw.accept()
			body := "Access Denied, go away.\n"
			sess.send(fmt.Sprintf("Content-Type: text/rude-rejection\nContent-Length: %d\n\n%s", len(body), body))
			sess.close()

			var r connectResult
			Eventually(result, 2*time.Second).Should(Receive(&r))
			Expect(errors.Is(r.err, protocol.ErrAuthFailed)).To(BeTrue())
		})

		It("reports closure during the handshake", func() {
			result := dial()

			sess := sw.accept()
			sess.close()

			var r connectResult
			Eventually(result, 2*time.Second).Should(Receive(&r))
			Expect(errors.Is(r.err, protocol.ErrConnectionClosed)).To(BeTrue())
		})

		It("times out a silent switch", func() {
			result := dial(client.WithConnectTimeout(200 * time.Millisecond))

			sess := sw.accept()
			defer sess.close()

			var r connectResult
			Eventually(result, 2*time.Second).Should(Receive(&r))
			Expect(errors.Is(r.err, protocol.ErrTimeout)).To(BeTrue())
		})

		It("reports refused connections as io errors", func() {
			port := sw.port()
			sw.close()

			_, _, err := client.Connect(ctx, "127.0.0.1", port, "ClueCon")
			Expect(errors.Is(err, protocol.ErrIO)).To(BeTrue())
			Expect(protocol.IsConnectionError(err)).To(BeTrue())
		})

		It("authenticates directory users", func() {
			ch := make(chan error, 1)
			go func() {
				c, _, err := client.ConnectUser(ctx, "127.0.0.1", sw.port(), "1000@example.com", "secret")
				if c != nil {
					defer c.Disconnect()
				}
				ch <- err
			}()

			sess := sw.accept()
			defer sess.close()

			sess.send("Content-Type: auth/request\n\n")
			Expect(sess.readCommand()).To(Equal("userauth 1000@example.com:secret"))
			sess.reply("+OK accepted")

			Eventually(ch, 2*time.Second).Should(Receive(BeNil()))
		})

		It("rejects users without a domain before connecting", func() {
			_, _, err := client.ConnectUser(ctx, "127.0.0.1", sw.port(), "1000", "secret")
			Expect(errors.Is(err, protocol.ErrAuthFailed)).To(BeTrue())
			Consistently(sw.conns, 200*time.Millisecond).ShouldNot(Receive())
		})
	})

	Describe("commands", func() {
		var (
			c      *client.Client
			events *client.EventStream
			sess   *mockSession
		)

		AfterEach(func() {
			c.Disconnect()
			sess.close()
		})

		It("returns api responses", func() {
			c, _, sess = connect()

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)

				Expect(sess.readCommand()).To(Equal("api status"))
				sess.apiResponse("UP 0 years, 0 days\n")
			}()

			resp, err := c.API(ctx, "status")
			Expect(err).To(Succeed())
			Expect(resp.Body).To(Equal("UP 0 years, 0 days\n"))
			Eventually(done).Should(BeClosed())
		})

		It("turns -ERR replies into errors", func() {
			c, _, sess = connect()

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("event plain CHANNEL_ANSWER CHANNEL_HANGUP"))
				sess.reply("-ERR no keywords supplied")
			}()

			err := c.SubscribeEvents(ctx, protocol.FormatPlain, protocol.EventChannelAnswer, protocol.EventChannelHangup)
			Expect(errors.Is(err, protocol.ErrCommandFailed)).To(BeTrue())
			Expect(protocol.IsRecoverable(err)).To(BeTrue())
			Expect(c.IsConnected()).To(BeTrue())
		})

		It("pairs concurrent commands with their own replies", func() {
			c, _, sess = connect()

			const n = 5

			go func() {
				defer GinkgoRecover()

				for i := 0; i < n; i++ {
					cmd := sess.readCommand()
					sess.apiResponse(strings.TrimPrefix(cmd, "api "))
				}
			}()

			var wg sync.WaitGroup
			results := make([]string, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()

					resp, err := c.API(ctx, fmt.Sprintf("echo %d", i))
					Expect(err).To(Succeed())
					results[i] = resp.Body
				}(i)
			}
			wg.Wait()

			for i := 0; i < n; i++ {
				Expect(results[i]).To(Equal(fmt.Sprintf("echo %d", i)))
			}
		})

		It("times out and recovers for the next command", func() {
			c, _, sess = connect(client.WithCommandTimeout(200 * time.Millisecond))

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("api slow"))
				Expect(sess.readCommand()).To(Equal("api fast"))
				sess.apiResponse("fast")
			}()

			_, err := c.API(ctx, "slow")
			Expect(errors.Is(err, protocol.ErrTimeout)).To(BeTrue())
			Expect(c.IsConnected()).To(BeTrue())

			resp, err := c.API(ctx, "fast")
			Expect(err).To(Succeed())
			Expect(resp.Body).To(Equal("fast"))
		})

		It("changes the command timeout at runtime", func() {
			c, _, sess = connect()

			Expect(c.CommandTimeout()).To(Equal(client.DefaultCommandTimeout))
			c.SetCommandTimeout(100 * time.Millisecond)
			Expect(c.CommandTimeout()).To(Equal(100 * time.Millisecond))

			start := time.Now()
			_, err := c.API(ctx, "never")
			Expect(errors.Is(err, protocol.ErrTimeout)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})

		It("reads channel variables", func() {
			c, _, sess = connect()

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("getvar caller_id_name"))
				sess.reply("Alice")
			}()

			v, err := c.GetVar(ctx, "caller_id_name")
			Expect(err).To(Succeed())
			Expect(v).To(Equal("Alice"))
		})

		It("correlates background jobs with their event", func() {
			c, events, sess = connect()

			go func() {
				defer GinkgoRecover()

				cmd := sess.readCommand()
				lines := strings.Split(cmd, "\n")
				Expect(lines).To(HaveLen(2))
				Expect(lines[0]).To(Equal("bgapi status"))
				Expect(lines[1]).To(HavePrefix("Job-UUID: "))

				job := strings.TrimPrefix(lines[1], "Job-UUID: ")
				sess.reply("+OK Job-UUID: " + job)

				ev := protocol.NewEvent(protocol.EventBackgroundJob)
				ev.SetHeader("Job-UUID", job)
				ev.Body = "+OK UP\n"
				sess.event(ev)
			}()

			job, resp, err := c.BgAPIJob(ctx, "status")
			Expect(err).To(Succeed())
			Expect(resp.JobUUID()).To(Equal(job))

			ev, err := events.Recv(ctx)
			Expect(err).To(Succeed())
			Expect(ev.Is(protocol.EventBackgroundJob)).To(BeTrue())
			Expect(ev.JobUUID()).To(Equal(job))
			Expect(ev.Body).To(Equal("+OK UP\n"))
		})

		It("sends execute as sendmsg", func() {
			c, _, sess = connect()

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("sendmsg u-1\n" +
					"call-command: execute\n" +
					"execute-app-arg: NORMAL_CLEARING\n" +
					"execute-app-name: hangup"))
				sess.reply("+OK")
			}()

			_, err := c.Execute(ctx, "hangup", "NORMAL_CLEARING", "u-1")
			Expect(err).To(Succeed())
		})
	})

	Describe("events", func() {
		var (
			c      *client.Client
			events *client.EventStream
			sess   *mockSession
		)

		AfterEach(func() {
			c.Disconnect()
			sess.close()
		})

		newEvent := func(seq int) *protocol.Event {
			ev := protocol.NewEvent(protocol.EventChannelCreate)
			ev.SetHeader("Unique-ID", fmt.Sprintf("u-%d", seq))
			return ev
		}

		It("delivers events in arrival order, interleaved with replies", func() {
			c, events, sess = connect()

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("noop"))
				sess.event(newEvent(1))
				sess.event(newEvent(2))
				sess.reply("+OK")
				sess.event(newEvent(3))
			}()

			Expect(c.NoOp(ctx)).To(Succeed())

			for i := 1; i <= 3; i++ {
				ev, err := events.Recv(ctx)
				Expect(err).To(Succeed())
				Expect(ev.UniqueID()).To(Equal(fmt.Sprintf("u-%d", i)))
			}
		})

		It("drops events when the consumer falls behind and says so", func() {
			c, events, sess = connect(client.WithEventQueueSize(2))

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("noop"))
				for i := 1; i <= 5; i++ {
					sess.event(newEvent(i))
				}
				sess.reply("+OK")
			}()

			Expect(c.NoOp(ctx)).To(Succeed())
			Expect(events.Dropped()).To(Equal(uint64(3)))
			Expect(c.IsConnected()).To(BeTrue())

			for i := 1; i <= 2; i++ {
				ev, err := events.Recv(ctx)
				Expect(err).To(Succeed())
				Expect(ev.UniqueID()).To(Equal(fmt.Sprintf("u-%d", i)))
			}

			sess.event(newEvent(6))

			_, err := events.Recv(ctx)
			Expect(errors.Is(err, protocol.ErrQueueFull)).To(BeTrue())

			ev, err := events.Recv(ctx)
			Expect(err).To(Succeed())
			Expect(ev.UniqueID()).To(Equal("u-6"))
		})

		It("reports dropped events before the stream ends", func() {
			c, events, sess = connect(client.WithEventQueueSize(1))

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("noop"))
				for i := 1; i <= 3; i++ {
					sess.event(newEvent(i))
				}
				sess.reply("+OK")
			}()

			Expect(c.NoOp(ctx)).To(Succeed())
			Expect(events.Dropped()).To(Equal(uint64(2)))

			sess.close()
			Eventually(c.Done()).Should(BeClosed())

			ev, err := events.Recv(ctx)
			Expect(err).To(Succeed())
			Expect(ev.UniqueID()).To(Equal("u-1"))

			_, err = events.Recv(ctx)
			Expect(errors.Is(err, protocol.ErrQueueFull)).To(BeTrue())

			_, err = events.Recv(ctx)
			Expect(err).To(Equal(io.EOF))
		})

		It("honours ctx in Recv", func() {
			c, events, sess = connect()

			short, stop := context.WithTimeout(ctx, 50*time.Millisecond)
			defer stop()

			_, err := events.Recv(short)
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})
	})

	Describe("disconnection", func() {
		It("disconnects on a disconnect notice", func() {
			c, events, sess := connect()
			defer sess.close()

			sess.send("Content-Type: text/disconnect-notice\nContent-Length: 0\n\n")

			Eventually(c.Done()).Should(BeClosed())
			Expect(c.Status().Reason).To(Equal(client.ReasonServerNotice))

			_, err := events.Recv(ctx)
			Expect(err).To(Equal(io.EOF))

			_, err = c.API(ctx, "status")
			Expect(errors.Is(err, protocol.ErrNotConnected)).To(BeTrue())
		})

		It("keeps the session on a linger notice", func() {
			c, events, sess := connect()
			defer sess.close()
			defer c.Disconnect()

			sess.send("Content-Type: text/disconnect-notice\nContent-Disposition: linger\n\n")

			ev := protocol.NewEvent(protocol.EventChannelHangupComplete)
			sess.event(ev)

			got, err := events.Recv(ctx)
			Expect(err).To(Succeed())
			Expect(got.Is(protocol.EventChannelHangupComplete)).To(BeTrue())
			Expect(c.IsConnected()).To(BeTrue())
		})

		It("notices the switch closing the socket", func() {
			c, events, sess := connect()

			sess.close()

			Eventually(c.Done(), 2*time.Second).Should(BeClosed())
			Expect(c.Status().Reason).To(Equal(client.ReasonConnectionClosed))
			Expect(errors.Is(c.Status().Err, protocol.ErrConnectionClosed)).To(BeTrue())

			_, err := events.Recv(ctx)
			Expect(err).To(Equal(io.EOF))
		})

		It("fails an in-flight command when the socket closes", func() {
			c, _, sess := connect()

			go func() {
				defer GinkgoRecover()

				Expect(sess.readCommand()).To(Equal("api status"))
				sess.close()
			}()

			_, err := c.API(ctx, "status")
			Expect(protocol.IsConnectionError(err)).To(BeTrue())
		})

		It("expires a silent connection", func() {
			c, _, sess := connect(
				client.WithLivenessTimeout(300*time.Millisecond),
				client.WithPollInterval(50*time.Millisecond))
			defer sess.close()

			Eventually(c.Done(), 2*time.Second).Should(BeClosed())
			Expect(c.Status().Reason).To(Equal(client.ReasonHeartbeatExpired))
			Expect(errors.Is(c.Status().Err, protocol.ErrHeartbeatExpired)).To(BeTrue())
		})

		It("stays up while traffic keeps arriving", func() {
			c, _, sess := connect(client.WithPollInterval(50 * time.Millisecond))
			defer sess.close()
			defer c.Disconnect()

			c.SetLivenessTimeout(300 * time.Millisecond)
			Expect(c.LivenessTimeout()).To(Equal(300 * time.Millisecond))

			for i := 0; i < 6; i++ {
				time.Sleep(100 * time.Millisecond)
				sess.event(protocol.NewEvent(protocol.EventHeartbeat))
			}

			Expect(c.IsConnected()).To(BeTrue())
		})

		It("is idempotent", func() {
			c, events, sess := connect()
			defer sess.close()

			Expect(c.Disconnect()).To(Succeed())
			Expect(c.Disconnect()).To(Succeed())
			Expect(c.Status().Reason).To(Equal(client.ReasonClientRequested))

			_, err := events.Recv(ctx)
			Expect(err).To(Equal(io.EOF))

			_, err = c.API(ctx, "status")
			Expect(errors.Is(err, protocol.ErrNotConnected)).To(BeTrue())
		})
	})

	Describe("outbound", func() {
		It("accepts a session and reads its channel data", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(Succeed())
			defer ln.Close()

			go func() {
				defer GinkgoRecover()

				conn, err := net.Dial("tcp", ln.Addr().String())
				Expect(err).To(Succeed())

				sess := &mockSession{conn: conn, r: newReader(conn)}
				defer sess.close()

				Expect(sess.readCommand()).To(Equal("connect"))
				sess.send("Content-Type: command/reply\n" +
					"Event-Name: CHANNEL_DATA\n" +
					"Unique-ID: u-9\n" +
					"Channel-Name: sofia/internal/1000%40example.com\n\n")

				Expect(sess.readCommand()).To(Equal("myevents plain"))
				sess.reply("+OK Events Enabled")

				Expect(sess.readCommand()).To(Equal("exit"))
				sess.reply("+OK bye")
				sess.send("Content-Type: text/disconnect-notice\nContent-Disposition: disconnect\n\n")
			}()

			c, _, err := client.Accept(ctx, ln)
			Expect(err).To(Succeed())
			Expect(c.Mode()).To(Equal(client.ModeOutbound))

			data, err := c.ConnectSession(ctx)
			Expect(err).To(Succeed())
			Expect(data.Is(protocol.EventChannelData)).To(BeTrue())
			Expect(data.UniqueID()).To(Equal("u-9"))
			Expect(data.Header("Channel-Name")).To(Equal("sofia/internal/1000@example.com"))

			Expect(c.MyEvents(ctx, protocol.FormatPlain, "")).To(Succeed())
			Expect(c.Exit(ctx)).To(Succeed())

			Eventually(c.Done(), 2*time.Second).Should(BeClosed())
			Expect(c.Status().Reason).To(Equal(client.ReasonServerNotice))
		})

		It("gives up waiting when ctx ends", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(Succeed())
			defer ln.Close()

			short, stop := context.WithTimeout(ctx, 50*time.Millisecond)
			defer stop()

			_, _, err = client.Accept(short, ln)
			Expect(errors.Is(err, protocol.ErrTimeout)).To(BeTrue())
		})
	})
})
