package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/esl/client"
	"github.com/luma/esl/protocol"
	"github.com/luma/esl/storage"
)

type fakeSwitch struct {
	commands []string
	err      error
	status   client.Status
}

func (f *fakeSwitch) API(ctx context.Context, command string) (*protocol.Response, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return nil, f.err
	}

	return protocol.NewResponse(map[string]string{"Content-Type": "api/response"}, "+OK up 3 days\n"), nil
}

func (f *fakeSwitch) BgAPIJob(ctx context.Context, command string) (string, *protocol.Response, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return "", nil, f.err
	}

	return "job-1", protocol.NewResponse(map[string]string{"Reply-Text": "+OK Job-UUID: job-1"}, ""), nil
}

func (f *fakeSwitch) Status() client.Status {
	return f.status
}

type fakeEvents uint64

func (f fakeEvents) Dropped() uint64 {
	return uint64(f)
}

var _ = Describe("HTTP bridge", func() {
	var (
		sw     *fakeSwitch
		store  *storage.InmemoryStore
		router http.Handler
	)

	BeforeEach(func() {
		sw = &fakeSwitch{status: client.Status{State: client.StateConnected}}
		store = storage.NewInmemoryStore(nil)

		r := setupRouter(false, zap.NewNop())
		registerRoutes(r, sw, fakeEvents(3), store)
		router = r
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec
	}

	It("answers pings", func() {
		rec := do(http.MethodGet, "/ping", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("pong"))
	})

	It("reports connection status", func() {
		rec := do(http.MethodGet, "/status", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"state":"connected","dropped":3}`))
	})

	It("reports why the connection was lost", func() {
		sw.status = client.Status{
			State:  client.StateDisconnected,
			Reason: client.ReasonServerNotice,
		}

		rec := do(http.MethodGet, "/status", "")
		Expect(rec.Body.String()).To(MatchJSON(`{"state":"disconnected","reason":"server notice","dropped":3}`))
	})

	It("runs api commands", func() {
		rec := do(http.MethodPost, "/api", `{"command":"status"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"body":"+OK up 3 days\n"}`))
		Expect(sw.commands).To(Equal([]string{"status"}))
	})

	It("rejects requests without a command", func() {
		rec := do(http.MethodPost, "/api", `{}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(sw.commands).To(BeEmpty())
	})

	It("maps failed commands", func() {
		sw.err = protocol.NewError(protocol.ErrKindCommandFailed, "-ERR no such command", nil)

		rec := do(http.MethodPost, "/api", `{"command":"bogus"}`)
		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("maps a lost connection", func() {
		sw.err = protocol.NewError(protocol.ErrKindNotConnected, "not connected", nil)

		rec := do(http.MethodPost, "/bgapi", `{"command":"status"}`)
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("starts background jobs", func() {
		rec := do(http.MethodPost, "/bgapi", `{"command":"originate user/1000 &park"}`)
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(rec.Body.String()).To(MatchJSON(`{"jobUUID":"job-1"}`))
	})

	It("serves tracked channels", func() {
		ev := protocol.NewEvent(protocol.EventChannelCreate)
		ev.SetHeader(protocol.HeaderUniqueID, "u-1")
		Expect(store.Apply(context.Background(), ev)).To(Succeed())

		rec := do(http.MethodGet, "/channels", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"channels":["u-1"]}`))

		rec = do(http.MethodGet, "/channels/u-1", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"Event-Name":"CHANNEL_CREATE","Unique-ID":"u-1"}`))

		rec = do(http.MethodGet, "/channels/u-2", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("splitHostPort()", func() {
	It("splits an address", func() {
		h, p, err := splitHostPort("0.0.0.0:8040")
		Expect(err).To(Succeed())
		Expect(h).To(Equal("0.0.0.0"))
		Expect(p).To(Equal(8040))
	})

	It("rejects a bad port", func() {
		_, _, err := splitHostPort("0.0.0.0:x")
		Expect(err).To(HaveOccurred())
	})
})
