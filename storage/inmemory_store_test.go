package storage_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/esl/protocol"
	"github.com/luma/esl/storage"
)

func channelEvent(kind protocol.EventKind, uuid string, headers map[string]string) *protocol.Event {
	ev := protocol.NewEvent(kind)
	ev.SetHeader(protocol.HeaderUniqueID, uuid)

	for k, v := range headers {
		ev.SetHeader(k, v)
	}

	return ev
}

var _ = Describe("storage / InmemoryStore", func() {
	var (
		ctx   context.Context
		store *storage.InmemoryStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = storage.NewInmemoryStore(nil)
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("Close()", func() {
		It("does not panic when closed twice", func() {
			Expect(func() { store.Close() }).NotTo(Panic())
			Expect(func() { store.Close() }).NotTo(Panic())
		})

		It("closes update channels", func() {
			updates := store.ListenToUpdates()
			Expect(store.Close()).To(Succeed())
			Eventually(updates).Should(BeClosed())
		})

		It("rejects events once closed", func() {
			Expect(store.Close()).To(Succeed())
			err := store.Apply(ctx, channelEvent(protocol.EventChannelCreate, "u-1", nil))
			Expect(err).To(MatchError(storage.ErrClosed))
		})
	})

	It("an empty inmemory store equals {}", func() {
		value, err := store.Backup()
		Expect(err).To(Succeed())
		Expect(string(value)).To(Equal(`{}`))
	})

	Describe("Apply() / Get()", func() {
		It("tracks a new channel", func() {
			ev := channelEvent(protocol.EventChannelCreate, "u-1", map[string]string{
				"Channel-State": "CS_INIT",
			})
			Expect(store.Apply(ctx, ev)).To(Succeed())

			channel, err := store.Channel(ctx, "u-1")
			Expect(err).To(Succeed())
			Expect(channel).To(HaveKeyWithValue("Channel-State", "CS_INIT"))
			Expect(channel).To(HaveKeyWithValue("Event-Name", "CHANNEL_CREATE"))
			Expect(store.List(ctx)).To(Equal([]string{"u-1"}))
		})

		It("merges later events into the channel", func() {
			Expect(store.Apply(ctx, channelEvent(protocol.EventChannelCreate, "u-1", map[string]string{
				"Channel-State":    "CS_INIT",
				"Caller-Caller-ID": "1000",
			}))).To(Succeed())
			Expect(store.Apply(ctx, channelEvent(protocol.EventChannelAnswer, "u-1", map[string]string{
				"Channel-State": "CS_EXECUTE",
			}))).To(Succeed())

			channel, err := store.Channel(ctx, "u-1")
			Expect(err).To(Succeed())
			Expect(channel).To(HaveKeyWithValue("Channel-State", "CS_EXECUTE"))
			Expect(channel).To(HaveKeyWithValue("Caller-Caller-ID", "1000"))
			Expect(channel).To(HaveKeyWithValue("Event-Name", "CHANNEL_ANSWER"))
		})

		It("handles uuids and headers with path characters", func() {
			ev := channelEvent(protocol.EventChannelCreate, "a.b*c", map[string]string{
				"variable_sip.h": "x",
			})
			Expect(store.Apply(ctx, ev)).To(Succeed())

			channel, err := store.Channel(ctx, "a.b*c")
			Expect(err).To(Succeed())
			Expect(channel).To(HaveKeyWithValue("variable_sip.h", "x"))
		})

		It("forgets channels on CHANNEL_DESTROY", func() {
			Expect(store.Apply(ctx, channelEvent(protocol.EventChannelCreate, "u-1", nil))).To(Succeed())
			Expect(store.Apply(ctx, channelEvent(protocol.EventChannelCreate, "u-2", nil))).To(Succeed())
			Expect(store.Apply(ctx, channelEvent(protocol.EventChannelDestroy, "u-1", nil))).To(Succeed())

			_, err := store.Get(ctx, "u-1")
			Expect(err).To(MatchError(storage.ErrNotFound))
			Expect(store.List(ctx)).To(Equal([]string{"u-2"}))
		})

		It("ignores events without a channel", func() {
			Expect(store.Apply(ctx, protocol.NewEvent(protocol.EventHeartbeat))).To(Succeed())
			Expect(store.List(ctx)).To(BeEmpty())
		})

		It("sends on the update channel when channels change", func() {
			updates := store.ListenToUpdates()

			Expect(store.Apply(ctx, channelEvent(protocol.EventChannelCreate, "u-1", nil))).To(Succeed())

			var update *storage.Update
			Eventually(updates).Should(Receive(&update))
			Expect(update.UUID).To(Equal("u-1"))
			Expect(update.Removed).To(BeFalse())
			Expect(string(update.Value)).To(ContainSubstring(`"Unique-ID":"u-1"`))

			Expect(store.Apply(ctx, channelEvent(protocol.EventChannelDestroy, "u-1", nil))).To(Succeed())
			Eventually(updates).Should(Receive(Equal(&storage.Update{UUID: "u-1", Removed: true})))
		})
	})

	Describe("Restore() / Backup()", func() {
		It("round-trips the tracked channels", func() {
			Expect(store.Restore([]byte(`{"u-1":{"Channel-State":"CS_EXECUTE"}}`))).To(Succeed())

			channel, err := store.Channel(ctx, "u-1")
			Expect(err).To(Succeed())
			Expect(channel).To(Equal(map[string]string{"Channel-State": "CS_EXECUTE"}))

			Expect(store.Backup()).To(MatchJSON(`{"u-1":{"Channel-State":"CS_EXECUTE"}}`))
		})

		It("rejects anything but a json object", func() {
			Expect(store.Restore([]byte(`[1,2]`))).NotTo(Succeed())
			Expect(store.Restore([]byte(`{"u-1":`))).NotTo(Succeed())
		})
	})
})
