package protocol_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/esl/protocol"
)

var _ = Describe("Writer", func() {
	DescribeTable("Marshal()",
		func(cmd protocol.Command, wire string) {
			Expect(protocol.Marshal(cmd)).To(Equal(wire))
		},
		Entry("auth", protocol.Auth{Password: "ClueCon"}, "auth ClueCon\n\n"),
		Entry("userauth", protocol.UserAuth{User: "1000@example.com", Password: "pw"}, "userauth 1000@example.com:pw\n\n"),
		Entry("api", protocol.API{Command: "status"}, "api status\n\n"),
		Entry("bgapi", protocol.BgAPI{Command: "originate user/1000 &park"}, "bgapi originate user/1000 &park\n\n"),
		Entry("bgapi with job uuid", protocol.BgAPI{Command: "status", JobUUID: "j-1"}, "bgapi status\nJob-UUID: j-1\n\n"),
		Entry("event", protocol.Subscribe{Format: protocol.FormatPlain, Events: "ALL"}, "event plain ALL\n\n"),
		Entry("filter", protocol.Filter{Header: "Unique-ID", Value: "abc"}, "filter Unique-ID abc\n\n"),
		Entry("filter delete all", protocol.FilterDelete{Header: "all"}, "filter delete all\n\n"),
		Entry("filter delete header", protocol.FilterDelete{Header: "Unique-ID"}, "filter delete Unique-ID\n\n"),
		Entry("filter delete value", protocol.FilterDelete{Header: "Unique-ID", Value: "abc"}, "filter delete Unique-ID abc\n\n"),
		Entry("myevents", protocol.MyEvents{Format: protocol.FormatJSON}, "myevents json\n\n"),
		Entry("myevents for uuid", protocol.MyEvents{Format: protocol.FormatPlain, UUID: "u-1"}, "myevents u-1 plain\n\n"),
		Entry("linger", protocol.Linger{}, "linger\n\n"),
		Entry("linger with timeout", protocol.Linger{Timeout: 600 * time.Second}, "linger 600\n\n"),
		Entry("nolinger", protocol.NoLinger{}, "nolinger\n\n"),
		Entry("resume", protocol.Resume{}, "resume\n\n"),
		Entry("nixevent", protocol.NixEvent{Events: "HEARTBEAT"}, "nixevent HEARTBEAT\n\n"),
		Entry("noevents", protocol.NoEvents{}, "noevents\n\n"),
		Entry("divert_events on", protocol.DivertEvents{On: true}, "divert_events on\n\n"),
		Entry("divert_events off", protocol.DivertEvents{}, "divert_events off\n\n"),
		Entry("getvar", protocol.GetVar{Name: "caller_id_name"}, "getvar caller_id_name\n\n"),
		Entry("log", protocol.Log{Level: "debug"}, "log debug\n\n"),
		Entry("nolog", protocol.NoLog{}, "nolog\n\n"),
		Entry("noop", protocol.NoOp{}, "noop\n\n"),
		Entry("exit", protocol.Exit{}, "exit\n\n"),
		Entry("connect", protocol.Connect{}, "connect\n\n"),
	)

	Describe("sendmsg", func() {
		It("desugars execute into call-command headers", func() {
			wire := protocol.Marshal(protocol.Execute{App: "hangup", Args: "NORMAL_CLEARING", UUID: "u-1"})
			Expect(wire).To(Equal("sendmsg u-1\n" +
				"call-command: execute\n" +
				"execute-app-arg: NORMAL_CLEARING\n" +
				"execute-app-name: hangup\n" +
				"\n"))
		})

		It("omits the uuid and arg when absent", func() {
			wire := protocol.Marshal(protocol.Execute{App: "answer", Lock: true})
			Expect(wire).To(Equal("sendmsg\n" +
				"call-command: execute\n" +
				"event-lock: true\n" +
				"execute-app-name: answer\n" +
				"\n"))
		})

		It("appends the body with its length", func() {
			ev := protocol.NewEvent(protocol.EventNone)
			ev.SetHeader("call-command", "unicast")
			ev.Body = "payload"

			wire := protocol.Marshal(protocol.SendMsg{UUID: "u-1", Event: ev})
			Expect(wire).To(Equal("sendmsg u-1\ncall-command: unicast\nContent-Length: 7\n\npayload"))
		})
	})

	Describe("sendevent", func() {
		It("uses the event kind as the name and encodes values", func() {
			ev := protocol.NewEvent(protocol.EventCustom)
			ev.SetHeader("Event-Subclass", "my::event")
			ev.SetPriority(protocol.PriorityHigh)

			wire := protocol.Marshal(protocol.SendEvent{Event: ev})
			Expect(wire).To(Equal("sendevent CUSTOM\n" +
				"Event-Name: CUSTOM\n" +
				"Event-Subclass: my%3A%3Aevent\n" +
				"priority: HIGH\n" +
				"\n"))
		})

		It("defaults the name to CUSTOM", func() {
			wire := protocol.Marshal(protocol.SendEvent{Event: protocol.NewEvent(protocol.EventNone)})
			Expect(wire).To(Equal("sendevent CUSTOM\n\n"))
		})
	})

	It("writes commands to a writer", func() {
		var buf bytes.Buffer
		Expect(protocol.WriteCommand(&buf, protocol.API{Command: "status"})).To(Succeed())
		Expect(buf.String()).To(Equal("api status\n\n"))
	})
})
