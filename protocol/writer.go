package protocol

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Headers used by sendmsg to drive dialplan applications.
const (
	HeaderCallCommand    = "call-command"
	HeaderExecuteAppName = "execute-app-name"
	HeaderExecuteAppArg  = "execute-app-arg"
	HeaderEventLock      = "event-lock"
	HeaderLoops          = "loops"

	CallCommandExecute = "execute"
)

// WriteCommand writes the wire form of cmd to w.
func WriteCommand(w io.Writer, cmd Command) error {
	_, err := io.WriteString(w, Marshal(cmd))
	return err
}

// Marshal returns the wire form of cmd, including its terminating blank line.
func Marshal(cmd Command) string {
	switch c := cmd.(type) {
	case Auth:
		return simple("auth", c.Password)
	case UserAuth:
		return simple("userauth", c.User+":"+c.Password)
	case API:
		return simple("api", c.Command)
	case BgAPI:
		if c.JobUUID == "" {
			return simple("bgapi", c.Command)
		}

		return "bgapi " + c.Command + LineTerminator +
			HeaderJobUUID + ": " + c.JobUUID + HeaderTerminator
	case Subscribe:
		return simple("event", string(c.Format), c.Events)
	case Filter:
		return simple("filter", c.Header, c.Value)
	case FilterDelete:
		if c.Header == "all" || c.Header == "" {
			return simple("filter", "delete", "all")
		}

		return simple("filter", "delete", c.Header, c.Value)
	case SendMsg:
		return marshalSendMsg(c.UUID, c.Event)
	case Execute:
		return marshalSendMsg(c.UUID, c.event())
	case SendEvent:
		return marshalSendEvent(c.Event)
	case MyEvents:
		return simple("myevents", c.UUID, string(c.Format))
	case Linger:
		if secs := int(c.Timeout.Seconds()); secs > 0 {
			return simple("linger", strconv.Itoa(secs))
		}

		return simple("linger")
	case NixEvent:
		return simple("nixevent", c.Events)
	case DivertEvents:
		if c.On {
			return simple("divert_events", "on")
		}

		return simple("divert_events", "off")
	case GetVar:
		return simple("getvar", c.Name)
	case Log:
		return simple("log", c.Level)
	case NoLinger:
		return simple("nolinger")
	case Resume:
		return simple("resume")
	case NoEvents:
		return simple("noevents")
	case Exit:
		return simple("exit")
	case NoLog:
		return simple("nolog")
	case NoOp:
		return simple("noop")
	case Connect:
		return simple("connect")
	default:
		panic(fmt.Sprintf("protocol: unknown command %T", cmd))
	}
}

// simple joins the verb and its non-empty arguments with spaces.
func simple(verb string, args ...string) string {
	var b strings.Builder
	b.WriteString(verb)

	for _, arg := range args {
		if arg == "" {
			continue
		}

		b.WriteByte(' ')
		b.WriteString(arg)
	}

	b.WriteString(HeaderTerminator)

	return b.String()
}

// sendmsg header values go out verbatim, applications receive them as is.
func marshalSendMsg(uuid string, ev *Event) string {
	var b strings.Builder
	b.WriteString("sendmsg")

	if uuid != "" {
		b.WriteByte(' ')
		b.WriteString(uuid)
	}

	b.WriteString(LineTerminator)

	if ev == nil {
		b.WriteString(LineTerminator)
		return b.String()
	}

	ev.writeHeaders(&b, func(s string) string { return s })
	ev.writeBody(&b)

	return b.String()
}

func marshalSendEvent(ev *Event) string {
	if ev == nil {
		ev = NewEvent(EventCustom)
	}

	var b strings.Builder
	b.WriteString("sendevent ")
	b.WriteString(ev.Name())
	b.WriteString(LineTerminator)
	b.WriteString(ev.ToPlain())

	return b.String()
}

func (c Execute) event() *Event {
	ev := NewEvent(EventNone)
	ev.SetHeader(HeaderCallCommand, CallCommandExecute)
	ev.SetHeader(HeaderExecuteAppName, c.App)

	if c.Args != "" {
		ev.SetHeader(HeaderExecuteAppArg, c.Args)
	}

	if c.Lock {
		ev.SetHeader(HeaderEventLock, "true")
	}

	if c.Loops > 1 {
		ev.SetHeader(HeaderLoops, strconv.Itoa(c.Loops))
	}

	return ev
}
