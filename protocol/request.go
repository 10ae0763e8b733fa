package protocol

import "time"

// Command is a request sent to the switch. The set of commands is closed,
// see Marshal for the wire form of each.
type Command interface {
	command()
}

// Auth authenticates an inbound connection with the event socket password.
type Auth struct {
	Password string
}

// UserAuth authenticates as a directory user, User is user@domain.
type UserAuth struct {
	User     string
	Password string
}

// API runs a blocking API command. The reply is an api/response.
type API struct {
	Command string
}

// BgAPI runs an API command in the background. Completion is reported by a
// BACKGROUND_JOB event carrying the job UUID. JobUUID optionally chooses that
// UUID instead of letting the switch pick one.
type BgAPI struct {
	Command string
	JobUUID string
}

// Subscribe is the "event" command: subscribe to events in a format.
// Events is a space separated list of names, or "ALL".
type Subscribe struct {
	Format EventFormat
	Events string
}

// Filter only delivers events whose Header equals Value.
type Filter struct {
	Header string
	Value  string
}

// FilterDelete removes filters. Header "all" removes every filter, an empty
// Value removes all filters on Header.
type FilterDelete struct {
	Header string
	Value  string
}

// SendMsg sends a message to a channel. UUID may be empty in outbound mode.
type SendMsg struct {
	UUID  string
	Event *Event
}

// Execute runs a dialplan application on a channel, as a sendmsg with
// call-command: execute.
type Execute struct {
	App  string
	Args string
	UUID string

	// Lock makes the switch queue the application behind the ones already
	// running on the channel.
	Lock bool
	// Loops repeats the application, zero means once.
	Loops int
}

// SendEvent injects an event into the switch's event system.
type SendEvent struct {
	Event *Event
}

// MyEvents subscribes to the events of one channel. UUID may be empty in
// outbound mode.
type MyEvents struct {
	Format EventFormat
	UUID   string
}

// Linger keeps the socket open after hangup so the remaining events are
// delivered. A zero Timeout means until the switch decides.
type Linger struct {
	Timeout time.Duration
}

// NixEvent unsubscribes from the given space separated events.
type NixEvent struct {
	Events string
}

// DivertEvents turns event diversion for the session on or off.
type DivertEvents struct {
	On bool
}

// GetVar reads a channel variable in outbound mode.
type GetVar struct {
	Name string
}

// Log enables log/data delivery at the given level.
type Log struct {
	Level string
}

type (
	// NoLinger cancels Linger.
	NoLinger struct{}
	// Resume continues the dialplan when the socket disconnects.
	Resume struct{}
	// NoEvents cancels all subscriptions.
	NoEvents struct{}
	// Exit asks the switch to close the socket.
	Exit struct{}
	// NoLog disables log delivery.
	NoLog struct{}
	// NoOp does nothing, it is useful as a keepalive.
	NoOp struct{}
	// Connect starts an outbound session. The reply carries the channel data.
	Connect struct{}
)

func (Auth) command()         {}
func (UserAuth) command()     {}
func (API) command()          {}
func (BgAPI) command()        {}
func (Subscribe) command()    {}
func (Filter) command()       {}
func (FilterDelete) command() {}
func (SendMsg) command()      {}
func (Execute) command()      {}
func (SendEvent) command()    {}
func (MyEvents) command()     {}
func (Linger) command()       {}
func (NixEvent) command()     {}
func (DivertEvents) command() {}
func (GetVar) command()       {}
func (Log) command()          {}
func (NoLinger) command()     {}
func (Resume) command()       {}
func (NoEvents) command()     {}
func (Exit) command()         {}
func (NoLog) command()        {}
func (NoOp) command()         {}
func (Connect) command()      {}
