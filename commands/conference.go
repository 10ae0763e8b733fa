package commands

// MuteAction is mute or unmute.
type MuteAction string

const (
	Mute   MuteAction = "mute"
	Unmute MuteAction = "unmute"
)

// HoldAction is hold or unhold.
type HoldAction string

const (
	Hold   HoldAction = "hold"
	Unhold HoldAction = "unhold"
)

// ConferenceMute mutes or unmutes a member.
func ConferenceMute(name string, action MuteAction, member string) string {
	return joinArgs("conference", name, string(action), member)
}

// ConferenceHold holds or unholds a member, optionally playing stream to
// the held member.
func ConferenceHold(name string, action HoldAction, member, stream string) string {
	return joinArgs("conference", name, string(action), member, stream)
}

// ConferenceDTMF sends digits to a member.
func ConferenceDTMF(name, member, digits string) string {
	return joinArgs("conference", name, "dtmf", member, digits)
}
