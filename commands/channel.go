package commands

// API commands acting on a single channel, addressed by its UUID.

func UUIDAnswer(uuid string) string {
	return "uuid_answer " + uuid
}

func UUIDBridge(uuid, other string) string {
	return joinArgs("uuid_bridge", uuid, other)
}

// UUIDDeflect sends a SIP REFER for an answered channel.
func UUIDDeflect(uuid, uri string) string {
	return joinArgs("uuid_deflect", uuid, uri)
}

// UUIDHold places the channel on hold, or takes it off when off is set.
func UUIDHold(uuid string, off bool) string {
	if off {
		return "uuid_hold off " + uuid
	}

	return "uuid_hold " + uuid
}

// UUIDKill hangs the channel up with an optional cause.
func UUIDKill(uuid, cause string) string {
	return joinArgs("uuid_kill", uuid, cause)
}

// UUIDGetVar reads a variable. The api response body is the bare value.
func UUIDGetVar(uuid, name string) string {
	return joinArgs("uuid_getvar", uuid, name)
}

func UUIDSetVar(uuid, name, value string) string {
	return joinArgs("uuid_setvar", uuid, name, value)
}

// UUIDTransfer transfers to destination, optionally in another dialplan.
func UUIDTransfer(uuid, destination, dialplan string) string {
	return joinArgs("uuid_transfer", uuid, destination, dialplan)
}

func UUIDSendDTMF(uuid, digits string) string {
	return joinArgs("uuid_send_dtmf", uuid, digits)
}
