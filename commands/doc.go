// Package commands builds the strings and commands applications send to the
// switch: dialplan applications, uuid_* channel commands, conference
// commands and originate. Nothing here performs I/O.
//
//   resp, err := c.API(ctx, commands.UUIDKill(id, "NORMAL_CLEARING"))
//
//   app := commands.Playback("ivr/ivr-welcome.wav")
//   app.UUID = id
//   resp, err = c.SendCommand(ctx, app)
package commands
