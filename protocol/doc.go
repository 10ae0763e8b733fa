package protocol

// This package implements parsing and serialising for the FreeSWITCH event
// socket protocol (ESL), the text protocol the switch speaks on its event
// socket in both inbound and outbound mode.
//
// - `Message` - A header block plus optional body, classified by Content-Type.
// - `Command` - A client instruction to the switch.
// - `Response` - The reply to a command, either command/reply or api/response.
// - `Event` - An asynchronous notification pushed by the switch.
//
// === General Syntax
//
// - header lines are `\n` delimited, a trailing `\r` is tolerated
// - a header block ends with an empty line, i.e. `\n\n`
// - a header is `Name: value`, split on the first `:` and trimmed
// - if a Content-Length header is present exactly that many bytes of body follow
//
// For example
//   ```
//     Content-Type: api/response
//     Content-Length: 3
//
//     +OK
//   ```
//
// Commands are a single line terminated by `\n\n`, except sendmsg and
// sendevent which carry a header block of their own.
//
//   ```
//     > api status\n\n
//     < Content-Type: api/response\n
//     < Content-Length: 44\n\n
//     < UP 0 years, 0 days, 1 hour...
//   ```
//
// Replies carry no correlation id. The switch answers commands in the order
// they were sent, so at most one command may await a reply at a time.
//
// === Events
//
// A plain event arrives as an envelope whose body is the event itself,
// percent-encoded headers followed by an optional inner Content-Length and
// body.
//
//   ```
//     Content-Length: 526
//     Content-Type: text/event-plain
//
//     Event-Name: BACKGROUND_JOB
//     Job-UUID: 7f4db78a-17d7-11dd-b7a0-db4edd065621
//     Content-Length: 40
//
//     +OK 7f4e4a76-17d7-11dd-b7a0-db4edd065621
//   ```
//
// JSON events are a single object whose keys are header names, the switch
// puts the body in the `_body` key. XML events are understood on a best
// effort basis only.
//
// === Disconnect notices
//
// text/disconnect-notice ends the session unless it carries
// `Content-Disposition: linger`, in which case the switch keeps sending the
// remaining events before closing.
//
