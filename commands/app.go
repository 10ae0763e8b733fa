package commands

import (
	"strings"

	"github.com/luma/esl/protocol"
)

// Answer answers the channel.
func Answer() protocol.Execute {
	return protocol.Execute{App: "answer"}
}

// Hangup hangs up with an optional cause such as NORMAL_CLEARING.
func Hangup(cause string) protocol.Execute {
	return protocol.Execute{App: "hangup", Args: cause}
}

// Playback plays a file or tone stream.
func Playback(file string) protocol.Execute {
	return protocol.Execute{App: "playback", Args: file}
}

// Bridge bridges the channel to a dial string.
func Bridge(destination string) protocol.Execute {
	return protocol.Execute{App: "bridge", Args: destination}
}

// Set sets a channel variable.
func Set(name, value string) protocol.Execute {
	return protocol.Execute{App: "set", Args: name + "=" + value}
}

// Park parks the channel.
func Park() protocol.Execute {
	return protocol.Execute{App: "park"}
}

// Transfer sends the channel to an extension, optionally in another
// dialplan and context.
func Transfer(extension, dialplan, context string) protocol.Execute {
	return protocol.Execute{App: "transfer", Args: joinArgs(extension, dialplan, context)}
}

func joinArgs(args ...string) string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a != "" {
			out = append(out, a)
		}
	}

	return strings.Join(out, " ")
}
