package protocol

import (
	"strconv"
	"strings"
)

// Timetable holds the channel timestamps carried by channel events, in
// microseconds since the epoch. Nil fields were absent or unparsable.
type Timetable struct {
	ProfileCreated  *int64
	Created         *int64
	Answered        *int64
	Progress        *int64
	ProgressMedia   *int64
	Hungup          *int64
	Transferred     *int64
	Resurrected     *int64
	Bridged         *int64
	LastHold        *int64
	HoldAccumulated *int64
}

// Timetable prefixes used by the switch for the channel and its peers.
const (
	TimetableCaller     = "Caller"
	TimetableOtherLeg   = "Other-Leg"
	TimetableChannel    = "Channel"
	TimetableOriginator = "Originator"
	TimetableOriginatee = "Originatee"
)

// Timetable extracts "<prefix>-<Field>" timestamps such as
// Caller-Channel-Answered-Time. It returns nil when none parse.
func (e *Event) Timetable(prefix string) *Timetable {
	prefix = strings.TrimSuffix(prefix, "-") + "-"

	tt := &Timetable{}
	fields := []struct {
		suffix string
		dst    **int64
	}{
		{"Profile-Created-Time", &tt.ProfileCreated},
		{"Channel-Created-Time", &tt.Created},
		{"Channel-Answered-Time", &tt.Answered},
		{"Channel-Progress-Time", &tt.Progress},
		{"Channel-Progress-Media-Time", &tt.ProgressMedia},
		{"Channel-Hangup-Time", &tt.Hungup},
		{"Channel-Transfer-Time", &tt.Transferred},
		{"Channel-Resurrect-Time", &tt.Resurrected},
		{"Channel-Bridged-Time", &tt.Bridged},
		{"Channel-Last-Hold", &tt.LastHold},
		{"Channel-Hold-Accum", &tt.HoldAccumulated},
	}

	found := false
	for _, f := range fields {
		raw, ok := e.Headers[prefix+f.suffix]
		if !ok {
			continue
		}

		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}

		*f.dst = &v
		found = true
	}

	if !found {
		return nil
	}

	return tt
}
