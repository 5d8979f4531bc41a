package countdown

import (
	"fmt"
	"time"
)

// Display is a human-facing remaining-time value. Hours, minutes and seconds
// are zero-padded strings ready for rendering. Ended marks the terminal
// display emitted once the deadline has passed.
type Display struct {
	Hours   string
	Minutes string
	Seconds string
	Ended   bool
}

// Format converts a remaining duration into a Display by integer-dividing
// the millisecond count, matching how the listing page renders it. Anything
// at or below zero collapses to the terminal display.
func Format(remaining time.Duration) Display {
	ms := remaining.Milliseconds()
	if ms <= 0 {
		return Display{Hours: "00", Minutes: "00", Seconds: "00", Ended: true}
	}
	total := ms / 1000
	return Display{
		Hours:   fmt.Sprintf("%02d", total/3600),
		Minutes: fmt.Sprintf("%02d", (total/60)%60),
		Seconds: fmt.Sprintf("%02d", total%60),
	}
}
