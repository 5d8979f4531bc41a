package countdown

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestFormat(t *testing.T) {
	check.Equal(t, Display{Hours: "00", Minutes: "00", Seconds: "01"}, Format(time.Second))
	check.Equal(t, Display{Hours: "00", Minutes: "59", Seconds: "59"}, Format(time.Hour-time.Second))
	check.Equal(t, Display{Hours: "26", Minutes: "01", Seconds: "05"}, Format(26*time.Hour+65*time.Second))

	// Sub-second remainders truncate, matching integer millisecond division.
	check.Equal(t, Display{Hours: "00", Minutes: "00", Seconds: "01"}, Format(1900*time.Millisecond))
}

func TestFormat_Terminal(t *testing.T) {
	terminal := Display{Hours: "00", Minutes: "00", Seconds: "00", Ended: true}
	check.Equal(t, terminal, Format(0))
	check.Equal(t, terminal, Format(-time.Minute))
	check.Equal(t, terminal, Format(500*time.Microsecond))
}
