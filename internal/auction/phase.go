package auction

import "time"

// Phase is the auction's lifecycle stage, derived purely from time. It is
// never stored; callers recompute it on every evaluation so that two
// observers looking at the same instant always agree.
type Phase string

const (
	PhasePending Phase = "PENDING"
	PhaseActive  Phase = "ACTIVE"
	PhaseEnded   Phase = "ENDED"
)

// ResolvePhase maps a point in time onto the auction's phase. The boundaries
// are inclusive on both ends of the active window: an auction is ACTIVE from
// startTime through endTime, ENDED strictly after endTime. Degenerate
// windows (start == end, or even end before start) fall out of the same
// three-way comparison without special cases.
func ResolvePhase(now, startTime, endTime time.Time) Phase {
	if now.Before(startTime) {
		return PhasePending
	}
	if now.After(endTime) {
		return PhaseEnded
	}
	return PhaseActive
}

// CanStillChange reports whether the listing's price can still move, which
// is what gates opening a live bid channel. Once an auction has ended the
// server will never push another update for it.
func (p Phase) CanStillChange() bool {
	return p != PhaseEnded
}
