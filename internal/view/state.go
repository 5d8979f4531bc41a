package view

import (
	"time"

	"github.com/google/uuid"

	"github.com/m131y/rebay-auctionwatch/internal/auction"
	"github.com/m131y/rebay-auctionwatch/internal/countdown"
)

// CloseoutAttempt is the settlement guard's tri-state. The explicit
// IN_FLIGHT state is what keeps a second evaluation from double-firing the
// settlement call while the first is still on the wire; a plain boolean
// cannot distinguish "running" from "done".
type CloseoutAttempt string

const (
	CloseoutNotAttempted CloseoutAttempt = "NOT_ATTEMPTED"
	CloseoutInFlight     CloseoutAttempt = "IN_FLIGHT"
	CloseoutDone         CloseoutAttempt = "DONE"
)

// CloseoutState tracks the settlement attempt for one auction id. It is
// reset whenever the observed auction id changes, so a finished auction
// never blocks settlement of the next one. DONE is terminal for its id
// within the session.
type CloseoutState struct {
	AuctionID uuid.UUID
	Attempt   CloseoutAttempt
	Result    auction.SettlementOutcome
}

// State is the observer's working copy of an auction: the listing as
// loaded plus the settlement guard. Phase is never stored on it; it is
// recomputed from the clock on every evaluation. The state is owned by a
// single observing session and never shared.
type State struct {
	Listing  auction.Listing
	Closeout CloseoutState
}

// Phase derives the auction's lifecycle stage at the given instant.
func (s *State) Phase(now time.Time) auction.Phase {
	return auction.ResolvePhase(now, s.Listing.StartTime, s.Listing.EndTime)
}

// Snapshot is a point-in-time copy of everything an observer renders.
type Snapshot struct {
	Listing   auction.Listing
	Phase     auction.Phase
	Countdown countdown.Display
	Closeout  CloseoutState
}
