package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/m131y/rebay-auctionwatch/internal/auction"
	"github.com/m131y/rebay-auctionwatch/internal/bid"
	"github.com/m131y/rebay-auctionwatch/internal/countdown"
	"github.com/m131y/rebay-auctionwatch/internal/livebid"
	"github.com/m131y/rebay-auctionwatch/internal/metrics"
)

// ErrNotAuthenticated is returned when an action needs a viewer credential
// and the session has none. The caller decides what to do with it (the web
// frontend redirects to login).
var ErrNotAuthenticated = errors.New("viewer is not authenticated")

// API is what the session needs from the auction service.
type API interface {
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Listing, error)
	PlaceBid(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error
	CloseAuction(ctx context.Context, auctionID uuid.UUID, endTime time.Time) (*auction.CloseResult, error)
}

// Auth is the session/auth collaborator: who is watching, and with what
// credential. ViewerID reports false when nobody is logged in.
type Auth interface {
	ViewerID() (uuid.UUID, bool)
	Credential() string
}

// Notifier receives the user-facing notifications the engine produces:
// the settlement outcome (exactly once per auction id) and non-fatal
// errors worth surfacing.
type Notifier interface {
	NotifyOutcome(auctionID uuid.UUID, outcome auction.SettlementOutcome)
	NotifyError(auctionID uuid.UUID, message string)
}

// Session drives one observer's view of one auction at a time. It owns the
// view state, the live bid channel, the countdown presenter, and the
// settlement guard, and keeps them consistent across timer ticks, channel
// deliveries, and observer actions.
//
// Watch, Evaluate, SubmitBid and Stop belong to the observer's own task
// and are not safe to call concurrently with each other. The internal
// callbacks (ticks, channel deliveries, settlement completion) are
// synchronized against them.
type Session struct {
	api      API
	opener   livebid.Opener
	auth     Auth
	notifier Notifier
	clock    clockwork.Clock

	mu        sync.Mutex
	state     *State
	display   countdown.Display
	sub       livebid.Handle
	presenter *countdown.Presenter
	watchCtx  context.Context

	onTick func(Snapshot)
}

// NewSession creates a session for one observer.
func NewSession(api API, opener livebid.Opener, auth Auth, notifier Notifier, clock clockwork.Clock) *Session {
	return &Session{
		api:      api,
		opener:   opener,
		auth:     auth,
		notifier: notifier,
		clock:    clock,
	}
}

// OnTick registers a callback invoked with a fresh snapshot after every
// countdown tick. Must be set before Watch.
func (s *Session) OnTick(fn func(Snapshot)) { s.onTick = fn }

// Watch begins (or switches) observation of an auction. Any previous
// subscription is torn down first, channel closed then countdown stopped,
// and the prior auction's closeout state is left alone unless the id
// actually changed. Watch is safe to call more than once for the
// same auction id: the hosting runtime's lifecycle plumbing sometimes does
// exactly that, and the closeout guard, not the call count, decides
// whether settlement fires.
func (s *Session) Watch(ctx context.Context, auctionID uuid.UUID) error {
	// Teardown strictly before the new state is seeded, so nothing from
	// the previous auction can fire into the new one.
	s.teardown()

	listing, err := s.api.GetAuction(ctx, auctionID)
	if err != nil {
		// Listing fetch failure is terminal for this observation; the
		// observer renders an "unavailable" state.
		return fmt.Errorf("load auction %s: %w", auctionID, err)
	}

	s.mu.Lock()
	prev := s.state
	next := &State{Listing: *listing}
	if prev != nil && prev.Closeout.AuctionID == listing.ID {
		next.Closeout = prev.Closeout
	} else {
		next.Closeout = CloseoutState{AuctionID: listing.ID, Attempt: CloseoutNotAttempted}
	}
	s.state = next
	s.display = countdown.Format(listing.EndTime.Sub(s.clock.Now()))
	s.watchCtx = ctx
	phase := next.Phase(s.clock.Now())
	s.mu.Unlock()

	log.Info().
		Str("auction_id", listing.ID.String()).
		Str("phase", string(phase)).
		Str("current_price", listing.CurrentPrice.String()).
		Msg("watching auction")

	if _, authed := s.auth.ViewerID(); authed && phase.CanStillChange() {
		sub, err := s.opener.Open(ctx, listing.ID, s.auth.Credential(), s.applyBidUpdate, s.channelError)
		if err != nil {
			// Channel-level failure is not fatal: the view keeps working
			// on the last known price.
			log.Warn().Err(err).Str("auction_id", listing.ID.String()).Msg("live bid channel unavailable")
			s.notifier.NotifyError(listing.ID, "live price updates unavailable")
		} else {
			s.sub = sub
		}
	}

	s.presenter = countdown.Start(s.clock, listing.EndTime, s.handleTick)

	s.Evaluate()
	return nil
}

// Stop ends observation: channel first, countdown second. The abandoned
// auction's closeout state stays as-is; it is simply no longer consulted.
// No timer or subscription survives Stop.
func (s *Session) Stop() {
	s.teardown()
}

func (s *Session) teardown() {
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	if s.presenter != nil {
		s.presenter.Stop()
		s.presenter = nil
	}
}

// Evaluate recomputes the phase and runs the closeout trigger. It is
// invoked on every tick, every channel delivery, and at watch time, and is
// harmless to invoke again at any point: the tri-state guard makes
// re-entrant evaluation a no-op while settlement is in flight or done.
func (s *Session) Evaluate() auction.Phase {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return ""
	}
	state := s.state
	phase := state.Phase(s.clock.Now())

	if phase != auction.PhaseEnded || state.Closeout.Attempt != CloseoutNotAttempted {
		s.mu.Unlock()
		return phase
	}

	state.Closeout.Attempt = CloseoutInFlight
	auctionID := state.Listing.ID
	endTime := state.Listing.EndTime
	ctx := s.watchCtx
	s.mu.Unlock()

	log.Info().Str("auction_id", auctionID.String()).Msg("auction ended, triggering settlement")
	go s.settle(ctx, auctionID, endTime)

	return phase
}

// settle performs the settlement call for an ended auction. Success marks
// the guard DONE and notifies the observer exactly once; failure returns
// the guard to NOT_ATTEMPTED so the next natural re-evaluation retries.
// No dedicated retry loop exists.
func (s *Session) settle(ctx context.Context, auctionID uuid.UUID, endTime time.Time) {
	result, err := s.api.CloseAuction(ctx, auctionID, endTime)

	s.mu.Lock()
	if s.state == nil || s.state.Closeout.AuctionID != auctionID || s.state.Closeout.Attempt != CloseoutInFlight {
		// The observer moved on; this auction's guard is no longer ours.
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.state.Closeout.Attempt = CloseoutNotAttempted
		s.mu.Unlock()
		metrics.Settlements.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("auction_id", auctionID.String()).Msg("settlement failed, will retry on next evaluation")
		return
	}
	s.state.Closeout.Attempt = CloseoutDone
	s.state.Closeout.Result = result.AuctionStatus
	s.mu.Unlock()

	metrics.Settlements.WithLabelValues("done").Inc()
	log.Info().
		Str("auction_id", auctionID.String()).
		Str("outcome", string(result.AuctionStatus)).
		Msg("settlement done")
	s.notifier.NotifyOutcome(auctionID, result.AuctionStatus)
}

// SubmitBid runs the bid submission protocol against the current view
// state. The outcome never carries a price: even an accepted bid changes
// nothing locally until the server broadcasts the canonical update.
func (s *Session) SubmitBid(ctx context.Context, amount decimal.Decimal) bid.Outcome {
	if _, authed := s.auth.ViewerID(); !authed {
		return bid.Outcome{Err: ErrNotAuthenticated}
	}

	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return bid.Outcome{Err: errors.New("no auction is being watched")}
	}
	auctionID := s.state.Listing.ID
	currentPrice := s.state.Listing.CurrentPrice
	phase := s.state.Phase(s.clock.Now())
	s.mu.Unlock()

	return bid.Submit(ctx, s.api, auctionID, amount, currentPrice, phase)
}

// Snapshot returns a copy of what the observer should render right now.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return Snapshot{}
	}
	return Snapshot{
		Listing:   s.state.Listing,
		Phase:     s.state.Phase(s.clock.Now()),
		Countdown: s.display,
		Closeout:  s.state.Closeout,
	}
}

// applyBidUpdate is the live bid channel's delivery callback. The incoming
// value overwrites the current price unconditionally, with no comparison or
// merge, which is what makes duplicate delivery and reconnection replay
// harmless.
func (s *Session) applyBidUpdate(update auction.BidUpdate) {
	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return
	}
	s.state.Listing.CurrentPrice = update.CurrentPrice
	auctionID := s.state.Listing.ID
	s.mu.Unlock()

	log.Debug().
		Str("auction_id", auctionID.String()).
		Str("current_price", update.CurrentPrice.String()).
		Msg("price updated from channel")

	s.Evaluate()
}

func (s *Session) channelError(err error) {
	s.mu.Lock()
	var auctionID uuid.UUID
	if s.state != nil {
		auctionID = s.state.Listing.ID
	}
	s.mu.Unlock()

	log.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("live bid channel error")
	s.notifier.NotifyError(auctionID, "live price updates interrupted")
}

func (s *Session) handleTick(display countdown.Display) {
	s.mu.Lock()
	s.display = display
	s.mu.Unlock()

	s.Evaluate()

	if s.onTick != nil {
		s.onTick(s.Snapshot())
	}
}
