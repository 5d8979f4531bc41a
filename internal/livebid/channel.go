package livebid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/m131y/rebay-auctionwatch/internal/auction"
	"github.com/m131y/rebay-auctionwatch/internal/metrics"
)

// Lifecycle is the state of a channel subscription.
type Lifecycle string

const (
	LifecycleConnecting Lifecycle = "CONNECTING"
	LifecycleOpen       Lifecycle = "OPEN"
	LifecycleClosed     Lifecycle = "CLOSED"
)

// EventBidUpdate is the named SSE event carrying a canonical price.
const EventBidUpdate = "BID_UPDATE"

// ChannelError is a subscription-level failure: the channel could not be
// opened or the transport dropped. It is never fatal to the observing
// session, which keeps operating on the last known price.
type ChannelError struct {
	AuctionID uuid.UUID
	Err       error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("live bid channel for auction %s: %v", e.AuctionID, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Handle is an open subscription. Close is a hard guarantee: once it
// returns, no queued update delivery will run. Close must not be called
// from inside the subscription's own callbacks.
type Handle interface {
	Close()
	Lifecycle() Lifecycle
}

// Opener opens live bid channels. The production implementation is Client;
// session tests substitute stubs.
type Opener interface {
	Open(ctx context.Context, auctionID uuid.UUID, credential string, onUpdate func(auction.BidUpdate), onError func(error)) (Handle, error)
}

// Client subscribes to the server's per-auction bid stream over SSE. The
// server holds the stream open indefinitely; reconnection policy belongs to
// whoever owns the Client. The Client's only job is correct open/close
// discipline.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a channel client against the rebay API base URL. The
// underlying http.Client carries no timeout; the stream is long-lived and
// is torn down through the subscription context instead.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{},
	}
}

// Open starts one subscription for auctionID and delivers every BID_UPDATE
// through onUpdate from a dedicated goroutine. Transport failures after a
// successful open are reported once through onError and end delivery. The
// caller owns the at-most-one-per-auction-id rule; the returned handle just
// guarantees its own teardown.
func (c *Client) Open(ctx context.Context, auctionID uuid.UUID, credential string, onUpdate func(auction.BidUpdate), onError func(error)) (Handle, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	sub := &Subscription{
		auctionID: auctionID,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     LifecycleConnecting,
	}

	url := fmt.Sprintf("%s/api/auction/%s/stream", c.baseURL, auctionID)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		close(sub.done)
		sub.setState(LifecycleClosed)
		return nil, &ChannelError{AuctionID: auctionID, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpc.Do(req)
	if err != nil {
		cancel()
		close(sub.done)
		sub.setState(LifecycleClosed)
		return nil, &ChannelError{AuctionID: auctionID, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		close(sub.done)
		sub.setState(LifecycleClosed)
		return nil, &ChannelError{AuctionID: auctionID, Err: fmt.Errorf("stream returned status %d", resp.StatusCode)}
	}

	sub.setState(LifecycleOpen)
	metrics.ChannelOpens.Inc()
	log.Info().Str("auction_id", auctionID.String()).Msg("live bid channel open")

	go sub.deliver(streamCtx, resp, onUpdate, onError)

	return sub, nil
}

// Subscription is one open bid stream. At most one exists per auction id
// per observing session.
type Subscription struct {
	auctionID uuid.UUID
	cancel    context.CancelFunc
	done      chan struct{}

	mu    sync.Mutex
	state Lifecycle
}

// Close tears the stream down and waits for the delivery goroutine to exit.
// When Close returns, the subscription's onUpdate will never fire again, so
// a caller may open a channel for a different auction id immediately
// afterwards without cross-delivery.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
	s.setState(LifecycleClosed)
}

func (s *Subscription) Lifecycle() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(state Lifecycle) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Subscription) deliver(ctx context.Context, resp *http.Response, onUpdate func(auction.BidUpdate), onError func(error)) {
	defer close(s.done)
	defer resp.Body.Close()

	scanner := newEventScanner(resp.Body)
	for scanner.Next() {
		event := scanner.Event()
		if event.Name != EventBidUpdate {
			continue
		}

		var update auction.BidUpdate
		if err := json.Unmarshal([]byte(event.Data), &update); err != nil {
			log.Warn().
				Err(err).
				Str("auction_id", s.auctionID.String()).
				Str("data", event.Data).
				Msg("dropping malformed bid update")
			continue
		}

		metrics.PriceUpdates.Inc()
		onUpdate(update)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("auction_id", s.auctionID.String()).Msg("live bid channel dropped")
		metrics.ChannelDrops.Inc()
		if onError != nil {
			onError(&ChannelError{AuctionID: s.auctionID, Err: err})
		}
	}
}
