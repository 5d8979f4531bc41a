// Package devserver is an in-memory stand-in for the rebay auction
// backend, covering exactly the surface the watch engine consumes: listing
// fetch, the per-auction BID_UPDATE stream, bid submission, and settlement.
// It exists for local development and integration tests; it is not the
// product backend.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/m131y/rebay-auctionwatch/internal/auction"
)

func init() {
	// The auction API serves prices as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Server holds the simulated auctions and their stream subscribers.
type Server struct {
	clock clockwork.Clock

	mu       sync.Mutex
	auctions map[uuid.UUID]*record
}

type record struct {
	listing    auction.Listing
	highBidder string // credential of the current high bidder
	streams    map[chan auction.BidUpdate]bool
}

// New creates an empty dev server.
func New(clock clockwork.Clock) *Server {
	return &Server{
		clock:    clock,
		auctions: make(map[uuid.UUID]*record),
	}
}

// Seed registers an auction listing.
func (s *Server) Seed(listing auction.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[listing.ID] = &record{
		listing: listing,
		streams: make(map[chan auction.BidUpdate]bool),
	}
}

// Handler returns the full HTTP handler, wrapped with CORS and h2c the way
// the real backend fronts its API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auction/{id}", s.handleGetAuction)
	mux.HandleFunc("GET /api/auction/{id}/stream", s.handleStream)
	mux.HandleFunc("POST /api/auction/{id}/bid", s.handleBid)
	mux.HandleFunc("POST /api/auction/{id}/close", s.handleClose)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	rec.listing.ViewCount++
	listing := rec.listing
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if bearer(r) == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates := make(chan auction.BidUpdate, 16)
	s.mu.Lock()
	rec.streams[updates] = true
	auctionID := rec.listing.ID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(rec.streams, updates)
		s.mu.Unlock()
		log.Debug().Str("auction_id", auctionID.String()).Msg("stream subscriber disconnected")
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case update := <-updates:
			data, err := json.Marshal(update)
			if err != nil {
				log.Error().Err(err).Msg("marshal bid update")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", "BID_UPDATE", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	credential := bearer(r)
	if credential == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid bid payload")
		return
	}

	s.mu.Lock()
	now := s.clock.Now()
	phase := auction.ResolvePhase(now, rec.listing.StartTime, rec.listing.EndTime)
	if phase != auction.PhaseActive {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "auction is not active")
		return
	}
	if body.Amount.Cmp(rec.listing.CurrentPrice) <= 0 {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "bid must exceed the current price")
		return
	}
	rec.listing.CurrentPrice = body.Amount
	rec.highBidder = credential
	update := auction.BidUpdate{CurrentPrice: body.Amount}
	subscribers := make([]chan auction.BidUpdate, 0, len(rec.streams))
	for ch := range rec.streams {
		subscribers = append(subscribers, ch)
	}
	s.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- update:
		default:
			log.Warn().Msg("stream subscriber too slow, dropping update")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ACCEPTED"})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	credential := bearer(r)
	if credential == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body struct {
		EndTime string `json:"endTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid close payload")
		return
	}

	s.mu.Lock()
	now := s.clock.Now()
	phase := auction.ResolvePhase(now, rec.listing.StartTime, rec.listing.EndTime)
	if phase != auction.PhaseEnded {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "auction has not ended")
		return
	}
	outcome := auction.OutcomeLose
	if rec.highBidder == credential {
		outcome = auction.OutcomeWon
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, auction.CloseResult{AuctionStatus: outcome})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*record, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid auction id")
		return nil, false
	}
	s.mu.Lock()
	rec, ok := s.auctions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "auction not found")
		return nil, false
	}
	return rec, true
}

func bearer(r *http.Request) string {
	// A bare "Bearer" with nothing after it is not a credential.
	credential, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return credential
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
