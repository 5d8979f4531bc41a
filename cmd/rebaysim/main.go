// Command rebaysim runs the in-memory auction backend with a seeded
// auction, for developing the watcher against something that actually
// broadcasts BID_UPDATE events.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/m131y/rebay-auctionwatch/internal/auction"
	"github.com/m131y/rebay-auctionwatch/internal/devserver"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	duration := flag.Duration("duration", 10*time.Minute, "seeded auction duration")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	clock := clockwork.NewRealClock()
	server := devserver.New(clock)

	listing := auction.Listing{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		StartTime:    clock.Now(),
		EndTime:      clock.Now().Add(*duration),
		StartPrice:   decimal.NewFromInt(10000),
		CurrentPrice: decimal.NewFromInt(10000),
		Title:        "seeded auction",
	}
	server.Seed(listing)

	log.Info().
		Str("auction_id", listing.ID.String()).
		Time("end_time", listing.EndTime).
		Str("addr", *addr).
		Msg("rebaysim ready")

	if err := http.ListenAndServe(*addr, server.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
