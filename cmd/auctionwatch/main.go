// Command auctionwatch observes one rebay auction from the terminal: it
// keeps the displayed price in sync with the server's bid stream, shows
// the countdown, fires settlement when the auction ends, and lets the
// viewer place bids from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/m131y/rebay-auctionwatch/clients/auctionapi"
	"github.com/m131y/rebay-auctionwatch/internal/auction"
	"github.com/m131y/rebay-auctionwatch/internal/bid"
	"github.com/m131y/rebay-auctionwatch/internal/livebid"
	"github.com/m131y/rebay-auctionwatch/internal/metrics"
	"github.com/m131y/rebay-auctionwatch/internal/view"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	if flag.NArg() != 1 {
		log.Fatal().Msg("usage: auctionwatch [-config file] <auction-id>")
	}
	auctionID, err := uuid.Parse(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auction id")
	}

	api := auctionapi.NewClient(config.API.BaseURL)
	api.SetCredential(config.Viewer.Credential)

	auth := staticAuth{credential: config.Viewer.Credential}
	if config.Viewer.ID != "" {
		viewerID, err := uuid.Parse(config.Viewer.ID)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid viewer id")
		}
		auth.viewerID = viewerID
		auth.authed = true
	}

	session := view.NewSession(
		api,
		livebid.NewClient(config.API.BaseURL),
		auth,
		logNotifier{},
		clockwork.NewRealClock(),
	)

	go func() {
		log.Info().Str("addr", config.MetricsAddr).Msg("serving metrics")
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(config.MetricsAddr, mux); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Watch(ctx, auctionID); err != nil {
		log.Fatal().Err(err).Msg("auction unavailable")
	}
	defer session.Stop()

	go readBids(ctx, session)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
}

// readBids accepts bid amounts typed on stdin while the auction is active.
func readBids(ctx context.Context, session *view.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			snapshot := session.Snapshot()
			log.Info().
				Str("suggested", bid.Suggest(snapshot.Listing.CurrentPrice).String()).
				Msg("enter an amount to bid")
			continue
		}

		amount, err := bid.ParseAmount(input)
		if err != nil {
			log.Warn().Err(err).Msg("bid not submitted")
			continue
		}

		outcome := session.SubmitBid(ctx, amount)
		switch {
		case outcome.Accepted:
			log.Info().Str("amount", amount.String()).Msg("bid accepted for processing")
		case outcome.Rule != "":
			log.Warn().Str("rule", string(outcome.Rule)).Msg("bid rejected locally")
		default:
			log.Warn().Str("reason", auctionapi.UserMessage(outcome.Err)).Msg("bid rejected")
		}
	}
}

type staticAuth struct {
	viewerID   uuid.UUID
	authed     bool
	credential string
}

func (a staticAuth) ViewerID() (uuid.UUID, bool) { return a.viewerID, a.authed }
func (a staticAuth) Credential() string          { return a.credential }

type logNotifier struct{}

func (logNotifier) NotifyOutcome(auctionID uuid.UUID, outcome auction.SettlementOutcome) {
	switch outcome {
	case auction.OutcomeWon:
		log.Info().Str("auction_id", auctionID.String()).Msg("congratulations, you won the auction")
	case auction.OutcomeLose:
		log.Info().Str("auction_id", auctionID.String()).Msg("auction ended, you did not win")
	default:
		log.Info().Str("auction_id", auctionID.String()).Str("outcome", string(outcome)).Msg("auction settled")
	}
}

func (logNotifier) NotifyError(auctionID uuid.UUID, message string) {
	log.Warn().Str("auction_id", auctionID.String()).Msg(message)
}
