// Package bid implements the bid submission protocol: advisory local
// validation followed by submission to the server. The protocol never
// touches the canonical price. A successful submission only means the
// server accepted the request; the price the bid produced (if any) arrives
// later over the live bid channel, in whatever order the network permits.
package bid

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/m131y/rebay-auctionwatch/internal/auction"
	"github.com/m131y/rebay-auctionwatch/internal/metrics"
)

// DefaultIncrement is the advisory bump suggested over the current price
// when prompting for a bid amount.
var DefaultIncrement = decimal.NewFromInt(1000)

// Rule identifies which local validation rejected a bid.
type Rule string

const (
	RuleAmountInvalid    Rule = "AMOUNT_INVALID"
	RuleAmountTooLow     Rule = "AMOUNT_TOO_LOW"
	RuleAuctionNotActive Rule = "AUCTION_NOT_ACTIVE"
)

// ValidationError is a local precondition failure, reported inline before
// any network call and never retried automatically.
type ValidationError struct {
	Rule   Rule
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bid rejected (%s): %s", e.Rule, e.Detail)
}

// Submitter is the one remote call the protocol makes.
type Submitter interface {
	PlaceBid(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error
}

// Outcome is the result of one submission attempt. Exactly one of the
// following holds: Accepted is true (the server took the request); Rule is
// set (rejected locally, no network call was made); or Err is set (the
// server rejected it or the request failed).
type Outcome struct {
	Accepted bool
	Rule     Rule
	Err      error
}

// ParseAmount converts user input into a bid amount. Anything that is not
// a plain finite number is rejected with RuleAmountInvalid.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, &ValidationError{Rule: RuleAmountInvalid, Detail: fmt.Sprintf("%q is not a finite number", input)}
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Rule: RuleAmountInvalid, Detail: fmt.Sprintf("%q is not a number", input)}
	}
	return amount, nil
}

// Suggest returns the default amount offered when prompting for a bid.
func Suggest(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Add(DefaultIncrement)
}

// Validate applies the advisory local rules: the amount must exceed the
// current canonical price, and the auction must be in its active window.
// Validation is advisory only; the server re-checks everything, and a
// locally valid bid can still lose to a concurrent higher bid.
func Validate(amount, currentPrice decimal.Decimal, phase auction.Phase) *ValidationError {
	if phase != auction.PhaseActive {
		return &ValidationError{Rule: RuleAuctionNotActive, Detail: fmt.Sprintf("auction is %s", phase)}
	}
	if amount.Cmp(currentPrice) <= 0 {
		return &ValidationError{
			Rule:   RuleAmountTooLow,
			Detail: fmt.Sprintf("amount %s does not exceed current price %s", amount, currentPrice),
		}
	}
	return nil
}

// Submit validates and, if the bid passes, submits it. Local rejections
// return without any network call. A remote rejection is a failed outcome
// for this attempt only; it is never fatal to the view and is retryable by
// a new explicit submission.
func Submit(ctx context.Context, submitter Submitter, auctionID uuid.UUID, amount, currentPrice decimal.Decimal, phase auction.Phase) Outcome {
	if verr := Validate(amount, currentPrice, phase); verr != nil {
		log.Debug().
			Str("auction_id", auctionID.String()).
			Str("rule", string(verr.Rule)).
			Msg("bid rejected locally")
		metrics.Bids.WithLabelValues("rejected_local").Inc()
		return Outcome{Rule: verr.Rule, Err: verr}
	}

	if err := submitter.PlaceBid(ctx, auctionID, amount); err != nil {
		log.Info().
			Err(err).
			Str("auction_id", auctionID.String()).
			Str("amount", amount.String()).
			Msg("bid rejected by server")
		metrics.Bids.WithLabelValues("rejected_remote").Inc()
		return Outcome{Err: err}
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("amount", amount.String()).
		Msg("bid accepted for processing")
	metrics.Bids.WithLabelValues("accepted").Inc()
	return Outcome{Accepted: true}
}
