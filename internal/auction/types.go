package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is an auction listing as served by GET /api/auction/{id}.
// Price fields are server-canonical; CurrentPrice only ever moves up, and
// only the server moves it. Fields past the price block are listing metadata
// owned by the browsing subsystem and carried through untouched.
type Listing struct {
	ID           uuid.UUID       `json:"id"`
	SellerID     uuid.UUID       `json:"sellerId"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
	StartPrice   decimal.Decimal `json:"startPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`

	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	Status    string `json:"status,omitempty"`
	ViewCount int    `json:"viewCount,omitempty"`
}

// BidUpdate is the payload of a BID_UPDATE push event.
type BidUpdate struct {
	CurrentPrice decimal.Decimal `json:"currentPrice"`
}

// SettlementOutcome is the server's verdict when an ended auction is closed.
// Values other than WON/LOSE are passed through to the observer as-is.
type SettlementOutcome string

const (
	OutcomeWon  SettlementOutcome = "WON"
	OutcomeLose SettlementOutcome = "LOSE"
)

// CloseResult is the response body of POST /api/auction/{id}/close.
type CloseResult struct {
	AuctionStatus SettlementOutcome `json:"auctionStatus"`
}
