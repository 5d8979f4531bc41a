package devserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/m131y/rebay-auctionwatch/clients/auctionapi"
	"github.com/m131y/rebay-auctionwatch/internal/auction"
	"github.com/m131y/rebay-auctionwatch/internal/devserver"
	"github.com/m131y/rebay-auctionwatch/internal/livebid"
)

func seedActive(clock clockwork.Clock, server *devserver.Server, duration time.Duration) auction.Listing {
	listing := auction.Listing{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		StartTime:    clock.Now().Add(-time.Minute),
		EndTime:      clock.Now().Add(duration),
		StartPrice:   decimal.NewFromInt(10000),
		CurrentPrice: decimal.NewFromInt(10000),
		Title:        "seeded listing",
	}
	server.Seed(listing)
	return listing
}

func apiClient(url, credential string) *auctionapi.Client {
	client := auctionapi.NewClient(url)
	client.SetCredential(credential)
	return client
}

func TestGetAuction_CountsViews(t *testing.T) {
	clock := clockwork.NewFakeClock()
	server := devserver.New(clock)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	listing := seedActive(clock, server, time.Hour)
	client := apiClient(srv.URL, "alice")

	first, err := client.GetAuction(context.Background(), listing.ID)
	assert.NoError(t, err)
	second, err := client.GetAuction(context.Background(), listing.ID)
	assert.NoError(t, err)
	check.Equal(t, first.ViewCount+1, second.ViewCount)
	check.True(t, second.CurrentPrice.Equal(decimal.NewFromInt(10000)))
}

func TestBid_Rules(t *testing.T) {
	clock := clockwork.NewFakeClock()
	server := devserver.New(clock)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	listing := seedActive(clock, server, time.Hour)
	alice := apiClient(srv.URL, "alice")
	bob := apiClient(srv.URL, "bob")

	check.NoError(t, alice.PlaceBid(context.Background(), listing.ID, decimal.NewFromInt(11000)))

	// Equal to the current price is not enough.
	err := bob.PlaceBid(context.Background(), listing.ID, decimal.NewFromInt(11000))
	var apiErr *auctionapi.APIError
	assert.True(t, errors.As(err, &apiErr))
	check.Equal(t, http.StatusConflict, apiErr.StatusCode)
	check.Equal(t, "bid must exceed the current price", apiErr.Message)

	// No credential, no bid.
	anon := auctionapi.NewClient(srv.URL)
	err = anon.PlaceBid(context.Background(), listing.ID, decimal.NewFromInt(12000))
	assert.True(t, errors.As(err, &apiErr))
	check.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	// A bearer header with no token after it is unauthenticated too.
	req, err := http.NewRequest(http.MethodPost,
		srv.URL+"/api/auction/"+listing.ID.String()+"/bid",
		strings.NewReader(`{"amount":12000}`))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	resp.Body.Close()
	check.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Past the end the window is shut.
	clock.Advance(2 * time.Hour)
	err = bob.PlaceBid(context.Background(), listing.ID, decimal.NewFromInt(12000))
	assert.True(t, errors.As(err, &apiErr))
	check.Equal(t, "auction is not active", apiErr.Message)
}

func TestStream_BroadcastsAcceptedBids(t *testing.T) {
	clock := clockwork.NewFakeClock()
	server := devserver.New(clock)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	listing := seedActive(clock, server, time.Hour)

	updates := make(chan auction.BidUpdate, 8)
	stream := livebid.NewClient(srv.URL)
	handle, err := stream.Open(context.Background(), listing.ID, "alice",
		func(u auction.BidUpdate) { updates <- u }, nil)
	assert.NoError(t, err)
	defer handle.Close()

	bidder := apiClient(srv.URL, "bob")
	assert.NoError(t, bidder.PlaceBid(context.Background(), listing.ID, decimal.NewFromInt(11000)))

	select {
	case update := <-updates:
		check.True(t, update.CurrentPrice.Equal(decimal.NewFromInt(11000)))
	case <-time.After(2 * time.Second):
		t.Fatal("no BID_UPDATE received")
	}
}

func TestStream_RequiresCredential(t *testing.T) {
	clock := clockwork.NewFakeClock()
	server := devserver.New(clock)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	listing := seedActive(clock, server, time.Hour)

	stream := livebid.NewClient(srv.URL)
	_, err := stream.Open(context.Background(), listing.ID, "",
		func(auction.BidUpdate) {}, nil)
	assert.Error(t, err)

	var channelErr *livebid.ChannelError
	check.True(t, errors.As(err, &channelErr))
}

func TestClose_OutcomePerBidder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	server := devserver.New(clock)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	listing := seedActive(clock, server, time.Hour)
	alice := apiClient(srv.URL, "alice")
	bob := apiClient(srv.URL, "bob")

	assert.NoError(t, alice.PlaceBid(context.Background(), listing.ID, decimal.NewFromInt(11000)))
	assert.NoError(t, bob.PlaceBid(context.Background(), listing.ID, decimal.NewFromInt(12000)))

	// Closing before the end is refused.
	_, err := alice.CloseAuction(context.Background(), listing.ID, listing.EndTime)
	var apiErr *auctionapi.APIError
	assert.True(t, errors.As(err, &apiErr))
	check.Equal(t, "auction has not ended", apiErr.Message)

	clock.Advance(2 * time.Hour)

	result, err := bob.CloseAuction(context.Background(), listing.ID, listing.EndTime)
	assert.NoError(t, err)
	check.Equal(t, auction.OutcomeWon, result.AuctionStatus)

	result, err = alice.CloseAuction(context.Background(), listing.ID, listing.EndTime)
	assert.NoError(t, err)
	check.Equal(t, auction.OutcomeLose, result.AuctionStatus)
}
