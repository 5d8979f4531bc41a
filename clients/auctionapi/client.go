package auctionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m131y/rebay-auctionwatch/internal/auction"
)

// Client talks to the rebay auction API. It covers exactly the calls the
// watch engine makes: listing fetch, bid submission, and settlement. The
// live stream belongs to the livebid package, which needs different
// connection lifetime rules.
type Client struct {
	baseURL    string
	httpc      *http.Client
	credential string
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetCredential sets the bearer credential attached to every request.
func (c *Client) SetCredential(credential string) {
	c.credential = credential
}

// GetAuction fetches the auction listing. The server counts a view per
// fetch, so callers should fetch once per observation, not per tick.
func (c *Client) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Listing, error) {
	body, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/auction/%s", auctionID), nil)
	if err != nil {
		return nil, err
	}

	var listing auction.Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode auction listing: %w", err)
	}
	return &listing, nil
}

// PlaceBid submits a bid. A nil return means the server accepted the
// request for processing, nothing more. The canonical price moves only
// when the server broadcasts a BID_UPDATE; this acknowledgement carries no
// price and must never be used to mutate one.
func (c *Client) PlaceBid(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error {
	payload, err := json.Marshal(bidRequest{Amount: amount})
	if err != nil {
		return fmt.Errorf("encode bid: %w", err)
	}
	_, err = c.request(ctx, http.MethodPost, fmt.Sprintf("/api/auction/%s/bid", auctionID), payload)
	return err
}

// CloseAuction finalizes an ended auction and returns the viewer's outcome.
func (c *Client) CloseAuction(ctx context.Context, auctionID uuid.UUID, endTime time.Time) (*auction.CloseResult, error) {
	payload, err := json.Marshal(closeRequest{EndTime: endTime})
	if err != nil {
		return nil, fmt.Errorf("encode close request: %w", err)
	}
	body, err := c.request(ctx, http.MethodPost, fmt.Sprintf("/api/auction/%s/close", auctionID), payload)
	if err != nil {
		return nil, err
	}

	var result auction.CloseResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode close result: %w", err)
	}
	return &result, nil
}

type bidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type closeRequest struct {
	EndTime time.Time `json:"endTime"`
}

func (c *Client) request(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, responseBody)
	}
	return responseBody, nil
}
