package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Commodity is the commodity view returned by the server.
type Commodity struct {
	Key              string `json:"key"`
	Issuer           string `json:"issuer"`
	ItemNumber       string `json:"item_number"`
	IssueDateTime    string `json:"issue_date_time"`
	MaturityDateTime string `json:"maturity_date_time"`
	FaceValue        int64  `json:"face_value"`
	Owner            string `json:"owner"`
	OwnerOrg         string `json:"owner_org"`
	CurrentState     string `json:"current_state"`
}

// IssueRequest is the payload for Issue.
type IssueRequest struct {
	Issuer           string `json:"issuer"`
	ItemNumber       string `json:"item_number"`
	IssueDateTime    string `json:"issue_date_time,omitempty"`
	MaturityDateTime string `json:"maturity_date_time,omitempty"`
	FaceValue        int64  `json:"face_value"`
}

// BuyRequest is the payload for Buy.
type BuyRequest struct {
	CurrentOwner     string `json:"current_owner"`
	NewOwner         string `json:"new_owner"`
	Price            int64  `json:"price"`
	PurchaseDateTime string `json:"purchase_date_time,omitempty"`
}

// DeliverRequest is the payload for Deliver.
type DeliverRequest struct {
	DeliveryDateTime string `json:"delivery_date_time,omitempty"`
}

// LedgerEntry is one committed transaction in the server's log.
type LedgerEntry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	TxID      string    `json:"tx_id"`
	Key       string    `json:"key"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	DataHash  string    `json:"data_hash"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// LedgerStatus summarizes the transaction log.
type LedgerStatus struct {
	Entries int    `json:"entries"`
	Root    string `json:"root"`
}

// Client is the SDK entry point.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
	clientID    string
	mspID       string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client must not be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// New creates a Client for the server at base (scheme and host, no path).
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", base)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func commodityPath(issuer, itemNumber string) string {
	return "/api/v1/commodities/" + url.PathEscape(issuer) + "/" + url.PathEscape(itemNumber)
}

// Issue posts a new commodity.
func (c *Client) Issue(ctx context.Context, req IssueRequest) (*Commodity, error) {
	var out Commodity
	if err := c.call(ctx, http.MethodPost, "/api/v1/commodities", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a single commodity.
func (c *Client) Get(ctx context.Context, issuer, itemNumber string) (*Commodity, error) {
	var out Commodity
	if err := c.call(ctx, http.MethodGet, commodityPath(issuer, itemNumber), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns every commodity issued by issuer.
func (c *Client) List(ctx context.Context, issuer string) ([]Commodity, error) {
	var out struct {
		Commodities []Commodity `json:"commodities"`
	}
	path := "/api/v1/commodities?issuer=" + url.QueryEscape(issuer)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Commodities, nil
}

// History returns the transactions committed on a commodity, oldest first.
func (c *Client) History(ctx context.Context, issuer, itemNumber string) ([]LedgerEntry, error) {
	var out struct {
		Entries []LedgerEntry `json:"entries"`
	}
	if err := c.call(ctx, http.MethodGet, commodityPath(issuer, itemNumber)+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Auction puts a submitted commodity up for auction.
func (c *Client) Auction(ctx context.Context, issuer, itemNumber string) (*Commodity, error) {
	var out Commodity
	if err := c.call(ctx, http.MethodPost, commodityPath(issuer, itemNumber)+"/auction", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Buy transfers an auctioned or trading commodity to a new owner.
func (c *Client) Buy(ctx context.Context, issuer, itemNumber string, req BuyRequest) (*Commodity, error) {
	var out Commodity
	if err := c.call(ctx, http.MethodPost, commodityPath(issuer, itemNumber)+"/buy", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deliver marks a trading commodity delivered.
func (c *Client) Deliver(ctx context.Context, issuer, itemNumber string, req DeliverRequest) (*Commodity, error) {
	var out Commodity
	if err := c.call(ctx, http.MethodPost, commodityPath(issuer, itemNumber)+"/deliver", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ledger returns the length and tip hash of the transaction log.
func (c *Client) Ledger(ctx context.Context) (*LedgerStatus, error) {
	var out LedgerStatus
	if err := c.call(ctx, http.MethodGet, "/api/v1/ledger", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyLedger asks the server to walk the hash chain. A broken chain is
// reported as ok == false with the server's reason, not as an error.
func (c *Client) VerifyLedger(ctx context.Context) (ok bool, reason string, err error) {
	var out struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/ledger/verify", nil, &out); err != nil {
		return false, "", err
	}
	return out.Valid, out.Error, nil
}

// LedgerEntry fetches one transaction log entry by index.
func (c *Client) LedgerEntry(ctx context.Context, index int) (*LedgerEntry, error) {
	var out LedgerEntry
	if err := c.call(ctx, http.MethodGet, "/api/v1/ledger/entries/"+strconv.Itoa(index), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call sends reqBody (if non-nil) as JSON and decodes a 2xx response into respBody.
func (c *Client) call(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do executes an HTTP request with the configured identity attached.
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}
