package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Webhook event types accepted by CreateSubscription.
const (
	EventCommodityIssued    = "commodity.issued"
	EventCommodityAuctioned = "commodity.auctioned"
	EventCommodityTraded    = "commodity.traded"
	EventCommodityDelivered = "commodity.delivered"
	EventLedgerAuditFailed  = "ledger.audit_failed"
)

// Subscription is a webhook registration of the caller's organization.
type Subscription struct {
	ID        string    `json:"id"`
	MSPID     string    `json:"msp_id"`
	CreatedBy string    `json:"created_by"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSubscription registers url for events. The returned secret signs
// every delivery and is not retrievable later.
func (c *Client) CreateSubscription(ctx context.Context, endpoint string, events ...string) (*Subscription, string, error) {
	req := map[string]any{"url": endpoint, "events": events}
	var out struct {
		Subscription Subscription `json:"subscription"`
		Secret       string       `json:"secret"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/webhooks", req, &out); err != nil {
		return nil, "", err
	}
	return &out.Subscription, out.Secret, nil
}

// ListSubscriptions returns the caller organization's subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var out struct {
		Subscriptions []Subscription `json:"subscriptions"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/webhooks", nil, &out); err != nil {
		return nil, err
	}
	return out.Subscriptions, nil
}

// DeleteSubscription removes a subscription by ID.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/webhooks/"+url.PathEscape(id), nil, nil)
}
