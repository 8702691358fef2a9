package webhooks

import (
	"time"

	"github.com/google/uuid"
)

// Event types dispatched by the system.
const (
	EventCommodityIssued    = "commodity.issued"
	EventCommodityAuctioned = "commodity.auctioned"
	EventCommodityTraded    = "commodity.traded"
	EventCommodityDelivered = "commodity.delivered"
	EventLedgerAuditFailed  = "ledger.audit_failed"
)

// Events lists every event type a subscription may name.
var Events = []string{
	EventCommodityIssued,
	EventCommodityAuctioned,
	EventCommodityTraded,
	EventCommodityDelivered,
	EventLedgerAuditFailed,
}

// Subscription is an organization's registration for webhook events.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	MSPID     string    `json:"msp_id"`
	CreatedBy string    `json:"created_by"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"` // returned once, on creation
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is the JSON body POSTed to subscribers.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	StatusCode     int       `json:"status_code"`
	Attempt        int       `json:"attempt"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	DeliveredAt    time.Time `json:"delivered_at"`
}

// CreateSubscriptionRequest is the payload for creating a subscription.
type CreateSubscriptionRequest struct {
	URL    string   `json:"url"    binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
}
