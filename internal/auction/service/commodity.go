// Package service holds the transaction logic that moves commodities through
// their lifecycle. Commodities themselves are passive: every guard on who may
// act and in which state lives here, and runs before anything is written.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/AuctionLedger/internal/auction/model"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/repository"
	"github.com/jmerrifield20/AuctionLedger/internal/identity"
	"github.com/jmerrifield20/AuctionLedger/internal/txlog"
	"github.com/jmerrifield20/AuctionLedger/internal/webhooks"
	"github.com/jmerrifield20/AuctionLedger/internal/worldstate"
	"github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"
	"go.uber.org/zap"
)

// Transaction actions recorded in the log.
const (
	ActionIssue   = "issue"
	ActionAuction = "auction"
	ActionBuy     = "buy"
	ActionDeliver = "deliver"
)

// eventTypes maps each action to the webhook event dispatched on commit.
var eventTypes = map[string]string{
	ActionIssue:   webhooks.EventCommodityIssued,
	ActionAuction: webhooks.EventCommodityAuctioned,
	ActionBuy:     webhooks.EventCommodityTraded,
	ActionDeliver: webhooks.EventCommodityDelivered,
}

var (
	// ErrNotFound is returned when the addressed commodity does not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrAlreadyExists is returned when issuing under a key already in use.
	ErrAlreadyExists = errors.New("commodity already exists")
	// ErrInvalidState is returned when a transaction is not allowed in the
	// commodity's current state.
	ErrInvalidState = errors.New("invalid commodity state")
	// ErrNotOwner is returned when the caller does not hold the commodity.
	ErrNotOwner = errors.New("caller is not the owner")
	// ErrConflict is returned when another transaction wrote the commodity
	// between read and write.
	ErrConflict = errors.New("concurrent modification")
)

// commodityRepo is the persistence interface for the commodity service.
// *repository.CommodityRepository satisfies this interface.
type commodityRepo interface {
	Get(ctx context.Context, issuer, itemNumber string) (*model.Commodity, uint64, error)
	Create(ctx context.Context, c *model.Commodity) ([]byte, uint64, error)
	Update(ctx context.Context, c *model.Commodity, version uint64) ([]byte, uint64, error)
	ListByIssuer(ctx context.Context, issuer string) ([]*model.Commodity, error)
}

// CommodityService processes issue, auction, buy and deliver transactions.
type CommodityService struct {
	repo      commodityRepo
	ledger    txlog.Log // nil = no transaction history
	metrics   Recorder  // nil = no metrics
	onWebhook WebhookDispatchFunc
	logger    *zap.Logger
}

// WebhookDispatchFunc is an optional callback for dispatching commit events.
type WebhookDispatchFunc func(ctx context.Context, eventType string, payload map[string]string)

// Recorder observes committed and rejected transactions.
type Recorder interface {
	Committed(action string, state model.State)
	Rejected(action string, err error)
}

// NewCommodityService creates a new CommodityService. ledger may be nil.
func NewCommodityService(repo commodityRepo, ledger txlog.Log, logger *zap.Logger) *CommodityService {
	return &CommodityService{repo: repo, ledger: ledger, logger: logger}
}

// SetRecorder configures the metrics recorder.
func (s *CommodityService) SetRecorder(r Recorder) {
	s.metrics = r
}

// SetWebhookDispatch configures the webhook dispatch callback.
func (s *CommodityService) SetWebhookDispatch(fn WebhookDispatchFunc) {
	s.onWebhook = fn
}

// Issue creates a new commodity owned by its issuer on behalf of the
// caller's organization.
func (s *CommodityService) Issue(ctx context.Context, caller identity.Caller, req *model.IssueRequest) (*model.Commodity, error) {
	if !caller.Valid() {
		return nil, s.reject(ActionIssue, &ledgerstate.ValidationError{Field: "caller", Msg: "client ID and MSP ID are required"})
	}
	if req.FaceValue < 0 {
		return nil, s.reject(ActionIssue, &ledgerstate.ValidationError{Field: "face_value", Msg: "must not be negative"})
	}

	c, err := model.NewCommodity(req.Issuer, req.ItemNumber, req.IssueDateTime, req.MaturityDateTime, req.FaceValue)
	if err != nil {
		return nil, s.reject(ActionIssue, err)
	}
	c.SetOwner(req.Issuer)
	c.SetOwnerOrg(caller.MSPID)

	buf, _, err := s.repo.Create(ctx, c)
	if errors.Is(err, worldstate.ErrVersionConflict) {
		return nil, s.reject(ActionIssue, fmt.Errorf("%w: %s", ErrAlreadyExists, c.Key()))
	}
	if err != nil {
		s.logger.Error("failed to create commodity", zap.String("key", c.Key()), zap.Error(err))
		return nil, fmt.Errorf("create commodity: %w", err)
	}

	s.committed(ctx, c, ActionIssue, caller, buf)
	return c, nil
}

// Auction puts a submitted commodity up for auction. Only the owning
// organization may do so.
func (s *CommodityService) Auction(ctx context.Context, caller identity.Caller, issuer, itemNumber string) (*model.Commodity, error) {
	return s.transact(ctx, ActionAuction, caller, issuer, itemNumber, func(c *model.Commodity) error {
		if !c.IsSubmitted() {
			return fmt.Errorf("%w: cannot auction a %s commodity", ErrInvalidState, c.State())
		}
		if c.OwnerOrg() != caller.MSPID {
			return fmt.Errorf("%w: %s belongs to %s", ErrNotOwner, c.Key(), c.OwnerOrg())
		}
		c.MarkAuctioned()
		return nil
	})
}

// Buy transfers an auctioned or trading commodity to a new owner in the
// caller's organization. req.CurrentOwner must match the ledger.
func (s *CommodityService) Buy(ctx context.Context, caller identity.Caller, issuer, itemNumber string, req *model.BuyRequest) (*model.Commodity, error) {
	if req.NewOwner == "" {
		return nil, s.reject(ActionBuy, &ledgerstate.ValidationError{Field: "new_owner", Msg: "must not be empty"})
	}
	if req.Price < 0 {
		return nil, s.reject(ActionBuy, &ledgerstate.ValidationError{Field: "price", Msg: "must not be negative"})
	}
	return s.transact(ctx, ActionBuy, caller, issuer, itemNumber, func(c *model.Commodity) error {
		if !c.IsAuctioned() && !c.IsTrading() {
			return fmt.Errorf("%w: cannot buy a %s commodity", ErrInvalidState, c.State())
		}
		if c.Owner() != req.CurrentOwner {
			return fmt.Errorf("%w: %s is owned by %s, not %s", ErrNotOwner, c.Key(), c.Owner(), req.CurrentOwner)
		}
		c.SetOwner(req.NewOwner)
		c.SetOwnerOrg(caller.MSPID)
		c.MarkTrading()
		return nil
	})
}

// Deliver closes the commodity's lifecycle. Only the owning organization of
// a trading commodity may take delivery.
func (s *CommodityService) Deliver(ctx context.Context, caller identity.Caller, issuer, itemNumber string, _ *model.DeliverRequest) (*model.Commodity, error) {
	return s.transact(ctx, ActionDeliver, caller, issuer, itemNumber, func(c *model.Commodity) error {
		if !c.IsTrading() {
			return fmt.Errorf("%w: cannot deliver a %s commodity", ErrInvalidState, c.State())
		}
		if c.OwnerOrg() != caller.MSPID {
			return fmt.Errorf("%w: %s belongs to %s", ErrNotOwner, c.Key(), c.OwnerOrg())
		}
		c.MarkDelivered()
		return nil
	})
}

// transact reads the commodity, applies fn and writes the result back under
// the version it was read at. Nothing is written when fn fails.
func (s *CommodityService) transact(ctx context.Context, action string, caller identity.Caller, issuer, itemNumber string, fn func(*model.Commodity) error) (*model.Commodity, error) {
	if !caller.Valid() {
		return nil, s.reject(action, &ledgerstate.ValidationError{Field: "caller", Msg: "client ID and MSP ID are required"})
	}

	c, version, err := s.repo.Get(ctx, issuer, itemNumber)
	if err != nil {
		return nil, s.reject(action, err)
	}
	if err := fn(c); err != nil {
		return nil, s.reject(action, err)
	}

	buf, _, err := s.repo.Update(ctx, c, version)
	if errors.Is(err, worldstate.ErrVersionConflict) {
		return nil, s.reject(action, fmt.Errorf("%w: %s", ErrConflict, c.Key()))
	}
	if err != nil {
		s.logger.Error("failed to update commodity", zap.String("key", c.Key()), zap.String("action", action), zap.Error(err))
		return nil, fmt.Errorf("update commodity: %w", err)
	}

	s.committed(ctx, c, action, caller, buf)
	return c, nil
}

// committed logs, records and announces a successful write. A failed
// history append is logged but does not undo the write.
func (s *CommodityService) committed(ctx context.Context, c *model.Commodity, action string, caller identity.Caller, buf []byte) {
	s.logger.Info("commodity transaction committed",
		zap.String("action", action),
		zap.String("key", c.Key()),
		zap.String("state", string(c.State())),
		zap.String("actor", caller.String()),
	)
	if s.metrics != nil {
		s.metrics.Committed(action, c.State())
	}

	payload := map[string]string{
		"key":         c.Key(),
		"issuer":      c.Issuer(),
		"item_number": c.ItemNumber(),
		"state":       string(c.State()),
		"owner":       c.Owner(),
		"owner_org":   c.OwnerOrg(),
		"actor":       caller.String(),
	}
	if s.ledger != nil {
		entry, err := s.ledger.Append(ctx, c.Key(), action, caller.String(), buf)
		if err != nil {
			s.logger.Error("ledger append failed (non-fatal)",
				zap.String("key", c.Key()),
				zap.String("action", action),
				zap.Error(err),
			)
		} else {
			payload["tx_id"] = entry.TxID
		}
	}

	if s.onWebhook != nil {
		s.onWebhook(ctx, eventTypes[action], payload)
	}
}

func (s *CommodityService) reject(action string, err error) error {
	if s.metrics != nil {
		s.metrics.Rejected(action, err)
	}
	return err
}

// Get returns the commodity identified by issuer and itemNumber.
func (s *CommodityService) Get(ctx context.Context, issuer, itemNumber string) (*model.Commodity, error) {
	c, _, err := s.repo.Get(ctx, issuer, itemNumber)
	return c, err
}

// ListByIssuer returns every commodity issued by issuer.
func (s *CommodityService) ListByIssuer(ctx context.Context, issuer string) ([]*model.Commodity, error) {
	return s.repo.ListByIssuer(ctx, issuer)
}

// History returns the committed transactions on a commodity, oldest first.
func (s *CommodityService) History(ctx context.Context, issuer, itemNumber string) ([]*txlog.Entry, error) {
	key, err := model.CommodityKey(issuer, itemNumber)
	if err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return []*txlog.Entry{}, nil
	}
	entries, err := s.ledger.History(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", key, err)
	}
	if len(entries) == 0 {
		if _, _, err := s.repo.Get(ctx, issuer, itemNumber); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
