// Package webhooks notifies organizations of ledger events over HTTP.
//
// Each subscription belongs to one MSP and names the event types it wants.
// Events are POSTed as JSON, signed with the subscription secret in the
// X-Auction-Signature header ("sha256=" + hex HMAC-SHA256 of the body), and
// retried up to three times.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/AuctionLedger/internal/identity"
	"go.uber.org/zap"
)

// Delivery headers.
const (
	HeaderSignature = "X-Auction-Signature"
	HeaderEvent     = "X-Auction-Event"
)

var (
	// ErrInvalidEvent is returned when a subscription names an unknown event type.
	ErrInvalidEvent = errors.New("unknown event type")
	// ErrForbidden is returned when a caller manages another MSP's subscription.
	ErrForbidden = errors.New("subscription belongs to another organization")
)

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Service manages subscriptions and dispatches events.
type Service struct {
	repo       Repository
	httpClient *http.Client
	delays     []time.Duration // wait before each attempt
	onMetrics  MetricsRecorder
	inflight   sync.WaitGroup
	logger     *zap.Logger
}

// NewService creates a new webhook Service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		delays:     []time.Duration{0, 5 * time.Second, 25 * time.Second},
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// SetRetryDelays replaces the per-attempt delays. The number of delays is
// the number of attempts.
func (s *Service) SetRetryDelays(delays ...time.Duration) {
	if len(delays) > 0 {
		s.delays = delays
	}
}

// Subscribe creates a subscription for the caller's MSP with a generated
// HMAC secret.
func (s *Service) Subscribe(ctx context.Context, caller identity.Caller, req *CreateSubscriptionRequest) (*Subscription, error) {
	for _, ev := range req.Events {
		if !slices.Contains(Events, ev) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, ev)
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	sub := &Subscription{
		MSPID:     caller.MSPID,
		CreatedBy: caller.String(),
		URL:       req.URL,
		Events:    slices.Compact(slices.Sorted(slices.Values(req.Events))),
		Secret:    secret,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.logger.Info("webhook subscription created",
		zap.String("id", sub.ID.String()),
		zap.String("msp_id", sub.MSPID),
		zap.Strings("events", sub.Events),
	)
	return sub, nil
}

// get returns the subscription if it belongs to the caller's MSP.
func (s *Service) get(ctx context.Context, caller identity.Caller, id uuid.UUID) (*Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.MSPID != caller.MSPID {
		return nil, ErrForbidden
	}
	return sub, nil
}

// Unsubscribe deletes a subscription owned by the caller's MSP.
func (s *Service) Unsubscribe(ctx context.Context, caller identity.Caller, id uuid.UUID) error {
	if _, err := s.get(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// List returns the subscriptions of the caller's MSP.
func (s *Service) List(ctx context.Context, caller identity.Caller) ([]*Subscription, error) {
	return s.repo.ListByMSP(ctx, caller.MSPID)
}

// Deliveries returns recent delivery attempts for a subscription owned by
// the caller's MSP, newest first.
func (s *Service) Deliveries(ctx context.Context, caller identity.Caller, id uuid.UUID, limit int) ([]*Delivery, error) {
	if _, err := s.get(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.repo.ListDeliveries(ctx, id, limit)
}

// Dispatch fans out an event to all matching subscriptions. Deliveries run
// in the background and outlive ctx's cancellation.
func (s *Service) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	ctx = context.WithoutCancel(ctx)

	subs, err := s.repo.ListByEvent(ctx, eventType)
	if err != nil {
		s.logger.Error("webhook: list subscribers", zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}

	for _, sub := range subs {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.deliver(ctx, sub, event, body)
		}()
	}
}

// Wait blocks until every in-flight delivery has finished.
func (s *Service) Wait() { s.inflight.Wait() }

// deliver sends the event to a single subscription with retries.
func (s *Service) deliver(ctx context.Context, sub *Subscription, event Event, body []byte) {
	signature := Sign(body, sub.Secret)

	for i, delay := range s.delays {
		attempt := i + 1
		if delay > 0 {
			time.Sleep(delay)
		}

		statusCode, deliverErr := s.post(ctx, sub.URL, event.Type, body, signature)
		success := deliverErr == nil

		delivery := &Delivery{
			SubscriptionID: sub.ID,
			EventID:        event.ID,
			EventType:      event.Type,
			StatusCode:     statusCode,
			Attempt:        attempt,
			Success:        success,
		}
		if deliverErr != nil {
			delivery.ErrorMessage = deliverErr.Error()
		}
		if err := s.repo.RecordDelivery(ctx, delivery, body); err != nil {
			s.logger.Warn("webhook: record delivery", zap.Error(err))
		}
		if s.onMetrics != nil {
			s.onMetrics(success)
		}
		if success {
			return
		}

		s.logger.Warn("webhook: delivery failed",
			zap.String("url", sub.URL),
			zap.String("event", event.Type),
			zap.Int("attempt", attempt),
			zap.Error(deliverErr),
		)
	}
}

// post performs a single HTTP POST delivery.
func (s *Service) post(ctx context.Context, url, eventType string, body []byte, signature string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderSignature, signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Sign computes the X-Auction-Signature value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// generateSecret creates a random 32-byte hex-encoded secret.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
