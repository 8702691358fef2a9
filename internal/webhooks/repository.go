package webhooks

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a webhook subscription is not found.
var ErrNotFound = errors.New("webhook subscription not found")

// Repository persists subscriptions and delivery attempts.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	ListByMSP(ctx context.Context, mspID string) ([]*Subscription, error)
	ListByEvent(ctx context.Context, eventType string) ([]*Subscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, d *Delivery, body []byte) error
	ListDeliveries(ctx context.Context, subID uuid.UUID, limit int) ([]*Delivery, error)
}

// MemoryRepository is an in-process Repository. Subscriptions are lost on exit.
type MemoryRepository struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]*Subscription
	deliveries []*Delivery
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subs: make(map[uuid.UUID]*Subscription)}
}

// Create implements Repository.
func (r *MemoryRepository) Create(_ context.Context, sub *Subscription) error {
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	cp.Events = slices.Clone(sub.Events)
	r.subs[sub.ID] = &cp
	return nil
}

// GetByID implements Repository.
func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *MemoryRepository) list(match func(*Subscription) bool) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Subscription
	for _, sub := range r.subs {
		if match(sub) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ListByMSP implements Repository.
func (r *MemoryRepository) ListByMSP(_ context.Context, mspID string) ([]*Subscription, error) {
	return r.list(func(s *Subscription) bool { return s.MSPID == mspID }), nil
}

// ListByEvent implements Repository.
func (r *MemoryRepository) ListByEvent(_ context.Context, eventType string) ([]*Subscription, error) {
	return r.list(func(s *Subscription) bool {
		return s.Active && slices.Contains(s.Events, eventType)
	}), nil
}

// Delete implements Repository.
func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return ErrNotFound
	}
	delete(r.subs, id)
	return nil
}

// RecordDelivery implements Repository. The body is not retained.
func (r *MemoryRepository) RecordDelivery(_ context.Context, d *Delivery, _ []byte) error {
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deliveries = append(r.deliveries, &cp)
	return nil
}

// ListDeliveries implements Repository, newest first.
func (r *MemoryRepository) ListDeliveries(_ context.Context, subID uuid.UUID, limit int) ([]*Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Delivery
	for i := len(r.deliveries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if d := r.deliveries[i]; d.SubscriptionID == subID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}
