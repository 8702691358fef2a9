package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"
)

// Row layout:
//
//	wh/s/<id>                    subscription
//	wh/d/<sub id>/<nanos>/<id>   delivery attempt
//
// nanos is zero padded to 20 digits so deliveries of a subscription iterate
// oldest first.
const (
	subPrefix      = "wh/s/"
	deliveryPrefix = "wh/d/"
)

// levelSubscription is the stored form of a Subscription. Unlike the API
// form it keeps the secret.
type levelSubscription struct {
	ID        uuid.UUID `json:"id"`
	MSPID     string    `json:"msp_id"`
	CreatedBy string    `json:"created_by"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type levelDelivery struct {
	Delivery
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LevelDBRepository stores subscriptions and delivery attempts in an
// embedded goleveldb database, usually the one holding the ledger.
type LevelDBRepository struct {
	db *leveldb.DB
}

// NewLevelDBRepository wraps an open database. The caller owns db.
func NewLevelDBRepository(db *leveldb.DB) *LevelDBRepository {
	return &LevelDBRepository{db: db}
}

func subRow(id uuid.UUID) []byte { return []byte(subPrefix + id.String()) }

func deliveriesPrefix(subID uuid.UUID) []byte {
	return []byte(deliveryPrefix + subID.String() + "/")
}

func deliveryRow(d *Delivery) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", deliveryPrefix, d.SubscriptionID, d.DeliveredAt.UnixNano(), d.ID))
}

// Create implements Repository.
func (r *LevelDBRepository) Create(_ context.Context, sub *Subscription) error {
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true

	raw, err := json.Marshal(levelSubscription{
		ID:        sub.ID,
		MSPID:     sub.MSPID,
		CreatedBy: sub.CreatedBy,
		URL:       sub.URL,
		Events:    sub.Events,
		Secret:    sub.Secret,
		Active:    sub.Active,
		CreatedAt: sub.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	if err := r.db.Put(subRow(sub.ID), raw, nil); err != nil {
		return fmt.Errorf("write subscription: %w", err)
	}
	return nil
}

func decodeSubscription(raw []byte) (*Subscription, error) {
	var rec levelSubscription
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &Subscription{
		ID:        rec.ID,
		MSPID:     rec.MSPID,
		CreatedBy: rec.CreatedBy,
		URL:       rec.URL,
		Events:    rec.Events,
		Secret:    rec.Secret,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// GetByID implements Repository.
func (r *LevelDBRepository) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	raw, err := r.db.Get(subRow(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read subscription %s: %w", id, err)
	}
	return decodeSubscription(raw)
}

func (r *LevelDBRepository) list(match func(*Subscription) bool) ([]*Subscription, error) {
	iter := r.db.NewIterator(ldb_util.BytesPrefix([]byte(subPrefix)), nil)
	defer iter.Release()

	var out []*Subscription
	for iter.Next() {
		sub, err := decodeSubscription(iter.Value())
		if err != nil {
			return nil, err
		}
		if match(sub) {
			out = append(out, sub)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByMSP implements Repository.
func (r *LevelDBRepository) ListByMSP(_ context.Context, mspID string) ([]*Subscription, error) {
	return r.list(func(s *Subscription) bool { return s.MSPID == mspID })
}

// ListByEvent implements Repository.
func (r *LevelDBRepository) ListByEvent(_ context.Context, eventType string) ([]*Subscription, error) {
	return r.list(func(s *Subscription) bool {
		return s.Active && slices.Contains(s.Events, eventType)
	})
}

// Delete implements Repository. Delivery records go with the subscription.
func (r *LevelDBRepository) Delete(_ context.Context, id uuid.UUID) error {
	if ok, err := r.db.Has(subRow(id), nil); err != nil {
		return fmt.Errorf("read subscription %s: %w", id, err)
	} else if !ok {
		return ErrNotFound
	}

	batch := new(leveldb.Batch)
	batch.Delete(subRow(id))
	iter := r.db.NewIterator(ldb_util.BytesPrefix(deliveriesPrefix(id)), nil)
	for iter.Next() {
		batch.Delete(slices.Clone(iter.Key()))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scan deliveries of %s: %w", id, err)
	}
	if err := r.db.Write(batch, nil); err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	return nil
}

// RecordDelivery implements Repository. The body is kept with the attempt.
func (r *LevelDBRepository) RecordDelivery(_ context.Context, d *Delivery, body []byte) error {
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()

	rec := levelDelivery{Delivery: *d}
	if json.Valid(body) {
		rec.Payload = body
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}
	if err := r.db.Put(deliveryRow(d), raw, nil); err != nil {
		return fmt.Errorf("write delivery: %w", err)
	}
	return nil
}

// ListDeliveries implements Repository, newest first.
func (r *LevelDBRepository) ListDeliveries(_ context.Context, subID uuid.UUID, limit int) ([]*Delivery, error) {
	iter := r.db.NewIterator(ldb_util.BytesPrefix(deliveriesPrefix(subID)), nil)
	defer iter.Release()

	var out []*Delivery
	for ok := iter.Last(); ok && (limit <= 0 || len(out) < limit); ok = iter.Prev() {
		var rec levelDelivery
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode delivery %q: %w", iter.Key(), err)
		}
		d := rec.Delivery
		out = append(out, &d)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan deliveries of %s: %w", subID, err)
	}
	return out, nil
}
