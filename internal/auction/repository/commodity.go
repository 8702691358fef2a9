package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/AuctionLedger/internal/auction/model"
	"github.com/jmerrifield20/AuctionLedger/internal/worldstate"
	"github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"
)

// ErrNotFound is returned when no commodity is stored under a key.
var ErrNotFound = errors.New("commodity not found")

// CommodityRepository reads and writes commodities in the world state.
type CommodityRepository struct {
	store worldstate.Store
}

// NewCommodityRepository creates a new CommodityRepository.
func NewCommodityRepository(store worldstate.Store) *CommodityRepository {
	return &CommodityRepository{store: store}
}

// Get returns a fresh copy of the commodity identified by issuer and
// itemNumber together with the world-state version it was read at.
func (r *CommodityRepository) Get(ctx context.Context, issuer, itemNumber string) (*model.Commodity, uint64, error) {
	key, err := model.CommodityKey(issuer, itemNumber)
	if err != nil {
		return nil, 0, err
	}
	return r.GetByKey(ctx, key)
}

// GetByKey is Get addressed by composite key.
func (r *CommodityRepository) GetByKey(ctx context.Context, key string) (*model.Commodity, uint64, error) {
	v, err := r.store.Get(ctx, key)
	if errors.Is(err, worldstate.ErrNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", key, err)
	}
	c, err := model.FromBuffer(v.Data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", key, err)
	}
	if c.Key() != key {
		return nil, 0, &ledgerstate.DeserializationError{
			Msg: fmt.Sprintf("stored under %q but identifies as %q", key, c.Key()),
		}
	}
	return c, v.Version, nil
}

// Create stores a commodity that must not exist yet. The returned buffer is
// exactly what was written.
func (r *CommodityRepository) Create(ctx context.Context, c *model.Commodity) ([]byte, uint64, error) {
	return r.put(ctx, c, 0)
}

// Update replaces a commodity previously read at version.
func (r *CommodityRepository) Update(ctx context.Context, c *model.Commodity, version uint64) ([]byte, uint64, error) {
	if version == 0 {
		return nil, 0, fmt.Errorf("update %s: version is required", c.Key())
	}
	return r.put(ctx, c, version)
}

func (r *CommodityRepository) put(ctx context.Context, c *model.Commodity, version uint64) ([]byte, uint64, error) {
	buf, err := c.ToBuffer()
	if err != nil {
		return nil, 0, err
	}
	next, err := r.store.Put(ctx, c.Key(), buf, version)
	if err != nil {
		return nil, 0, fmt.Errorf("put %s: %w", c.Key(), err)
	}
	return buf, next, nil
}

// ListByIssuer returns every commodity issued by issuer, ordered by key.
func (r *CommodityRepository) ListByIssuer(ctx context.Context, issuer string) ([]*model.Commodity, error) {
	prefix, err := ledgerstate.PartialKey(issuer)
	if err != nil {
		return nil, err
	}
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", issuer, err)
	}

	out := make([]*model.Commodity, 0, len(keys))
	for _, key := range keys {
		c, _, err := r.GetByKey(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue // deleted between Keys and Get
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
