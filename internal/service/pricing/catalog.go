package pricing

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/service/event"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

const activeTiersKey = "tiers:active"

// Catalog serves the tier table from a cache that the change feed drops
// whenever cup_price_tiers changes.
type Catalog struct {
	store   repository.Store
	cache   *cache.Cache
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewCatalog(store repository.Store, ttl time.Duration, log *logger.Logger, m *metrics.Metrics) *Catalog {
	return &Catalog{
		store:   store,
		cache:   cache.New(ttl, 2*ttl),
		logger:  log,
		metrics: m,
	}
}

func (c *Catalog) ActiveTiers(ctx context.Context) ([]*model.CupPriceTier, error) {
	if cached, ok := c.cache.Get(activeTiersKey); ok {
		c.metrics.TierCacheHits.Inc()
		return cached.([]*model.CupPriceTier), nil
	}
	c.metrics.TierCacheMisses.Inc()

	tiers, err := c.store.Tiers().ListActive(ctx)
	if err != nil {
		return nil, apperrors.WrapPersistence("load price tiers", err)
	}
	c.cache.SetDefault(activeTiersKey, tiers)
	return tiers, nil
}

func (c *Catalog) List(ctx context.Context) ([]*model.CupPriceTier, error) {
	tiers, err := c.store.Tiers().List(ctx)
	if err != nil {
		return nil, apperrors.WrapPersistence("list price tiers", err)
	}
	return tiers, nil
}

// Price looks up the base price for pointCount.
func (c *Catalog) Price(ctx context.Context, pointCount int) (decimal.Decimal, error) {
	if pointCount == 0 {
		return decimal.Zero, nil
	}
	tiers, err := c.ActiveTiers(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return PriceFor(pointCount, tiers)
}

func (c *Catalog) Create(ctx context.Context, req *model.CreateTierRequest) (*model.CupPriceTier, error) {
	if req.Threshold <= 0 {
		return nil, apperrors.Validation("threshold must be greater than 0", nil)
	}
	if req.Price.IsNegative() {
		return nil, apperrors.Validation("price cannot be negative", nil)
	}
	tier := &model.CupPriceTier{
		Threshold: req.Threshold,
		Price:     req.Price.Round(2),
		Active:    req.Active == nil || *req.Active,
	}

	err := c.store.Do(ctx, func(tx repository.Tx) error {
		if err := tx.Tiers().Create(ctx, tier); err != nil {
			return err
		}
		return event.Emit(ctx, tx.Outbox(), event.TierCreated, model.TableTiers, tier.ID, tier)
	})
	if err != nil {
		c.logger.Error(err, "Failed to create price tier", "threshold", tier.Threshold)
		return nil, apperrors.WrapPersistence("create price tier", err)
	}

	c.Invalidate()
	return tier, nil
}

// Invalidate drops the cached tier table.
func (c *Catalog) Invalidate() {
	c.cache.Delete(activeTiersKey)
}
