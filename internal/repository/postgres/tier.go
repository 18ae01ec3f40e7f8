package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
)

type tierRepository struct {
	BaseRepository
}

func NewTierRepository(db sqlx.ExtContext) repository.TierRepository {
	return &tierRepository{NewBaseRepository(db)}
}

func (r *tierRepository) Create(ctx context.Context, tier *model.CupPriceTier) error {
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	tier.CreatedAt = time.Now().UTC()
	tier.UpdatedAt = tier.CreatedAt

	query := `
		INSERT INTO cup_price_tiers (id, threshold, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, tier.ID, tier.Threshold, tier.Price, tier.Active, tier.CreatedAt, tier.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create price tier: %w", err)
	}
	return nil
}

func (r *tierRepository) List(ctx context.Context) ([]*model.CupPriceTier, error) {
	return r.list(ctx, `SELECT * FROM cup_price_tiers ORDER BY threshold ASC`)
}

func (r *tierRepository) ListActive(ctx context.Context) ([]*model.CupPriceTier, error) {
	return r.list(ctx, `SELECT * FROM cup_price_tiers WHERE active ORDER BY threshold ASC`)
}

func (r *tierRepository) list(ctx context.Context, query string) ([]*model.CupPriceTier, error) {
	var tiers []*model.CupPriceTier
	if err := sqlx.SelectContext(ctx, r.db, &tiers, query); err != nil {
		return nil, fmt.Errorf("failed to list price tiers: %w", err)
	}
	return tiers, nil
}
