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

const couponColumns = `id, code, referrer_name, discount_kind, discount_value, referral_percentage,
	used_count, max_uses, expires_at, active, created_at, updated_at`

type couponRepository struct {
	BaseRepository
}

func NewCouponRepository(db sqlx.ExtContext) repository.CouponRepository {
	return &couponRepository{NewBaseRepository(db)}
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	coupon.CreatedAt = time.Now().UTC()
	coupon.UpdatedAt = coupon.CreatedAt

	query := `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		coupon.ID,
		coupon.Code,
		coupon.ReferrerName,
		coupon.Kind,
		coupon.Value,
		coupon.ReferralPercentage,
		coupon.UsedCount,
		coupon.MaxUses,
		coupon.ExpiresAt,
		coupon.Active,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *couponRepository) Get(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.get(ctx, "coupon", &coupon, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.get(ctx, "coupon", &coupon, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	query := `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND active AND (max_uses <= 0 OR used_count < max_uses)
		RETURNING ` + couponColumns

	var coupon model.Coupon
	if err := r.conditional(ctx, "coupon", "coupons", id, &coupon, query, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &coupon, nil
}
