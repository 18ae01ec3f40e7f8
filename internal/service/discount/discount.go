// Package discount composes coupon and manual discounts against a base price.
package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Result breaks a final price down into its parts.
type Result struct {
	Base         decimal.Decimal
	CouponAmount decimal.Decimal
	Manual       decimal.Decimal
	Final        decimal.Decimal
}

// Apply computes both discounts from the original base and floors the
// result at zero. A nil coupon contributes nothing.
func Apply(base, manual decimal.Decimal, coupon *model.Coupon) (Result, error) {
	if base.IsNegative() {
		return Result{}, apperrors.Validation("base price cannot be negative", nil)
	}
	if manual.IsNegative() {
		return Result{}, apperrors.Validation("manual discount cannot be negative", nil)
	}

	couponAmount, err := CouponAmount(base, coupon)
	if err != nil {
		return Result{}, err
	}

	final := base.Sub(couponAmount).Sub(manual)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Result{
		Base:         base,
		CouponAmount: couponAmount.Round(2),
		Manual:       manual,
		Final:        final.Round(2),
	}, nil
}

// CouponAmount is the unrounded coupon discount on base. Apply rounds only
// the final price, so the itemized line may differ from base - final - manual
// by a cent.
func CouponAmount(base decimal.Decimal, coupon *model.Coupon) (decimal.Decimal, error) {
	if coupon == nil {
		return decimal.Zero, nil
	}
	if coupon.Value.IsNegative() {
		return decimal.Zero, apperrors.Validation("coupon value cannot be negative", nil)
	}
	switch coupon.Kind {
	case model.DiscountPercentage:
		return base.Mul(coupon.Value).Div(hundred), nil
	case model.DiscountFixed:
		return coupon.Value, nil
	default:
		return decimal.Zero, apperrors.Validation("unknown coupon kind "+string(coupon.Kind), nil)
	}
}

// Referral is the commission owed to the coupon's referrer on final.
func Referral(final decimal.Decimal, coupon *model.Coupon) decimal.Decimal {
	if coupon == nil || !coupon.ReferralPercentage.IsPositive() {
		return decimal.Zero
	}
	return final.Mul(coupon.ReferralPercentage).Div(hundred).Round(2)
}

// CheckCoupon rejects coupons that cannot be redeemed at now.
func CheckCoupon(coupon *model.Coupon, now time.Time) error {
	switch {
	case !coupon.Active:
		return apperrors.Validation("coupon is inactive", nil)
	case coupon.Expired(now):
		return apperrors.Validation("coupon has expired", nil)
	case coupon.Exhausted():
		return apperrors.Validation("coupon usage limit reached", nil)
	}
	return nil
}
