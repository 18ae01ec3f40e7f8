package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyComposesAgainstBase(t *testing.T) {
	coupon := &model.Coupon{Kind: model.DiscountPercentage, Value: dec("10")}

	got, err := Apply(dec("250"), dec("20"), coupon)
	require.NoError(t, err)
	assert.True(t, got.CouponAmount.Equal(dec("25")), got.CouponAmount.String())
	assert.True(t, got.Final.Equal(dec("205")), got.Final.String())
}

func TestApplyFixedCoupon(t *testing.T) {
	coupon := &model.Coupon{Kind: model.DiscountFixed, Value: dec("30")}

	got, err := Apply(dec("100"), dec("5"), coupon)
	require.NoError(t, err)
	assert.True(t, got.Final.Equal(dec("65")))
}

func TestApplyFloorsAtZero(t *testing.T) {
	coupon := &model.Coupon{Kind: model.DiscountFixed, Value: dec("80")}

	got, err := Apply(dec("100"), dec("50"), coupon)
	require.NoError(t, err)
	assert.True(t, got.Final.IsZero())
}

func TestApplyWithoutCoupon(t *testing.T) {
	got, err := Apply(dec("400"), decimal.Zero, nil)
	require.NoError(t, err)
	assert.True(t, got.CouponAmount.IsZero())
	assert.True(t, got.Final.Equal(dec("400")))
}

func TestApplyRoundsPercentage(t *testing.T) {
	coupon := &model.Coupon{Kind: model.DiscountPercentage, Value: dec("12.5")}

	got, err := Apply(dec("99.99"), decimal.Zero, coupon)
	require.NoError(t, err)
	assert.Equal(t, "12.50", got.CouponAmount.StringFixed(2))
	assert.Equal(t, "87.49", got.Final.StringFixed(2))
}

func TestApplyRoundsFinalOnce(t *testing.T) {
	coupon := &model.Coupon{Kind: model.DiscountPercentage, Value: dec("10")}

	// 10.05 - 1.005 = 9.045 rounds to 9.05; rounding the coupon first would give 9.04.
	got, err := Apply(dec("10.05"), decimal.Zero, coupon)
	require.NoError(t, err)
	assert.Equal(t, "9.05", got.Final.StringFixed(2))
	assert.Equal(t, "1.01", got.CouponAmount.StringFixed(2))
}

func TestApplyRejectsNegativeManual(t *testing.T) {
	_, err := Apply(dec("100"), dec("-1"), nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestReferral(t *testing.T) {
	coupon := &model.Coupon{ReferralPercentage: dec("5")}
	assert.Equal(t, "10.25", Referral(dec("205"), coupon).StringFixed(2))
	assert.True(t, Referral(dec("205"), nil).IsZero())
}

func TestCheckCoupon(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		coupon model.Coupon
		ok     bool
	}{
		{"usable", model.Coupon{Active: true, ExpiresAt: &future, MaxUses: 2, UsedCount: 1}, true},
		{"unlimited", model.Coupon{Active: true, UsedCount: 1000}, true},
		{"inactive", model.Coupon{Active: false}, false},
		{"expired", model.Coupon{Active: true, ExpiresAt: &past}, false},
		{"exhausted", model.Coupon{Active: true, MaxUses: 3, UsedCount: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCoupon(&tt.coupon, now)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}
