package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository/memory"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

func TestStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	expired := time.Now().Add(-time.Hour)
	require.NoError(t, store.Coupons().Create(ctx, &model.Coupon{
		Code: "SPRING", Kind: model.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true,
	}))
	require.NoError(t, store.Coupons().Create(ctx, &model.Coupon{
		Code: "OLD", Kind: model.DiscountFixed, Value: decimal.NewFromInt(10), Active: true, ExpiresAt: &expired,
	}))
	svc := NewService(store)

	st, err := svc.Status(ctx, " SPRING ")
	require.NoError(t, err)
	assert.True(t, st.Usable)

	st, err = svc.Status(ctx, "OLD")
	require.NoError(t, err)
	assert.False(t, st.Usable)
	assert.Equal(t, "coupon has expired", st.Reason)

	_, err = svc.Redeemable(ctx, "OLD")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Status(ctx, "NOPE")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Status(ctx, "  ")
	assert.True(t, apperrors.IsValidation(err))
}
