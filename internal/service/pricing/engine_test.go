package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

func tier(threshold int, price int64, active bool) *model.CupPriceTier {
	return &model.CupPriceTier{Threshold: threshold, Price: decimal.NewFromInt(price), Active: active}
}

func standardTable() []*model.CupPriceTier {
	return []*model.CupPriceTier{tier(5, 400, true), tier(1, 100, true), tier(3, 250, true)}
}

func TestPriceFor(t *testing.T) {
	tests := []struct {
		name   string
		points int
		want   int64
	}{
		{"zero points are free", 0, 0},
		{"exact match", 3, 250},
		{"exact match lowest", 1, 100},
		{"rounds up to nearest tier", 4, 400},
		{"rounds up from 2", 2, 250},
		{"ceiling fallback", 6, 400},
		{"far beyond ceiling", 40, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceFor(tt.points, standardTable())
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestPriceForIgnoresInactiveTiers(t *testing.T) {
	table := append(standardTable(), tier(4, 300, false), tier(10, 900, false))

	got, err := PriceFor(4, table)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(400)))

	got, err = PriceFor(12, table)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(400)))
}

func TestPriceForEmptyTable(t *testing.T) {
	got, err := PriceFor(0, nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = PriceFor(2, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = PriceFor(2, []*model.CupPriceTier{tier(1, 100, false)})
	assert.True(t, apperrors.IsValidation(err))
}

func TestPriceForNegative(t *testing.T) {
	_, err := PriceFor(-1, standardTable())
	assert.True(t, apperrors.IsValidation(err))
}
