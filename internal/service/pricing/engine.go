// Package pricing turns a session's point count into a base price.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

// PriceFor prices pointCount against the active tiers of table:
// zero points are free, an exact threshold wins, otherwise the smallest
// threshold above the count applies, and counts beyond every tier pay the
// largest tier's price.
func PriceFor(pointCount int, table []*model.CupPriceTier) (decimal.Decimal, error) {
	if pointCount < 0 {
		return decimal.Zero, apperrors.Validation("point count cannot be negative", nil)
	}
	if pointCount == 0 {
		return decimal.Zero, nil
	}

	var nearest, largest *model.CupPriceTier
	for _, tier := range table {
		if tier == nil || !tier.Active {
			continue
		}
		if tier.Threshold == pointCount {
			return tier.Price, nil
		}
		if tier.Threshold > pointCount && (nearest == nil || tier.Threshold < nearest.Threshold) {
			nearest = tier
		}
		if largest == nil || tier.Threshold > largest.Threshold {
			largest = tier
		}
	}

	switch {
	case nearest != nil:
		return nearest.Price, nil
	case largest != nil:
		return largest.Price, nil
	default:
		return decimal.Zero, apperrors.Validation("no active price tiers configured", nil)
	}
}
