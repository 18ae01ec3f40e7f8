package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/service/discount"
)

// Quote previews what a session would cost. Nothing is written and the
// coupon's usage counter is left alone.
func (c *Catalog) Quote(ctx context.Context, pointCount int, manual decimal.Decimal, coupon *model.Coupon) (*model.Quote, error) {
	base, err := c.Price(ctx, pointCount)
	if err != nil {
		return nil, err
	}
	res, err := discount.Apply(base, manual, coupon)
	if err != nil {
		return nil, err
	}

	q := &model.Quote{
		PointCount:     pointCount,
		Base:           res.Base,
		CouponDiscount: res.CouponAmount,
		ManualDiscount: res.Manual,
		Final:          res.Final,
	}
	if coupon != nil {
		q.CouponCode = coupon.Code
	}
	return q, nil
}
