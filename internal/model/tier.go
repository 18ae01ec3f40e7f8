package model

import "github.com/shopspring/decimal"

// CupPriceTier prices a session by its point count.
type CupPriceTier struct {
	Base
	Threshold int             `db:"threshold" json:"threshold"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Active    bool            `db:"active" json:"active"`
}

type CreateTierRequest struct {
	Threshold int             `json:"threshold" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	Active    *bool           `json:"active"`
}

// Quote is a price preview that does not touch any store.
type Quote struct {
	PointCount     int             `json:"point_count"`
	Base           decimal.Decimal `json:"base"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	ManualDiscount decimal.Decimal `json:"manual_discount"`
	Final          decimal.Decimal `json:"final"`
	CouponCode     string          `json:"coupon_code,omitempty"`
}

type QuoteRequest struct {
	Points         int             `form:"points" binding:"gte=0"`
	ManualDiscount decimal.Decimal `form:"-"`
	CouponCode     string          `form:"coupon"`
}
