package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

type Coupon struct {
	Base
	Code               string          `db:"code" json:"code"`
	ReferrerName       string          `db:"referrer_name" json:"referrer_name"`
	Kind               DiscountKind    `db:"discount_kind" json:"discount_kind"`
	Value              decimal.Decimal `db:"discount_value" json:"discount_value"`
	ReferralPercentage decimal.Decimal `db:"referral_percentage" json:"referral_percentage"`
	UsedCount          int             `db:"used_count" json:"used_count"`
	MaxUses            int             `db:"max_uses" json:"max_uses"`
	ExpiresAt          *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	Active             bool            `db:"active" json:"active"`
}

// Exhausted reports whether the usage ceiling is reached. MaxUses <= 0 means unlimited.
func (c *Coupon) Exhausted() bool {
	return c.MaxUses > 0 && c.UsedCount >= c.MaxUses
}

func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// CouponStatus is the usability report returned by coupon lookups.
type CouponStatus struct {
	Coupon *Coupon `json:"coupon"`
	Usable bool    `json:"usable"`
	Reason string  `json:"reason,omitempty"`
}
