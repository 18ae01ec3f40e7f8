package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

type MethodKind string

const (
	MethodCash         MethodKind = "cash"
	MethodCard         MethodKind = "card"
	MethodBankTransfer MethodKind = "bank_transfer"
	MethodSplit        MethodKind = "split"
)

func (k MethodKind) Valid() bool {
	switch k {
	case MethodCash, MethodCard, MethodBankTransfer, MethodSplit:
		return true
	}
	return false
}

// PaymentMethod describes how a settled amount was tendered. Cash and Card
// are only set for split payments.
type PaymentMethod struct {
	Kind      MethodKind       `json:"kind"`
	Cash      *decimal.Decimal `json:"cash,omitempty"`
	Card      *decimal.Decimal `json:"card,omitempty"`
	Reference string           `json:"reference,omitempty"`
}

func (m PaymentMethod) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *PaymentMethod) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type for payment method: %T", src)
	}
}

type Payment struct {
	Base
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	Partition      Partition       `db:"partition" json:"partition"`
	ReadingID      uuid.UUID       `db:"reading_id" json:"reading_id"`
	PointCount     int             `db:"point_count" json:"point_count"`
	BaseAmount     decimal.Decimal `db:"base_amount" json:"base_amount"`
	ManualDiscount decimal.Decimal `db:"manual_discount" json:"manual_discount"`
	CouponDiscount decimal.Decimal `db:"coupon_discount" json:"coupon_discount"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	ReferralAmount decimal.Decimal `db:"referral_amount" json:"referral_amount"`
	DoctorID       *uuid.UUID      `db:"doctor_id" json:"doctor_id,omitempty"`
	CouponID       *uuid.UUID      `db:"coupon_id" json:"coupon_id,omitempty"`
	Taxable        bool            `db:"taxable" json:"taxable"`
	Method         *PaymentMethod  `db:"method" json:"method,omitempty"`
	Status         PaymentStatus   `db:"status" json:"status"`
	PaidAt         *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
}

// Settlement carries everything a pending payment needs to become completed.
type Settlement struct {
	ManualDiscount decimal.Decimal
	CouponDiscount decimal.Decimal
	Amount         decimal.Decimal
	ReferralAmount decimal.Decimal
	DoctorID       uuid.UUID
	CouponID       *uuid.UUID
	Taxable        bool
	Method         PaymentMethod
	PaidAt         time.Time
}

type SettleRequest struct {
	Method         MethodKind       `json:"method" binding:"required,oneof=cash card bank_transfer split"`
	Cash           *decimal.Decimal `json:"cash"`
	Card           *decimal.Decimal `json:"card"`
	Reference      string           `json:"reference" binding:"max=100"`
	ManualDiscount decimal.Decimal  `json:"manual_discount"`
	CouponCode     string           `json:"coupon_code" binding:"max=64"`
	DoctorID       uuid.UUID        `json:"doctor_id" binding:"required"`
	Taxable        bool             `json:"taxable"`
}

type PaymentFilters struct {
	Status PaymentStatus `form:"status"`
	DateRange
	Limit int `form:"limit"`
}
