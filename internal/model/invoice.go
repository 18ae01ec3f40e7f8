package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is derived from a completed payment and never stored.
type Invoice struct {
	InvoiceNumber string          `json:"invoice_number"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	IssuedAt      time.Time       `json:"issued_at"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	Taxable       bool            `json:"taxable"`
	SellerName    string          `json:"seller_name,omitempty"`
	TaxID         string          `json:"tax_id,omitempty"`
	Payload       string          `json:"payload"`
}
