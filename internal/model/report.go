package model

import "github.com/shopspring/decimal"

type RevenueReport struct {
	DateRange
	Payments     int             `json:"payments"`
	Total        decimal.Decimal `json:"total"`
	Cash         decimal.Decimal `json:"cash"`
	Card         decimal.Decimal `json:"card"`
	BankTransfer decimal.Decimal `json:"bank_transfer"`
	TaxCollected decimal.Decimal `json:"tax_collected"`
	Referral     decimal.Decimal `json:"referral"`
}
