// Package invoice derives invoices from completed payments.
package invoice

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

type SynthesizerConfig struct {
	SellerName string
	TaxID      string
	VATRate    decimal.Decimal
	Location   *time.Location
	Payload    PayloadStrategy
}

// Synthesizer is a pure function of the payment it is given.
type Synthesizer struct {
	cfg SynthesizerConfig
}

func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Payload == nil {
		cfg.Payload = TextPayload{}
	}
	return &Synthesizer{cfg: cfg}
}

// Number is "INV-" + settlement date + "-" + last six characters of the
// payment id, upper-cased.
func Number(p *model.Payment, loc *time.Location) string {
	id := p.ID.String()
	return "INV-" + p.PaidAt.In(loc).Format("20060102") + "-" + strings.ToUpper(id[len(id)-6:])
}

func (s *Synthesizer) Synthesize(p *model.Payment) (*model.Invoice, error) {
	if p.Status != model.PaymentStatusCompleted || p.PaidAt == nil {
		return nil, apperrors.Validation("payment is not completed", nil)
	}

	subtotal := p.Amount
	tax := decimal.Zero
	if p.Taxable {
		tax = subtotal.Mul(s.cfg.VATRate).Round(2)
	}

	inv := &model.Invoice{
		InvoiceNumber: Number(p, s.cfg.Location),
		PaymentID:     p.ID,
		IssuedAt:      p.PaidAt.In(s.cfg.Location),
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal.Add(tax),
		VATRate:       decimal.Zero,
		Taxable:       p.Taxable,
	}
	if p.Taxable {
		inv.VATRate = s.cfg.VATRate
		inv.SellerName = s.cfg.SellerName
		inv.TaxID = s.cfg.TaxID
	}

	payload, err := s.cfg.Payload.Encode(inv)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	inv.Payload = payload
	return inv, nil
}
