package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/service/invoice"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

type Service struct {
	repos repository.Repositories
	synth *invoice.Synthesizer
}

func NewService(repos repository.Repositories, synth *invoice.Synthesizer) *Service {
	return &Service{repos: repos, synth: synth}
}

// Revenue totals completed payments settled inside r. The per-method
// figures are settled amounts before tax, with split payments contributing
// their cash and card parts; Total and TaxCollected follow the invoices.
func (s *Service) Revenue(ctx context.Context, r model.DateRange) (*model.RevenueReport, error) {
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return nil, apperrors.Validation("report range must end after it starts", nil)
	}

	payments, err := s.repos.Payments().List(ctx, &model.PaymentFilters{
		Status:    model.PaymentStatusCompleted,
		DateRange: r,
	})
	if err != nil {
		return nil, apperrors.WrapPersistence("list payments", err)
	}

	out := &model.RevenueReport{
		DateRange:    r,
		Total:        decimal.Zero,
		Cash:         decimal.Zero,
		Card:         decimal.Zero,
		BankTransfer: decimal.Zero,
		TaxCollected: decimal.Zero,
		Referral:     decimal.Zero,
	}
	for _, p := range payments {
		inv, err := s.synth.Synthesize(p)
		if err != nil {
			return nil, err
		}
		out.Payments++
		out.Total = out.Total.Add(inv.Total)
		out.TaxCollected = out.TaxCollected.Add(inv.Tax)
		out.Referral = out.Referral.Add(p.ReferralAmount)

		if p.Method == nil {
			continue
		}
		switch p.Method.Kind {
		case model.MethodCash:
			out.Cash = out.Cash.Add(p.Amount)
		case model.MethodCard:
			out.Card = out.Card.Add(p.Amount)
		case model.MethodBankTransfer:
			out.BankTransfer = out.BankTransfer.Add(p.Amount)
		case model.MethodSplit:
			if p.Method.Cash != nil {
				out.Cash = out.Cash.Add(*p.Method.Cash)
			}
			if p.Method.Card != nil {
				out.Card = out.Card.Add(*p.Method.Card)
			}
		}
	}
	return out, nil
}
