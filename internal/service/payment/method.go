package payment

import (
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

// BuildMethod validates how final is being paid. Split payments must add up
// to final exactly, with no rounding window.
func BuildMethod(req *model.SettleRequest, final decimal.Decimal) (model.PaymentMethod, error) {
	if !req.Method.Valid() {
		return model.PaymentMethod{}, apperrors.Validation("unknown payment method "+string(req.Method), nil)
	}
	method := model.PaymentMethod{Kind: req.Method, Reference: req.Reference}
	if req.Method != model.MethodSplit {
		return method, nil
	}

	if req.Cash == nil || req.Card == nil {
		return model.PaymentMethod{}, apperrors.Validation("split payment requires cash and card amounts", nil)
	}
	cash, card := *req.Cash, *req.Card
	if cash.IsNegative() || card.IsNegative() {
		return model.PaymentMethod{}, apperrors.Validation("split payment amounts cannot be negative", nil)
	}
	if !cash.IsPositive() && !card.IsPositive() {
		return model.PaymentMethod{}, apperrors.Validation("split payment needs a positive cash or card amount", nil)
	}
	if !cash.Add(card).Equal(final) {
		return model.PaymentMethod{}, apperrors.Validation(
			"split payment amounts "+cash.StringFixed(2)+" + "+card.StringFixed(2)+" do not equal "+final.StringFixed(2), nil)
	}

	method.Cash = &cash
	method.Card = &card
	return method, nil
}
