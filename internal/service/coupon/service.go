package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/service/discount"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

type Service struct {
	repos repository.Repositories
	now   func() time.Time
}

func NewService(repos repository.Repositories) *Service {
	return &Service{repos: repos, now: time.Now}
}

// Normalize trims the code as typed at the front desk. Codes are matched
// case-sensitively.
func Normalize(code string) string {
	return strings.TrimSpace(code)
}

func (s *Service) Get(ctx context.Context, code string) (*model.Coupon, error) {
	code = Normalize(code)
	if code == "" {
		return nil, apperrors.Validation("coupon code is required", nil)
	}
	c, err := s.repos.Coupons().GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.WrapPersistence("load coupon", err)
	}
	return c, nil
}

// Redeemable loads a coupon and rejects it when it cannot be used now.
func (s *Service) Redeemable(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := discount.CheckCoupon(c, s.now()); err != nil {
		return nil, err
	}
	return c, nil
}

// Status reports whether a coupon is currently usable and why not.
func (s *Service) Status(ctx context.Context, code string) (*model.CouponStatus, error) {
	c, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	status := &model.CouponStatus{Coupon: c, Usable: true}
	if err := discount.CheckCoupon(c, s.now()); err != nil {
		status.Usable = false
		if appErr, ok := apperrors.As(err); ok {
			status.Reason = appErr.Message
		}
	}
	return status, nil
}
