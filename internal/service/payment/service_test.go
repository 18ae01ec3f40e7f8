package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/repository/memory"
	"github.com/jwalitptl/cupping-console/internal/service/coupon"
	"github.com/jwalitptl/cupping-console/internal/service/lifecycle"
	"github.com/jwalitptl/cupping-console/internal/service/partition"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

var paidAt = time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)

type SettlementSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	svc     *Service
	patient *model.PatientRecord
	payment *model.Payment
	coupon  *model.Coupon
	doctor  uuid.UUID
}

func TestSettlementSuite(t *testing.T) {
	suite.Run(t, new(SettlementSuite))
}

func (s *SettlementSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.doctor = uuid.New()
	s.svc = s.newService(s.store)

	s.patient = &model.PatientRecord{Name: "Huda", Phone: "0551234567", Gender: model.GenderFemale, Status: model.PatientStatusAwaitingPayment}
	s.Require().NoError(s.store.Patients(model.PartitionB).Create(s.ctx, s.patient))

	s.payment = &model.Payment{
		PatientID:  s.patient.ID,
		Partition:  model.PartitionB,
		PointCount: 12,
		BaseAmount: decimal.NewFromInt(250),
		Amount:     decimal.NewFromInt(250),
		Status:     model.PaymentStatusPending,
	}
	s.Require().NoError(s.store.Payments().Create(s.ctx, s.payment))

	s.coupon = &model.Coupon{
		Code:               "FRIEND10",
		ReferrerName:       "Nora",
		Kind:               model.DiscountPercentage,
		Value:              decimal.NewFromInt(10),
		ReferralPercentage: decimal.NewFromInt(5),
		MaxUses:            1,
		Active:             true,
	}
	s.Require().NoError(s.store.Coupons().Create(s.ctx, s.coupon))
}

func (s *SettlementSuite) newService(coupons repository.Repositories) *Service {
	log := logger.Nop()
	m := metrics.NewMetrics("test", nil)
	svc := NewService(s.store, partition.NewResolver(s.store), lifecycle.NewMachine(log, m), coupon.NewService(coupons), log, m)
	svc.now = func() time.Time { return paidAt }
	return svc
}

func (s *SettlementSuite) cashRequest() *model.SettleRequest {
	return &model.SettleRequest{
		Method:         model.MethodCash,
		ManualDiscount: decimal.NewFromInt(20),
		CouponCode:     "FRIEND10",
		DoctorID:       s.doctor,
	}
}

func (s *SettlementSuite) reloadPatient() *model.PatientRecord {
	rec, err := s.store.Patients(model.PartitionB).Get(s.ctx, s.patient.ID)
	s.Require().NoError(err)
	return rec
}

func (s *SettlementSuite) reloadPayment() *model.Payment {
	p, err := s.store.Payments().Get(s.ctx, s.payment.ID)
	s.Require().NoError(err)
	return p
}

func (s *SettlementSuite) reloadCoupon() *model.Coupon {
	c, err := s.store.Coupons().Get(s.ctx, s.coupon.ID)
	s.Require().NoError(err)
	return c
}

func (s *SettlementSuite) TestSettleWithCouponAndManualDiscount() {
	got, err := s.svc.Settle(s.ctx, s.payment.ID, s.cashRequest())
	s.Require().NoError(err)

	s.Equal(model.PaymentStatusCompleted, got.Status)
	s.Equal("205.00", got.Amount.StringFixed(2))
	s.Equal("25.00", got.CouponDiscount.StringFixed(2))
	s.Equal("20.00", got.ManualDiscount.StringFixed(2))
	s.Equal("10.25", got.ReferralAmount.StringFixed(2))
	s.Require().NotNil(got.PaidAt)
	s.True(got.PaidAt.Equal(paidAt))
	s.Require().NotNil(got.CouponID)
	s.Equal(s.coupon.ID, *got.CouponID)
	s.Require().NotNil(got.DoctorID)
	s.Equal(s.doctor, *got.DoctorID)

	rec := s.reloadPatient()
	s.Equal(model.PatientStatusPaidAssigned, rec.Status)
	s.Require().NotNil(rec.DoctorID)
	s.Equal(s.doctor, *rec.DoctorID)

	s.Equal(1, s.reloadCoupon().UsedCount)

	events, err := s.store.Outbox().GetPendingEvents(s.ctx, 10)
	s.Require().NoError(err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	s.ElementsMatch([]string{"coupon.used", "payment.settled", "patient.status_changed"}, types)
}

func (s *SettlementSuite) TestSettleTwiceIsRejected() {
	_, err := s.svc.Settle(s.ctx, s.payment.ID, s.cashRequest())
	s.Require().NoError(err)

	req := s.cashRequest()
	req.CouponCode = ""
	_, err = s.svc.Settle(s.ctx, s.payment.ID, req)
	s.True(apperrors.IsValidation(err))
	s.Contains(err.Error(), "payment already settled")
}

func (s *SettlementSuite) TestSplitMustMatchFinal() {
	req := s.cashRequest()
	req.Method = model.MethodSplit
	cash, card := decimal.NewFromInt(100), decimal.NewFromInt(100)
	req.Cash, req.Card = &cash, &card

	_, err := s.svc.Settle(s.ctx, s.payment.ID, req)
	s.True(apperrors.IsValidation(err))
	s.Equal(model.PaymentStatusPending, s.reloadPayment().Status)
	s.Equal(0, s.reloadCoupon().UsedCount)

	cash = decimal.NewFromInt(105)
	req.Cash = &cash
	got, err := s.svc.Settle(s.ctx, s.payment.ID, req)
	s.Require().NoError(err)
	s.Require().NotNil(got.Method)
	s.Equal(model.MethodSplit, got.Method.Kind)
	s.Equal("105.00", got.Method.Cash.StringFixed(2))
	s.Equal("100.00", got.Method.Card.StringFixed(2))
}

func (s *SettlementSuite) TestRollbackWhenStatusWriteFails() {
	s.store.FailOn("patients.transition", errors.New("disk full"))

	_, err := s.svc.Settle(s.ctx, s.payment.ID, s.cashRequest())
	s.True(apperrors.IsPersistence(err))

	s.Equal(model.PaymentStatusPending, s.reloadPayment().Status)
	s.Nil(s.reloadPayment().PaidAt)
	s.Equal(0, s.reloadCoupon().UsedCount)
	s.Equal(model.PatientStatusAwaitingPayment, s.reloadPatient().Status)

	events, err := s.store.Outbox().GetPendingEvents(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *SettlementSuite) TestExhaustedCouponIsRejectedUpfront() {
	_, err := s.store.Coupons().IncrementUsage(s.ctx, s.coupon.ID)
	s.Require().NoError(err)

	_, err = s.svc.Settle(s.ctx, s.payment.ID, s.cashRequest())
	s.True(apperrors.IsValidation(err))
	s.Contains(err.Error(), "coupon usage limit reached")
	s.Equal(model.PaymentStatusPending, s.reloadPayment().Status)
}

// staleCoupons hides concurrent redemptions from the pre-write checks.
type staleCoupons struct {
	repository.CouponRepository
}

func (c staleCoupons) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	cp, err := c.CouponRepository.GetByCode(ctx, code)
	if cp != nil {
		cp.UsedCount = 0
	}
	return cp, err
}

type staleRepos struct {
	repository.Repositories
}

func (r staleRepos) Coupons() repository.CouponRepository {
	return staleCoupons{r.Repositories.Coupons()}
}

func (s *SettlementSuite) TestConcurrentRedemptionRollsBack() {
	_, err := s.store.Coupons().IncrementUsage(s.ctx, s.coupon.ID)
	s.Require().NoError(err)
	svc := s.newService(staleRepos{s.store})

	_, err = svc.Settle(s.ctx, s.payment.ID, s.cashRequest())
	s.True(apperrors.IsValidation(err))
	s.Contains(err.Error(), "coupon usage limit reached")

	s.Equal(model.PaymentStatusPending, s.reloadPayment().Status)
	s.Equal(1, s.reloadCoupon().UsedCount)
	s.Equal(model.PatientStatusAwaitingPayment, s.reloadPatient().Status)
}

func (s *SettlementSuite) TestPatientMustAwaitPayment() {
	_, err := s.store.Patients(model.PartitionB).Transition(s.ctx, s.patient.ID, model.StatusChange{
		From: model.PatientStatusAwaitingPayment,
		To:   model.PatientStatusCancelled,
	})
	s.Require().NoError(err)

	_, err = s.svc.Settle(s.ctx, s.payment.ID, s.cashRequest())
	s.True(apperrors.IsInvalidTransition(err))
	s.Equal(model.PaymentStatusPending, s.reloadPayment().Status)
}

func (s *SettlementSuite) TestDoctorIsRequired() {
	req := s.cashRequest()
	req.DoctorID = uuid.Nil

	_, err := s.svc.Settle(s.ctx, s.payment.ID, req)
	s.True(apperrors.IsValidation(err))
}

func (s *SettlementSuite) TestUnknownPayment() {
	_, err := s.svc.Settle(s.ctx, uuid.New(), s.cashRequest())
	s.True(apperrors.IsNotFound(err))
}

func (s *SettlementSuite) TestDiscountsFloorAtZero() {
	req := s.cashRequest()
	req.ManualDiscount = decimal.NewFromInt(500)

	got, err := s.svc.Settle(s.ctx, s.payment.ID, req)
	s.Require().NoError(err)
	s.True(got.Amount.IsZero())
	s.True(got.ReferralAmount.IsZero())
}
