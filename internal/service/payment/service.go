package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/service/coupon"
	"github.com/jwalitptl/cupping-console/internal/service/discount"
	"github.com/jwalitptl/cupping-console/internal/service/event"
	"github.com/jwalitptl/cupping-console/internal/service/lifecycle"
	"github.com/jwalitptl/cupping-console/internal/service/partition"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

var (
	errAlreadySettled = apperrors.Validation("payment already settled", nil)
	errCouponExceeded = apperrors.Validation("coupon usage limit reached", nil)
)

type Service struct {
	store    repository.Store
	resolver *partition.Resolver
	machine  *lifecycle.Machine
	coupons  *coupon.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	store repository.Store,
	resolver *partition.Resolver,
	machine *lifecycle.Machine,
	coupons *coupon.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		machine:  machine,
		coupons:  coupons,
		logger:   log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, err := s.store.Payments().Get(ctx, id)
	if err != nil {
		return nil, apperrors.WrapPersistence("load payment", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filters *model.PaymentFilters) ([]*model.Payment, error) {
	payments, err := s.store.Payments().List(ctx, filters)
	if err != nil {
		return nil, apperrors.WrapPersistence("list payments", err)
	}
	return payments, nil
}

// Settle completes a pending payment. Every check runs before the first
// write; the payment, coupon counter, patient status and outbox rows are
// then written in one unit of work.
func (s *Service) Settle(ctx context.Context, id uuid.UUID, req *model.SettleRequest) (*model.Payment, error) {
	timer := prometheus.NewTimer(s.metrics.SettlementLatency)
	defer timer.ObserveDuration()

	settled, err := s.settle(ctx, id, req)
	outcome := "success"
	if err != nil {
		outcome = outcomeOf(err)
	}
	s.metrics.Settlements.WithLabelValues(string(req.Method), outcome).Inc()
	if err != nil {
		return nil, err
	}

	s.metrics.SettledAmount.WithLabelValues(string(req.Method)).Add(settled.Amount.InexactFloat64())
	s.logger.Info("Payment settled",
		"payment_id", settled.ID.String(),
		"patient_id", settled.PatientID.String(),
		"method", string(req.Method),
		"amount", settled.Amount.StringFixed(2))
	return settled, nil
}

func (s *Service) settle(ctx context.Context, id uuid.UUID, req *model.SettleRequest) (*model.Payment, error) {
	pending, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pending.Status != model.PaymentStatusPending {
		return nil, errAlreadySettled
	}

	patient, err := s.resolver.Lookup(ctx, pending.Partition, pending.PatientID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Target(patient.Status, lifecycle.TriggerSettlePayment); err != nil {
		return nil, err
	}
	if req.DoctorID == uuid.Nil {
		return nil, apperrors.Validation("doctor is required", nil)
	}

	var c *model.Coupon
	if coupon.Normalize(req.CouponCode) != "" {
		if c, err = s.coupons.Redeemable(ctx, req.CouponCode); err != nil {
			return nil, err
		}
	}

	price, err := discount.Apply(pending.BaseAmount, req.ManualDiscount, c)
	if err != nil {
		return nil, err
	}
	method, err := BuildMethod(req, price.Final)
	if err != nil {
		return nil, err
	}

	st := model.Settlement{
		ManualDiscount: price.Manual,
		CouponDiscount: price.CouponAmount,
		Amount:         price.Final,
		ReferralAmount: discount.Referral(price.Final, c),
		DoctorID:       req.DoctorID,
		Taxable:        req.Taxable,
		Method:         method,
		PaidAt:         s.now(),
	}
	if c != nil {
		st.CouponID = &c.ID
	}

	var settled *model.Payment
	err = s.store.Do(ctx, func(tx repository.Tx) error {
		var err error
		settled, err = tx.Payments().Complete(ctx, pending.ID, st)
		if errors.Is(err, repository.ErrConflict) {
			return errAlreadySettled
		}
		if err != nil {
			return err
		}

		if c != nil {
			used, err := tx.Coupons().IncrementUsage(ctx, c.ID)
			if errors.Is(err, repository.ErrConflict) {
				return errCouponExceeded
			}
			if err != nil {
				return err
			}
			if err := event.Emit(ctx, tx.Outbox(), event.CouponUsed, model.TableCoupons, used.ID, used); err != nil {
				return err
			}
		}

		updated, err := s.machine.Fire(ctx, tx.Patients(patient.Partition), patient, lifecycle.TriggerSettlePayment,
			model.StatusChange{DoctorID: &st.DoctorID})
		if err != nil {
			return err
		}

		if err := event.Emit(ctx, tx.Outbox(), event.PaymentSettled, model.TablePayments, settled.ID, settled); err != nil {
			return err
		}
		return event.Emit(ctx, tx.Outbox(), event.PatientStatusChanged, model.TablePatients, updated.ID, updated)
	})
	if err != nil {
		s.logger.Error(err, "Settlement rolled back",
			"payment_id", pending.ID.String(),
			"patient_id", pending.PatientID.String(),
			"partition", string(pending.Partition))
		return nil, apperrors.WrapPersistence("settle payment", err)
	}
	return settled, nil
}

func outcomeOf(err error) string {
	appErr, ok := apperrors.As(err)
	if !ok {
		return "error"
	}
	switch appErr.Code {
	case apperrors.ErrValidation:
		return "rejected"
	case apperrors.ErrNotFound:
		return "not_found"
	case apperrors.ErrInvalidTransition:
		return "invalid_transition"
	case apperrors.ErrPersistence:
		return "persistence_error"
	default:
		return "error"
	}
}
