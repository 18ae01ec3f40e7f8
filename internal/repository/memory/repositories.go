package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

type patientStore struct {
	*repos
	partition model.Partition
}

func (s *patientStore) Partition() model.Partition {
	return s.partition
}

func (s *patientStore) Create(ctx context.Context, patient *model.PatientRecord) error {
	return s.view("patients.create", func(d *dataset) error {
		rows, ok := d.patients[s.partition]
		if !ok {
			return apperrors.Validation("unknown partition "+string(s.partition), nil)
		}
		if patient.ID == uuid.Nil {
			patient.ID = uuid.New()
		}
		now := s.now()
		patient.CreatedAt = now
		patient.UpdatedAt = now
		patient.Partition = s.partition
		rows[patient.ID] = *patient
		return nil
	})
}

func (s *patientStore) Get(ctx context.Context, id uuid.UUID) (*model.PatientRecord, error) {
	var out model.PatientRecord
	err := s.view("patients.get", func(d *dataset) error {
		row, ok := d.patients[s.partition][id]
		if !ok {
			return apperrors.NotFound("patient", nil)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *patientStore) Transition(ctx context.Context, id uuid.UUID, change model.StatusChange) (*model.PatientRecord, error) {
	var out model.PatientRecord
	err := s.view("patients.transition", func(d *dataset) error {
		row, ok := d.patients[s.partition][id]
		if !ok {
			return apperrors.NotFound("patient", nil)
		}
		if row.Status != change.From {
			return repository.ErrConflict
		}
		row.Status = change.To
		if change.AppointmentAt != nil {
			row.AppointmentAt = change.AppointmentAt
		}
		if change.DoctorID != nil {
			row.DoctorID = change.DoctorID
		}
		if change.CancelReason != nil {
			row.CancelReason = change.CancelReason
		}
		row.UpdatedAt = s.now()
		d.patients[s.partition][id] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *patientStore) List(ctx context.Context, filters *model.PatientFilters) ([]*model.PatientRecord, error) {
	var out []*model.PatientRecord
	err := s.view("patients.list", func(d *dataset) error {
		for _, row := range d.patients[s.partition] {
			if filters != nil && !matchPatient(row, filters) {
				continue
			}
			row := row
			out = append(out, &row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return patientBefore(out[i], out[j])
	})
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func matchPatient(row model.PatientRecord, f *model.PatientFilters) bool {
	if f.Status != "" && row.Status != f.Status {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		if row.AppointmentAt == nil || !f.DateRange.Contains(*row.AppointmentAt) {
			return false
		}
	}
	return true
}

// patientBefore orders by appointment time, unscheduled last, then by creation.
func patientBefore(a, b *model.PatientRecord) bool {
	switch {
	case a.AppointmentAt != nil && b.AppointmentAt != nil && !a.AppointmentAt.Equal(*b.AppointmentAt):
		return a.AppointmentAt.Before(*b.AppointmentAt)
	case a.AppointmentAt != nil && b.AppointmentAt == nil:
		return true
	case a.AppointmentAt == nil && b.AppointmentAt != nil:
		return false
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

type treatmentRepository struct {
	*repos
}

func (r *treatmentRepository) Create(ctx context.Context, reading *model.TreatmentReading) error {
	return r.view("readings.create", func(d *dataset) error {
		if reading.ID == uuid.Nil {
			reading.ID = uuid.New()
		}
		now := r.now()
		reading.CreatedAt = now
		reading.UpdatedAt = now
		d.readings[reading.ID] = *reading
		return nil
	})
}

func (r *treatmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.TreatmentReading, error) {
	var out model.TreatmentReading
	err := r.view("readings.get", func(d *dataset) error {
		row, ok := d.readings[id]
		if !ok {
			return apperrors.NotFound("treatment reading", nil)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *treatmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TreatmentReading, error) {
	var out []*model.TreatmentReading
	err := r.view("readings.list", func(d *dataset) error {
		for _, row := range d.readings {
			if row.PatientID == patientID {
				row := row
				out = append(out, &row)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type tierRepository struct {
	*repos
}

func (r *tierRepository) Create(ctx context.Context, tier *model.CupPriceTier) error {
	return r.view("tiers.create", func(d *dataset) error {
		if tier.ID == uuid.Nil {
			tier.ID = uuid.New()
		}
		now := r.now()
		tier.CreatedAt = now
		tier.UpdatedAt = now
		d.tiers[tier.ID] = *tier
		return nil
	})
}

func (r *tierRepository) List(ctx context.Context) ([]*model.CupPriceTier, error) {
	return r.list("tiers.list", false)
}

func (r *tierRepository) ListActive(ctx context.Context) ([]*model.CupPriceTier, error) {
	return r.list("tiers.list_active", true)
}

func (r *tierRepository) list(op string, activeOnly bool) ([]*model.CupPriceTier, error) {
	var out []*model.CupPriceTier
	err := r.view(op, func(d *dataset) error {
		for _, row := range d.tiers {
			if activeOnly && !row.Active {
				continue
			}
			row := row
			out = append(out, &row)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Threshold < out[j].Threshold })
	return out, err
}

type couponRepository struct {
	*repos
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	return r.view("coupons.create", func(d *dataset) error {
		for _, row := range d.coupons {
			if row.Code == coupon.Code {
				return apperrors.Validation("coupon code already exists", nil)
			}
		}
		if coupon.ID == uuid.Nil {
			coupon.ID = uuid.New()
		}
		now := r.now()
		coupon.CreatedAt = now
		coupon.UpdatedAt = now
		d.coupons[coupon.ID] = *coupon
		return nil
	})
}

func (r *couponRepository) Get(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	var out model.Coupon
	err := r.view("coupons.get", func(d *dataset) error {
		row, ok := d.coupons[id]
		if !ok {
			return apperrors.NotFound("coupon", nil)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var out *model.Coupon
	err := r.view("coupons.get_by_code", func(d *dataset) error {
		for _, row := range d.coupons {
			if row.Code == code {
				row := row
				out = &row
				return nil
			}
		}
		return apperrors.NotFound("coupon", nil)
	})
	return out, err
}

func (r *couponRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	var out model.Coupon
	err := r.view("coupons.increment", func(d *dataset) error {
		row, ok := d.coupons[id]
		if !ok {
			return apperrors.NotFound("coupon", nil)
		}
		if !row.Active || row.Exhausted() {
			return repository.ErrConflict
		}
		row.UsedCount++
		row.UpdatedAt = r.now()
		d.coupons[id] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type paymentRepository struct {
	*repos
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.view("payments.create", func(d *dataset) error {
		if payment.ID == uuid.Nil {
			payment.ID = uuid.New()
		}
		now := r.now()
		payment.CreatedAt = now
		payment.UpdatedAt = now
		d.payments[payment.ID] = *payment
		return nil
	})
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var out model.Payment
	err := r.view("payments.get", func(d *dataset) error {
		row, ok := d.payments[id]
		if !ok {
			return apperrors.NotFound("payment", nil)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *paymentRepository) Complete(ctx context.Context, id uuid.UUID, st model.Settlement) (*model.Payment, error) {
	var out model.Payment
	err := r.view("payments.complete", func(d *dataset) error {
		row, ok := d.payments[id]
		if !ok {
			return apperrors.NotFound("payment", nil)
		}
		if row.Status != model.PaymentStatusPending {
			return repository.ErrConflict
		}
		doctorID := st.DoctorID
		method := st.Method
		paidAt := st.PaidAt

		row.Status = model.PaymentStatusCompleted
		row.ManualDiscount = st.ManualDiscount
		row.CouponDiscount = st.CouponDiscount
		row.Amount = st.Amount
		row.ReferralAmount = st.ReferralAmount
		row.DoctorID = &doctorID
		row.CouponID = st.CouponID
		row.Taxable = st.Taxable
		row.Method = &method
		row.PaidAt = &paidAt
		row.UpdatedAt = r.now()
		d.payments[id] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *paymentRepository) List(ctx context.Context, filters *model.PaymentFilters) ([]*model.Payment, error) {
	var out []*model.Payment
	err := r.view("payments.list", func(d *dataset) error {
		for _, row := range d.payments {
			if filters != nil && !matchPayment(row, filters) {
				continue
			}
			row := row
			out = append(out, &row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// matchPayment applies the date range to the settlement time, so pending
// payments drop out of any bounded query.
func matchPayment(row model.Payment, f *model.PaymentFilters) bool {
	if f.Status != "" && row.Status != f.Status {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		if row.PaidAt == nil || !f.DateRange.Contains(*row.PaidAt) {
			return false
		}
	}
	return true
}

type outboxRepository struct {
	*repos
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return r.view("outbox.create", func(d *dataset) error {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		now := r.now()
		event.CreatedAt = now
		event.UpdatedAt = now
		event.Status = model.OutboxStatusPending
		d.outbox[event.ID] = *event
		return nil
	})
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var out []*model.OutboxEvent
	err := r.view("outbox.get_pending", func(d *dataset) error {
		now := r.now()
		for _, row := range d.outbox {
			switch row.Status {
			case model.OutboxStatusPending:
			case model.OutboxStatusRetry:
				if row.RetryAt != nil && row.RetryAt.After(now) {
					continue
				}
			default:
				continue
			}
			row := row
			out = append(out, &row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepository) update(op string, id uuid.UUID, fn func(row *model.OutboxEvent, now time.Time)) error {
	return r.view(op, func(d *dataset) error {
		row, ok := d.outbox[id]
		if !ok {
			return apperrors.NotFound("outbox event", nil)
		}
		now := r.now()
		fn(&row, now)
		row.UpdatedAt = now
		d.outbox[id] = row
		return nil
	})
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.update("outbox.mark_processed", id, func(row *model.OutboxEvent, now time.Time) {
		row.Status = model.OutboxStatusProcessed
		row.ProcessedAt = &now
		row.ErrorMessage = nil
	})
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	return r.update("outbox.mark_retry", id, func(row *model.OutboxEvent, now time.Time) {
		row.Status = model.OutboxStatusRetry
		row.RetryCount++
		row.ErrorMessage = &errMsg
		row.RetryAt = &retryAt
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.update("outbox.mark_failed", id, func(row *model.OutboxEvent, now time.Time) {
		row.Status = model.OutboxStatusFailed
		row.ErrorMessage = &errMsg
	})
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.view("outbox.delete_processed", func(d *dataset) error {
		for id, row := range d.outbox {
			if row.Status == model.OutboxStatusProcessed && row.ProcessedAt != nil && row.ProcessedAt.Before(before) {
				delete(d.outbox, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
