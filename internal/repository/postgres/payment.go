package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
)

const paymentColumns = `id, patient_id, partition, reading_id, point_count, base_amount, manual_discount,
	coupon_discount, amount, referral_amount, doctor_id, coupon_id, taxable, method, status, paid_at,
	created_at, updated_at`

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(db sqlx.ExtContext) repository.PaymentRepository {
	return &paymentRepository{NewBaseRepository(db)}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now().UTC()
	payment.UpdatedAt = payment.CreatedAt

	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.PatientID,
		payment.Partition,
		payment.ReadingID,
		payment.PointCount,
		payment.BaseAmount,
		payment.ManualDiscount,
		payment.CouponDiscount,
		payment.Amount,
		payment.ReferralAmount,
		payment.DoctorID,
		payment.CouponID,
		payment.Taxable,
		payment.Method,
		payment.Status,
		payment.PaidAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := r.get(ctx, "payment", &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Complete(ctx context.Context, id uuid.UUID, st model.Settlement) (*model.Payment, error) {
	query := `
		UPDATE payments
		SET status = $2,
			manual_discount = $3,
			coupon_discount = $4,
			amount = $5,
			referral_amount = $6,
			doctor_id = $7,
			coupon_id = $8,
			taxable = $9,
			method = $10,
			paid_at = $11,
			updated_at = $12
		WHERE id = $1 AND status = $13
		RETURNING ` + paymentColumns

	var payment model.Payment
	err := r.conditional(ctx, "payment", "payments", id, &payment, query,
		id,
		model.PaymentStatusCompleted,
		st.ManualDiscount,
		st.CouponDiscount,
		st.Amount,
		st.ReferralAmount,
		st.DoctorID,
		st.CouponID,
		st.Taxable,
		st.Method,
		st.PaidAt,
		time.Now().UTC(),
		model.PaymentStatusPending,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filters *model.PaymentFilters) ([]*model.Payment, error) {
	var f filter
	limit := ""
	if filters != nil {
		if filters.Status != "" {
			f.add("status = ?", filters.Status)
		}
		if !filters.From.IsZero() {
			f.add("paid_at >= ?", filters.From)
		}
		if !filters.To.IsZero() {
			f.add("paid_at < ?", filters.To)
		}
	}
	query := `SELECT ` + paymentColumns + ` FROM payments` + f.where() + ` ORDER BY created_at ASC`
	if filters != nil {
		limit = f.limit(filters.Limit)
	}

	var payments []*model.Payment
	if err := sqlx.SelectContext(ctx, r.db, &payments, query+limit, f.args...); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
