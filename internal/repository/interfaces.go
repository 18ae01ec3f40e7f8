package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
)

// ErrConflict is returned by conditional writes whose guard matched no row.
var ErrConflict = errors.New("conditional write matched no rows")

// All repository interfaces in one file
type (
	// PatientStore is one physical patient partition.
	PatientStore interface {
		Partition() model.Partition
		Create(ctx context.Context, patient *model.PatientRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.PatientRecord, error)
		// Transition applies change only while the stored status equals change.From.
		Transition(ctx context.Context, id uuid.UUID, change model.StatusChange) (*model.PatientRecord, error)
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.PatientRecord, error)
	}

	TreatmentRepository interface {
		Create(ctx context.Context, reading *model.TreatmentReading) error
		Get(ctx context.Context, id uuid.UUID) (*model.TreatmentReading, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TreatmentReading, error)
	}

	TierRepository interface {
		Create(ctx context.Context, tier *model.CupPriceTier) error
		List(ctx context.Context) ([]*model.CupPriceTier, error)
		ListActive(ctx context.Context) ([]*model.CupPriceTier, error)
	}

	CouponRepository interface {
		Create(ctx context.Context, coupon *model.Coupon) error
		Get(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
		GetByCode(ctx context.Context, code string) (*model.Coupon, error)
		// IncrementUsage bumps used_count by one while the coupon is active and
		// below its ceiling. Returns ErrConflict otherwise.
		IncrementUsage(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
		// Complete settles a payment that is still pending. Returns ErrConflict otherwise.
		Complete(ctx context.Context, id uuid.UUID, settlement model.Settlement) (*model.Payment, error)
		List(ctx context.Context, filters *model.PaymentFilters) ([]*model.Payment, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Repositories groups every repository bound to the same connection or transaction.
	Repositories interface {
		Patients(p model.Partition) PatientStore
		Treatments() TreatmentRepository
		Tiers() TierRepository
		Coupons() CouponRepository
		Payments() PaymentRepository
		Outbox() OutboxRepository
	}

	// Tx is the view of the repositories inside a unit of work.
	Tx = Repositories

	// UnitOfWork runs fn atomically. Any error returned by fn rolls back every
	// write made through tx.
	UnitOfWork interface {
		Do(ctx context.Context, fn func(tx Tx) error) error
	}

	Store interface {
		Repositories
		UnitOfWork
		Ping(ctx context.Context) error
		Close() error
	}
)
