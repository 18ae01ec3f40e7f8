package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

func newPatient(t *testing.T, s *Store, p model.Partition, status model.PatientStatus) *model.PatientRecord {
	t.Helper()
	rec := &model.PatientRecord{Name: "Sara", Phone: "0500000000", Status: status}
	require.NoError(t, s.Patients(p).Create(context.Background(), rec))
	return rec
}

func TestPartitionsAreDisjoint(t *testing.T) {
	s := NewStore()
	rec := newPatient(t, s, model.PartitionB, model.PatientStatusScheduled)

	_, err := s.Patients(model.PartitionA).Get(context.Background(), rec.ID)
	assert.True(t, apperrors.IsNotFound(err))

	got, err := s.Patients(model.PartitionB).Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PartitionB, got.Partition)
}

func TestTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rec := newPatient(t, s, model.PartitionA, model.PatientStatusScheduled)

	_, err := s.Patients(model.PartitionA).Transition(ctx, rec.ID, model.StatusChange{
		From: model.PatientStatusInTreatment,
		To:   model.PatientStatusAwaitingPayment,
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := s.Patients(model.PartitionA).Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusScheduled, got.Status)
}

func TestDoRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rec := newPatient(t, s, model.PartitionA, model.PatientStatusScheduled)
	boom := errors.New("boom")

	err := s.Do(ctx, func(tx repository.Tx) error {
		if _, err := tx.Patients(model.PartitionA).Transition(ctx, rec.ID, model.StatusChange{
			From: model.PatientStatusScheduled,
			To:   model.PatientStatusInTreatment,
		}); err != nil {
			return err
		}
		if err := tx.Payments().Create(ctx, &model.Payment{PatientID: rec.ID, Status: model.PaymentStatusPending}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Patients(model.PartitionA).Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusScheduled, got.Status)

	payments, err := s.Payments().List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestFailOnIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	disk := errors.New("disk full")
	s.FailOn("payments.create", disk)

	err := s.Payments().Create(ctx, &model.Payment{Status: model.PaymentStatusPending})
	assert.ErrorIs(t, err, disk)

	assert.NoError(t, s.Payments().Create(ctx, &model.Payment{Status: model.PaymentStatusPending}))
}

func TestIncrementUsageHonoursCeiling(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	coupon := &model.Coupon{Code: "ONCE", Kind: model.DiscountFixed, Value: decimal.NewFromInt(10), MaxUses: 1, Active: true}
	require.NoError(t, s.Coupons().Create(ctx, coupon))

	got, err := s.Coupons().IncrementUsage(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)

	_, err = s.Coupons().IncrementUsage(ctx, coupon.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestIncrementUsageUnlimited(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	coupon := &model.Coupon{Code: "OPEN", Kind: model.DiscountFixed, Value: decimal.NewFromInt(5), Active: true}
	require.NoError(t, s.Coupons().Create(ctx, coupon))

	for i := 0; i < 3; i++ {
		_, err := s.Coupons().IncrementUsage(ctx, coupon.ID)
		require.NoError(t, err)
	}
	got, err := s.Coupons().Get(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UsedCount)
}

func TestCompleteOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := &model.Payment{Status: model.PaymentStatusPending, Amount: decimal.NewFromInt(100)}
	require.NoError(t, s.Payments().Create(ctx, p))

	st := model.Settlement{Amount: decimal.NewFromInt(100), Method: model.PaymentMethod{Kind: model.MethodCash}, PaidAt: time.Now()}
	done, err := s.Payments().Complete(ctx, p.ID, st)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, done.Status)
	require.NotNil(t, done.PaidAt)

	_, err = s.Payments().Complete(ctx, p.ID, st)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestListPatientsByAppointmentRange(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	early := day.Add(9 * time.Hour)
	late := day.Add(15 * time.Hour)
	next := day.Add(33 * time.Hour)
	for _, at := range []time.Time{late, next, early} {
		at := at
		rec := &model.PatientRecord{Name: "x", Status: model.PatientStatusScheduled, AppointmentAt: &at}
		require.NoError(t, s.Patients(model.PartitionA).Create(ctx, rec))
	}

	got, err := s.Patients(model.PartitionA).List(ctx, &model.PatientFilters{
		DateRange: model.DateRange{From: day, To: day.AddDate(0, 0, 1)},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].AppointmentAt.Equal(early))
	assert.True(t, got[1].AppointmentAt.Equal(late))
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	evt := &model.OutboxEvent{EventType: "payment.settled", TableName: model.TablePayments, Payload: []byte(`{}`)}
	require.NoError(t, s.Outbox().Create(ctx, evt))

	pending, err := s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.Outbox().MarkRetry(ctx, evt.ID, "redis down", now.Add(time.Minute)))
	pending, err = s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "retry not yet due")

	now = now.Add(2 * time.Minute)
	pending, err = s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)

	require.NoError(t, s.Outbox().MarkProcessed(ctx, evt.ID))
	n, err := s.Outbox().DeleteProcessedBefore(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
