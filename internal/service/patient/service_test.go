package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository/memory"
	"github.com/jwalitptl/cupping-console/internal/service/lifecycle"
	"github.com/jwalitptl/cupping-console/internal/service/partition"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

func newService() (*Service, *memory.Store) {
	store := memory.NewStore()
	log := logger.Nop()
	m := metrics.NewMetrics("test", nil)
	return NewService(store, partition.NewResolver(store), lifecycle.NewMachine(log, m), log), store
}

func intake(t *testing.T, svc *Service, gender model.Gender) *model.PatientRecord {
	t.Helper()
	rec, err := svc.Intake(context.Background(), &model.CreatePatientRequest{
		Name:   "  Layla ",
		Phone:  "0559876543",
		Gender: gender,
	})
	require.NoError(t, err)
	return rec
}

func TestIntakeRoutesByGender(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()

	female := intake(t, svc, model.GenderFemale)
	male := intake(t, svc, model.GenderMale)

	assert.Equal(t, model.PartitionB, female.Partition)
	assert.Equal(t, model.PartitionA, male.Partition)
	assert.Equal(t, model.PatientStatusIntakePending, female.Status)
	assert.Equal(t, "Layla", female.Name)

	_, err := store.Patients(model.PartitionA).Get(ctx, female.ID)
	assert.True(t, apperrors.IsNotFound(err))

	got, err := svc.Get(ctx, female.ID, "")
	require.NoError(t, err)
	assert.Equal(t, female.ID, got.ID)

	_, err = svc.Get(ctx, female.ID, model.GenderMale)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestIntakeValidates(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Intake(context.Background(), &model.CreatePatientRequest{Name: "x", Phone: "1", Gender: "other"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestIntakeRollsBackWhenOutboxFails(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	store.FailOn("outbox.create", errors.New("disk full"))

	_, err := svc.Intake(ctx, &model.CreatePatientRequest{Name: "Layla", Phone: "1", Gender: model.GenderFemale})
	assert.True(t, apperrors.IsPersistence(err))

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLifecycleThroughService(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	rec := intake(t, svc, model.GenderMale)

	at := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	got, err := svc.Schedule(ctx, rec.ID, "", &model.ScheduleRequest{AppointmentAt: at})
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusScheduled, got.Status)
	require.NotNil(t, got.AppointmentAt)
	assert.True(t, got.AppointmentAt.Equal(at))

	_, err = svc.Finish(ctx, rec.ID, "")
	assert.True(t, apperrors.IsInvalidTransition(err))

	got, err = svc.StartSession(ctx, rec.ID, model.GenderMale)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusInTreatment, got.Status)

	got, err = svc.Cancel(ctx, rec.ID, "", &model.CancelRequest{Reason: " no show "})
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, "no show", *got.CancelReason)

	_, err = svc.Cancel(ctx, rec.ID, "", nil)
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestScheduleRequiresTime(t *testing.T) {
	svc, _ := newService()
	rec := intake(t, svc, model.GenderMale)
	_, err := svc.Schedule(context.Background(), rec.ID, "", &model.ScheduleRequest{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTransitionUnknownPatient(t *testing.T) {
	svc, _ := newService()
	_, err := svc.StartSession(context.Background(), uuid.New(), "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListMergesPartitionsByAppointment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

	late := intake(t, svc, model.GenderMale)
	early := intake(t, svc, model.GenderFemale)
	unscheduled := intake(t, svc, model.GenderFemale)

	_, err := svc.Schedule(ctx, late.ID, "", &model.ScheduleRequest{AppointmentAt: day.Add(15 * time.Hour)})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, early.ID, "", &model.ScheduleRequest{AppointmentAt: day.Add(9 * time.Hour)})
	require.NoError(t, err)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, early.ID, all[0].ID)
	assert.Equal(t, late.ID, all[1].ID)
	assert.Equal(t, unscheduled.ID, all[2].ID)

	scheduled, err := svc.List(ctx, &model.PatientFilters{Status: model.PatientStatusScheduled, Limit: 1})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, early.ID, scheduled[0].ID)

	male, err := svc.List(ctx, &model.PatientFilters{Partition: model.PartitionA})
	require.NoError(t, err)
	require.Len(t, male, 1)
	assert.Equal(t, late.ID, male[0].ID)

	_, err = svc.List(ctx, &model.PatientFilters{Status: "bogus"})
	assert.True(t, apperrors.IsValidation(err))
}
