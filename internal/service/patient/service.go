package patient

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/service/event"
	"github.com/jwalitptl/cupping-console/internal/service/lifecycle"
	"github.com/jwalitptl/cupping-console/internal/service/partition"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/validator"
)

type Service struct {
	store     repository.Store
	resolver  *partition.Resolver
	machine   *lifecycle.Machine
	validator *validator.Validator
	logger    *logger.Logger
}

func NewService(store repository.Store, resolver *partition.Resolver, machine *lifecycle.Machine, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		resolver:  resolver,
		machine:   machine,
		validator: validator.New(),
		logger:    log,
	}
}

// Intake admits a patient into the partition their gender selects.
func (s *Service) Intake(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientRecord, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	p, ok := req.Gender.Partition()
	if !ok {
		return nil, apperrors.Validation("unknown gender "+string(req.Gender), nil)
	}

	rec := &model.PatientRecord{
		Name:           strings.TrimSpace(req.Name),
		Phone:          strings.TrimSpace(req.Phone),
		Gender:         req.Gender,
		Status:         model.PatientStatusIntakePending,
		AppointmentAt:  req.AppointmentAt,
		ChiefComplaint: req.ChiefComplaint,
	}

	err := s.store.Do(ctx, func(tx repository.Tx) error {
		if err := tx.Patients(p).Create(ctx, rec); err != nil {
			return err
		}
		return event.Emit(ctx, tx.Outbox(), event.PatientCreated, model.TablePatients, rec.ID, rec)
	})
	if err != nil {
		s.logger.Error(err, "Failed to admit patient", "partition", string(p))
		return nil, apperrors.WrapPersistence("create patient", err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, genderHint model.Gender) (*model.PatientRecord, error) {
	_, rec, err := s.resolver.Resolve(ctx, id, genderHint)
	return rec, err
}

// List merges both partitions unless the filter names one.
func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.PatientRecord, error) {
	if filters == nil {
		filters = &model.PatientFilters{}
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, apperrors.Validation("unknown status "+string(filters.Status), nil)
	}

	partitions := model.ProbeOrder
	if filters.Partition != "" {
		if !filters.Partition.Valid() {
			return nil, apperrors.Validation("unknown partition "+string(filters.Partition), nil)
		}
		partitions = []model.Partition{filters.Partition}
	}

	var out []*model.PatientRecord
	for _, p := range partitions {
		rows, err := s.resolver.Store(p).List(ctx, filters)
		if err != nil {
			return nil, apperrors.WrapPersistence("list patients", err)
		}
		out = append(out, rows...)
	}

	sort.SliceStable(out, func(i, j int) bool { return byAppointment(out[i], out[j]) })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// byAppointment orders scheduled patients first, earliest appointment first.
func byAppointment(a, b *model.PatientRecord) bool {
	switch {
	case a.AppointmentAt == nil && b.AppointmentAt == nil:
		return a.CreatedAt.Before(b.CreatedAt)
	case a.AppointmentAt == nil:
		return false
	case b.AppointmentAt == nil:
		return true
	case a.AppointmentAt.Equal(*b.AppointmentAt):
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.AppointmentAt.Before(*b.AppointmentAt)
}

func (s *Service) Schedule(ctx context.Context, id uuid.UUID, genderHint model.Gender, req *model.ScheduleRequest) (*model.PatientRecord, error) {
	if req.AppointmentAt.IsZero() {
		return nil, apperrors.Validation("appointment time is required", nil)
	}
	at := req.AppointmentAt
	return s.fire(ctx, id, genderHint, lifecycle.TriggerConfirmAppointment, model.StatusChange{AppointmentAt: &at})
}

func (s *Service) StartSession(ctx context.Context, id uuid.UUID, genderHint model.Gender) (*model.PatientRecord, error) {
	return s.fire(ctx, id, genderHint, lifecycle.TriggerStartSession, model.StatusChange{})
}

func (s *Service) Finish(ctx context.Context, id uuid.UUID, genderHint model.Gender) (*model.PatientRecord, error) {
	return s.fire(ctx, id, genderHint, lifecycle.TriggerFinishTreatment, model.StatusChange{})
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, genderHint model.Gender, req *model.CancelRequest) (*model.PatientRecord, error) {
	change := model.StatusChange{}
	if req != nil {
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			change.CancelReason = &reason
		}
	}
	return s.fire(ctx, id, genderHint, lifecycle.TriggerCancel, change)
}

func (s *Service) fire(ctx context.Context, id uuid.UUID, genderHint model.Gender, trigger lifecycle.Trigger, change model.StatusChange) (*model.PatientRecord, error) {
	var updated *model.PatientRecord
	err := s.store.Do(ctx, func(tx repository.Tx) error {
		p, rec, err := s.resolver.Within(tx).Resolve(ctx, id, genderHint)
		if err != nil {
			return err
		}
		updated, err = s.machine.Fire(ctx, tx.Patients(p), rec, trigger, change)
		if err != nil {
			return err
		}
		return event.Emit(ctx, tx.Outbox(), event.PatientStatusChanged, model.TablePatients, updated.ID, updated)
	})
	if err != nil {
		return nil, apperrors.WrapPersistence("update patient status", err)
	}
	return updated, nil
}
