// Package treatment records a session's readings and opens its bill.
package treatment

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	"github.com/jwalitptl/cupping-console/internal/service/event"
	"github.com/jwalitptl/cupping-console/internal/service/lifecycle"
	"github.com/jwalitptl/cupping-console/internal/service/partition"
	"github.com/jwalitptl/cupping-console/internal/service/pricing"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
	"github.com/jwalitptl/cupping-console/pkg/validator"
)

type Service struct {
	store     repository.Store
	resolver  *partition.Resolver
	machine   *lifecycle.Machine
	catalog   *pricing.Catalog
	validator *validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	store repository.Store,
	resolver *partition.Resolver,
	machine *lifecycle.Machine,
	catalog *pricing.Catalog,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:     store,
		resolver:  resolver,
		machine:   machine,
		catalog:   catalog,
		validator: validator.New(),
		logger:    log,
		metrics:   m,
	}
}

// Result is everything a saved reading produced.
type Result struct {
	Reading *model.TreatmentReading `json:"reading"`
	Payment *model.Payment          `json:"payment"`
	Patient *model.PatientRecord    `json:"patient"`
}

// SaveReading stores the session readings, opens a pending payment priced
// from the point count and moves the patient to awaiting_payment.
func (s *Service) SaveReading(ctx context.Context, patientID uuid.UUID, genderHint model.Gender, req *model.SaveReadingRequest) (*Result, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	p, patient, err := s.resolver.Resolve(ctx, patientID, genderHint)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Target(patient.Status, lifecycle.TriggerSaveReading); err != nil {
		return nil, err
	}

	reading := &model.TreatmentReading{
		PatientID:     patient.ID,
		Partition:     p,
		BloodPressure: req.BloodPressure,
		Weight:        req.Weight,
		Points:        model.TreatmentPoints(req.Points),
		Notes:         req.Notes,
	}
	if reading.Points == nil {
		reading.Points = model.TreatmentPoints{}
	}

	base, err := s.catalog.Price(ctx, reading.PointCount())
	if err != nil {
		return nil, err
	}

	res := &Result{Reading: reading}
	err = s.store.Do(ctx, func(tx repository.Tx) error {
		if err := tx.Treatments().Create(ctx, reading); err != nil {
			return err
		}

		pay := &model.Payment{
			PatientID:  patient.ID,
			Partition:  p,
			ReadingID:  reading.ID,
			PointCount: reading.PointCount(),
			BaseAmount: base,
			Amount:     base,
			Status:     model.PaymentStatusPending,
		}
		if err := tx.Payments().Create(ctx, pay); err != nil {
			return err
		}
		res.Payment = pay

		updated, err := s.machine.Fire(ctx, tx.Patients(p), patient, lifecycle.TriggerSaveReading, model.StatusChange{})
		if err != nil {
			return err
		}
		res.Patient = updated

		if err := event.Emit(ctx, tx.Outbox(), event.ReadingSaved, model.TableReadings, reading.ID, reading); err != nil {
			return err
		}
		if err := event.Emit(ctx, tx.Outbox(), event.PaymentCreated, model.TablePayments, pay.ID, pay); err != nil {
			return err
		}
		return event.Emit(ctx, tx.Outbox(), event.PatientStatusChanged, model.TablePatients, updated.ID, updated)
	})
	if err != nil {
		s.logger.Error(err, "Failed to save treatment reading",
			"patient_id", patient.ID.String(),
			"partition", string(p))
		return nil, apperrors.WrapPersistence("save treatment reading", err)
	}

	s.metrics.ReadingsSaved.Inc()
	return res, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TreatmentReading, error) {
	readings, err := s.store.Treatments().ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.WrapPersistence("list treatment readings", err)
	}
	return readings, nil
}
