// Package lifecycle owns the patient status transition table.
package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

// Trigger names the action that moves a patient forward.
type Trigger string

const (
	TriggerConfirmAppointment Trigger = "confirm_appointment"
	TriggerStartSession       Trigger = "start_session"
	TriggerSaveReading        Trigger = "save_reading"
	TriggerSettlePayment      Trigger = "settle_payment"
	TriggerFinishTreatment    Trigger = "finish_treatment"
	TriggerCancel             Trigger = "cancel"
)

type edge struct {
	from model.PatientStatus
	to   model.PatientStatus
}

var forward = map[Trigger]edge{
	TriggerConfirmAppointment: {model.PatientStatusIntakePending, model.PatientStatusScheduled},
	TriggerStartSession:       {model.PatientStatusScheduled, model.PatientStatusInTreatment},
	TriggerSaveReading:        {model.PatientStatusInTreatment, model.PatientStatusAwaitingPayment},
	TriggerSettlePayment:      {model.PatientStatusAwaitingPayment, model.PatientStatusPaidAssigned},
	TriggerFinishTreatment:    {model.PatientStatusPaidAssigned, model.PatientStatusCompleted},
}

// Allowed reports whether from -> to is in the table. Cancellation is
// reachable from every non-terminal status.
func Allowed(from, to model.PatientStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == model.PatientStatusCancelled {
		return !from.Terminal()
	}
	for _, e := range forward {
		if e.from == from && e.to == to {
			return true
		}
	}
	return false
}

func Validate(from, to model.PatientStatus) error {
	if !Allowed(from, to) {
		return apperrors.InvalidTransition(string(from), string(to))
	}
	return nil
}

// Target returns the status trigger moves a patient in from to.
func Target(from model.PatientStatus, trigger Trigger) (model.PatientStatus, error) {
	if trigger == TriggerCancel {
		return model.PatientStatusCancelled, Validate(from, model.PatientStatusCancelled)
	}
	e, ok := forward[trigger]
	if !ok {
		return "", apperrors.Validation("unknown trigger "+string(trigger), nil)
	}
	if e.from != from {
		return e.to, apperrors.InvalidTransition(string(from), string(e.to))
	}
	return e.to, nil
}

// Machine applies transitions through a patient store.
type Machine struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewMachine(log *logger.Logger, m *metrics.Metrics) *Machine {
	return &Machine{logger: log, metrics: m}
}

// Fire moves rec along trigger in store. The write is conditional on the
// status rec was read with, so a concurrent change surfaces as
// InvalidTransition and nothing is written.
func (m *Machine) Fire(ctx context.Context, store repository.PatientStore, rec *model.PatientRecord, trigger Trigger, change model.StatusChange) (*model.PatientRecord, error) {
	to, err := Target(rec.Status, trigger)
	if err != nil {
		return nil, err
	}
	if trigger == TriggerSettlePayment && (change.DoctorID == nil || *change.DoctorID == uuid.Nil) {
		return nil, apperrors.Validation("doctor is required to assign a paid patient", nil)
	}

	change.From = rec.Status
	change.To = to
	updated, err := store.Transition(ctx, rec.ID, change)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, apperrors.InvalidTransition(string(rec.Status), string(to))
	case err != nil:
		m.logger.Error(err, "Failed to transition patient",
			"patient_id", rec.ID.String(),
			"partition", string(store.Partition()),
			"from", string(rec.Status),
			"to", string(to))
		return nil, apperrors.WrapPersistence("update patient status", err)
	}

	m.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	return updated, nil
}
