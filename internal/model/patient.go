package model

import (
	"time"

	"github.com/google/uuid"
)

// Partition identifies one of the two physical patient stores.
type Partition string

const (
	PartitionA Partition = "A"
	PartitionB Partition = "B"
)

// ProbeOrder is the fixed order used when a record is looked up without a gender hint.
var ProbeOrder = []Partition{PartitionA, PartitionB}

func (p Partition) Valid() bool {
	return p == PartitionA || p == PartitionB
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Partition returns the store a patient of this gender is admitted into.
func (g Gender) Partition() (Partition, bool) {
	switch g {
	case GenderMale:
		return PartitionA, true
	case GenderFemale:
		return PartitionB, true
	default:
		return "", false
	}
}

type PatientStatus string

const (
	PatientStatusIntakePending   PatientStatus = "intake_pending"
	PatientStatusScheduled       PatientStatus = "scheduled"
	PatientStatusInTreatment     PatientStatus = "in_treatment"
	PatientStatusAwaitingPayment PatientStatus = "awaiting_payment"
	PatientStatusPaidAssigned    PatientStatus = "paid_assigned"
	PatientStatusCompleted       PatientStatus = "completed"
	PatientStatusCancelled       PatientStatus = "cancelled"
)

var patientStatuses = map[PatientStatus]bool{
	PatientStatusIntakePending:   true,
	PatientStatusScheduled:       true,
	PatientStatusInTreatment:     true,
	PatientStatusAwaitingPayment: true,
	PatientStatusPaidAssigned:    true,
	PatientStatusCompleted:       true,
	PatientStatusCancelled:       true,
}

func (s PatientStatus) Valid() bool {
	return patientStatuses[s]
}

// Terminal statuses accept no further transitions.
func (s PatientStatus) Terminal() bool {
	return s == PatientStatusCompleted || s == PatientStatusCancelled
}

type PatientRecord struct {
	Base
	Partition      Partition     `db:"partition" json:"partition"`
	Name           string        `db:"name" json:"name"`
	Phone          string        `db:"phone" json:"phone"`
	Gender         Gender        `db:"gender" json:"gender"`
	Status         PatientStatus `db:"status" json:"status"`
	AppointmentAt  *time.Time    `db:"appointment_at" json:"appointment_at,omitempty"`
	ChiefComplaint string        `db:"chief_complaint" json:"chief_complaint"`
	DoctorID       *uuid.UUID    `db:"doctor_id" json:"doctor_id,omitempty"`
	CancelReason   *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// StatusChange is a conditional status write: it only applies while the
// record is still in From.
type StatusChange struct {
	From          PatientStatus
	To            PatientStatus
	AppointmentAt *time.Time
	DoctorID      *uuid.UUID
	CancelReason  *string
}

type CreatePatientRequest struct {
	Name           string     `json:"name" binding:"required,max=200"`
	Phone          string     `json:"phone" binding:"required,max=32"`
	Gender         Gender     `json:"gender" binding:"required,oneof=male female"`
	ChiefComplaint string     `json:"chief_complaint" binding:"max=2000"`
	AppointmentAt  *time.Time `json:"appointment_at"`
}

type ScheduleRequest struct {
	AppointmentAt time.Time `json:"appointment_at" binding:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type PatientFilters struct {
	Status    PatientStatus `form:"status"`
	Partition Partition     `form:"partition"`
	DateRange
	Limit int `form:"limit"`
}
