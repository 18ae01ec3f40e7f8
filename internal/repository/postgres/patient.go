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

const patientColumns = `id, partition, name, phone, gender, status, appointment_at,
	chief_complaint, doctor_id, cancel_reason, created_at, updated_at`

// partitionTables maps each partition to its physical table.
var partitionTables = map[model.Partition]string{
	model.PartitionA: "patients_male",
	model.PartitionB: "patients_female",
}

type patientStore struct {
	BaseRepository
	partition model.Partition
	table     string
}

func NewPatientStore(db sqlx.ExtContext, partition model.Partition) (repository.PatientStore, error) {
	table, ok := partitionTables[partition]
	if !ok {
		return nil, fmt.Errorf("unknown partition %q", partition)
	}
	return &patientStore{BaseRepository: NewBaseRepository(db), partition: partition, table: table}, nil
}

func (r *patientStore) Partition() model.Partition {
	return r.partition
}

func (r *patientStore) Create(ctx context.Context, patient *model.PatientRecord) error {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.Partition = r.partition
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt

	query := `INSERT INTO ` + r.table + ` (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Partition,
		patient.Name,
		patient.Phone,
		patient.Gender,
		patient.Status,
		patient.AppointmentAt,
		patient.ChiefComplaint,
		patient.DoctorID,
		patient.CancelReason,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientStore) Get(ctx context.Context, id uuid.UUID) (*model.PatientRecord, error) {
	var patient model.PatientRecord
	query := `SELECT ` + patientColumns + ` FROM ` + r.table + ` WHERE id = $1`
	if err := r.get(ctx, "patient", &patient, query, id); err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientStore) Transition(ctx context.Context, id uuid.UUID, change model.StatusChange) (*model.PatientRecord, error) {
	query := `
		UPDATE ` + r.table + `
		SET status = $1,
			appointment_at = COALESCE($2, appointment_at),
			doctor_id = COALESCE($3, doctor_id),
			cancel_reason = COALESCE($4, cancel_reason),
			updated_at = $5
		WHERE id = $6 AND status = $7
		RETURNING ` + patientColumns

	var patient model.PatientRecord
	err := r.conditional(ctx, "patient", r.table, id, &patient, query,
		change.To,
		change.AppointmentAt,
		change.DoctorID,
		change.CancelReason,
		time.Now().UTC(),
		id,
		change.From,
	)
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientStore) List(ctx context.Context, filters *model.PatientFilters) ([]*model.PatientRecord, error) {
	var f filter
	limit := ""
	if filters != nil {
		if filters.Status != "" {
			f.add("status = ?", filters.Status)
		}
		if !filters.From.IsZero() {
			f.add("appointment_at >= ?", filters.From)
		}
		if !filters.To.IsZero() {
			f.add("appointment_at < ?", filters.To)
		}
	}
	query := `SELECT ` + patientColumns + ` FROM ` + r.table + f.where() +
		` ORDER BY appointment_at ASC NULLS LAST, created_at ASC`
	if filters != nil {
		limit = f.limit(filters.Limit)
	}

	var patients []*model.PatientRecord
	if err := sqlx.SelectContext(ctx, r.db, &patients, query+limit, f.args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
