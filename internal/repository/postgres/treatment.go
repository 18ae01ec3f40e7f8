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

const readingColumns = `id, patient_id, partition, blood_pressure, weight, points, notes, created_at, updated_at`

type treatmentRepository struct {
	BaseRepository
}

func NewTreatmentRepository(db sqlx.ExtContext) repository.TreatmentRepository {
	return &treatmentRepository{NewBaseRepository(db)}
}

func (r *treatmentRepository) Create(ctx context.Context, reading *model.TreatmentReading) error {
	if reading.ID == uuid.Nil {
		reading.ID = uuid.New()
	}
	reading.CreatedAt = time.Now().UTC()
	reading.UpdatedAt = reading.CreatedAt

	query := `INSERT INTO treatment_readings (` + readingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.PatientID,
		reading.Partition,
		reading.BloodPressure,
		reading.Weight,
		reading.Points,
		reading.Notes,
		reading.CreatedAt,
		reading.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create treatment reading: %w", err)
	}
	return nil
}

func (r *treatmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.TreatmentReading, error) {
	var reading model.TreatmentReading
	query := `SELECT ` + readingColumns + ` FROM treatment_readings WHERE id = $1`
	if err := r.get(ctx, "treatment reading", &reading, query, id); err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *treatmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TreatmentReading, error) {
	var readings []*model.TreatmentReading
	query := `SELECT ` + readingColumns + ` FROM treatment_readings WHERE patient_id = $1 ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, r.db, &readings, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list treatment readings: %w", err)
	}
	return readings, nil
}
