package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type BodyView string

const (
	BodyViewFront BodyView = "front"
	BodyViewBack  BodyView = "back"
)

// TreatmentPoint is one marked cup location on the body chart.
type TreatmentPoint struct {
	X    float64  `json:"x" binding:"gte=0"`
	Y    float64  `json:"y" binding:"gte=0"`
	View BodyView `json:"view" binding:"required,oneof=front back"`
}

// TreatmentPoints is stored as a JSON document column.
type TreatmentPoints []TreatmentPoint

func (p TreatmentPoints) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *TreatmentPoints) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for treatment points: %T", src)
	}
	return json.Unmarshal(data, p)
}

type TreatmentReading struct {
	Base
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	Partition     Partition       `db:"partition" json:"partition"`
	BloodPressure *string         `db:"blood_pressure" json:"blood_pressure,omitempty"`
	Weight        *float64        `db:"weight" json:"weight,omitempty"`
	Points        TreatmentPoints `db:"points" json:"points"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
}

func (r *TreatmentReading) PointCount() int {
	return len(r.Points)
}

type SaveReadingRequest struct {
	BloodPressure *string          `json:"blood_pressure" binding:"omitempty,bloodpressure"`
	Weight        *float64         `json:"weight" binding:"omitempty,gt=0"`
	Points        []TreatmentPoint `json:"points" binding:"dive"`
	Notes         string           `json:"notes" binding:"max=2000"`
}
