package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cupping-console/internal/model"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

func TestBloodPressure(t *testing.T) {
	for _, ok := range []string{"120/80", "90/60", "140/100"} {
		assert.True(t, BloodPressure(ok), ok)
	}
	for _, bad := range []string{"", "120", "120-80", "1200/80", "abc/def", "120/80 "} {
		assert.False(t, BloodPressure(bad), bad)
	}
}

func TestValidateReading(t *testing.T) {
	v := New()
	bp := "12/8x"
	weight := -1.0

	err := v.Validate(&model.SaveReadingRequest{
		BloodPressure: &bp,
		Weight:        &weight,
		Points:        []model.TreatmentPoint{{X: 1, Y: 2, View: "side"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	fields := FieldErrors(err)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(t, []string{"blood_pressure", "weight", "points[0].view"}, names)
}

func TestValidateReadingAcceptsEmptyVitals(t *testing.T) {
	err := New().Validate(&model.SaveReadingRequest{
		Points: []model.TreatmentPoint{{X: 10, Y: 20, View: model.BodyViewBack}},
	})
	assert.NoError(t, err)
}
