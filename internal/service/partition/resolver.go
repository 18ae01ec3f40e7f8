// Package partition hides the two gender-partitioned patient stores behind
// one lookup.
package partition

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

type Resolver struct {
	repos repository.Repositories
}

func NewResolver(repos repository.Repositories) *Resolver {
	return &Resolver{repos: repos}
}

// Within returns a resolver bound to the repositories of a unit of work.
func (r *Resolver) Within(tx repository.Tx) *Resolver {
	return &Resolver{repos: tx}
}

// Resolve finds a patient. With a gender hint only that partition is
// consulted; without one the partitions are probed in model.ProbeOrder.
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID, genderHint model.Gender) (model.Partition, *model.PatientRecord, error) {
	if genderHint != "" {
		p, ok := genderHint.Partition()
		if !ok {
			return "", nil, apperrors.Validation("unknown gender "+string(genderHint), nil)
		}
		rec, err := r.Lookup(ctx, p, id)
		if err != nil {
			return "", nil, err
		}
		return p, rec, nil
	}

	for _, p := range model.ProbeOrder {
		rec, err := r.Lookup(ctx, p, id)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return p, rec, nil
	}
	return "", nil, apperrors.NotFound("patient", nil)
}

// Lookup reads a patient from a known partition.
func (r *Resolver) Lookup(ctx context.Context, p model.Partition, id uuid.UUID) (*model.PatientRecord, error) {
	if !p.Valid() {
		return nil, apperrors.Validation("unknown partition "+string(p), nil)
	}
	rec, err := r.repos.Patients(p).Get(ctx, id)
	if err != nil {
		return nil, apperrors.WrapPersistence("load patient", err)
	}
	return rec, nil
}

// Store returns the patient store for p.
func (r *Resolver) Store(p model.Partition) repository.PatientStore {
	return r.repos.Patients(p)
}
