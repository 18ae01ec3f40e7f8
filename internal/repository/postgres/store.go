package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
)

// Store binds every repository to the pool, or to a transaction inside Do.
type Store struct {
	db *sqlx.DB
	repos
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, repos: newRepos(db)}
}

func (s *Store) Do(ctx context.Context, fn func(tx repository.Tx) error) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := newRepos(tx)
		return fn(&r)
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type repos struct {
	patients   map[model.Partition]repository.PatientStore
	treatments repository.TreatmentRepository
	tiers      repository.TierRepository
	coupons    repository.CouponRepository
	payments   repository.PaymentRepository
	outbox     repository.OutboxRepository
}

func newRepos(db sqlx.ExtContext) repos {
	patients := make(map[model.Partition]repository.PatientStore, len(partitionTables))
	for p := range partitionTables {
		// partitionTables is the source of the keys, so this cannot fail.
		ps, _ := NewPatientStore(db, p)
		patients[p] = ps
	}
	return repos{
		patients:   patients,
		treatments: NewTreatmentRepository(db),
		tiers:      NewTierRepository(db),
		coupons:    NewCouponRepository(db),
		payments:   NewPaymentRepository(db),
		outbox:     NewOutboxRepository(db),
	}
}

func (r *repos) Patients(p model.Partition) repository.PatientStore {
	return r.patients[p]
}

func (r *repos) Treatments() repository.TreatmentRepository { return r.treatments }
func (r *repos) Tiers() repository.TierRepository           { return r.tiers }
func (r *repos) Coupons() repository.CouponRepository       { return r.coupons }
func (r *repos) Payments() repository.PaymentRepository     { return r.payments }
func (r *repos) Outbox() repository.OutboxRepository        { return r.outbox }
