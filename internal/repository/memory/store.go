// Package memory is an in-process implementation of the repository layer.
// It backs the memory database driver and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
)

type dataset struct {
	patients map[model.Partition]map[uuid.UUID]model.PatientRecord
	readings map[uuid.UUID]model.TreatmentReading
	tiers    map[uuid.UUID]model.CupPriceTier
	coupons  map[uuid.UUID]model.Coupon
	payments map[uuid.UUID]model.Payment
	outbox   map[uuid.UUID]model.OutboxEvent
}

func newDataset() *dataset {
	d := &dataset{
		patients: make(map[model.Partition]map[uuid.UUID]model.PatientRecord, len(model.ProbeOrder)),
		readings: make(map[uuid.UUID]model.TreatmentReading),
		tiers:    make(map[uuid.UUID]model.CupPriceTier),
		coupons:  make(map[uuid.UUID]model.Coupon),
		payments: make(map[uuid.UUID]model.Payment),
		outbox:   make(map[uuid.UUID]model.OutboxEvent),
	}
	for _, p := range model.ProbeOrder {
		d.patients[p] = make(map[uuid.UUID]model.PatientRecord)
	}
	return d
}

// clone copies every table. Rows are values so a shallow copy per map is
// enough; pointer fields are always replaced, never mutated in place.
func (d *dataset) clone() *dataset {
	c := newDataset()
	for p, rows := range d.patients {
		for id, row := range rows {
			c.patients[p][id] = row
		}
	}
	for id, row := range d.readings {
		c.readings[id] = row
	}
	for id, row := range d.tiers {
		c.tiers[id] = row
	}
	for id, row := range d.coupons {
		c.coupons[id] = row
	}
	for id, row := range d.payments {
		c.payments[id] = row
	}
	for id, row := range d.outbox {
		c.outbox[id] = row
	}
	return c
}

// Store is safe for concurrent use. Units of work are serialized.
type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time

	faultMu sync.Mutex
	faults  map[string]error
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		data:   newDataset(),
		now:    func() time.Time { return time.Now().UTC() },
		faults: make(map[string]error),
	}
}

// SetClock replaces the time source used for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailOn makes the next call of op return err. Op names are
// "<table>.<method>", e.g. "payments.complete" or "patients.transition".
func (s *Store) FailOn(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

// view runs fn against the live dataset. Inside a unit of work the store
// lock is already held.
func (s *Store) view(inTx bool, op string, fn func(d *dataset) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := s.fault(op); err != nil {
		return err
	}
	return fn(s.data)
}

// Do runs fn holding the store lock. Repositories obtained from tx must be
// the only ones used inside fn; the store's own accessors would deadlock.
func (s *Store) Do(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&repos{store: s, inTx: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Patients(p model.Partition) repository.PatientStore {
	return (&repos{store: s}).Patients(p)
}

func (s *Store) Treatments() repository.TreatmentRepository {
	return (&repos{store: s}).Treatments()
}

func (s *Store) Tiers() repository.TierRepository {
	return (&repos{store: s}).Tiers()
}

func (s *Store) Coupons() repository.CouponRepository {
	return (&repos{store: s}).Coupons()
}

func (s *Store) Payments() repository.PaymentRepository {
	return (&repos{store: s}).Payments()
}

func (s *Store) Outbox() repository.OutboxRepository {
	return (&repos{store: s}).Outbox()
}

type repos struct {
	store *Store
	inTx  bool
}

func (r *repos) Patients(p model.Partition) repository.PatientStore {
	return &patientStore{repos: r, partition: p}
}

func (r *repos) Treatments() repository.TreatmentRepository {
	return &treatmentRepository{repos: r}
}

func (r *repos) Tiers() repository.TierRepository {
	return &tierRepository{repos: r}
}

func (r *repos) Coupons() repository.CouponRepository {
	return &couponRepository{repos: r}
}

func (r *repos) Payments() repository.PaymentRepository {
	return &paymentRepository{repos: r}
}

func (r *repos) Outbox() repository.OutboxRepository {
	return &outboxRepository{repos: r}
}

func (r *repos) view(op string, fn func(d *dataset) error) error {
	return r.store.view(r.inTx, op, fn)
}

func (r *repos) now() time.Time {
	return r.store.now()
}
