// Package memory is an in-process appointment store with the same
// transactional semantics as the Postgres store. It backs local runs
// (database.driver=memory) and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopbook/backend/internal/domain"
	"shopbook/backend/internal/store"
)

type AppointmentRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]domain.Appointment
	clock func() time.Time
}

func NewAppointmentRepo() *AppointmentRepo {
	return &AppointmentRepo{
		rows:  make(map[uuid.UUID]domain.Appointment),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (r *AppointmentRepo) Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Appointment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.rows[appointmentID]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return cloneAppointment(appt), nil
}

func (r *AppointmentRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Appointment, error) {
	return r.list(ctx, func(a domain.Appointment) bool { return a.CustomerID == customerID })
}

func (r *AppointmentRepo) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	return r.list(ctx, func(domain.Appointment) bool { return true })
}

func (r *AppointmentRepo) list(ctx context.Context, keep func(domain.Appointment) bool) ([]domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Appointment, 0, len(r.rows))
	for _, a := range r.rows {
		if keep(a) {
			out = append(out, cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartAt.After(out[j].StartAt)
	})
	return out, nil
}

// InScheduleTransaction holds the store lock for the whole callback. Writes
// go to a staged copy that replaces the live rows only when fn succeeds.
func (r *AppointmentRepo) InScheduleTransaction(ctx context.Context, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &scheduleTx{rows: maps.Clone(r.rows), clock: r.clock}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.rows = tx.rows
	return nil
}

type scheduleTx struct {
	rows  map[uuid.UUID]domain.Appointment
	clock func() time.Time
}

func (t *scheduleTx) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	appt, ok := t.rows[appointmentID]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return cloneAppointment(appt), nil
}

func (t *scheduleTx) ListOverlapping(ctx context.Context, q store.OverlapQuery) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for id, a := range t.rows {
		if q.ExcludeID != uuid.Nil && id == q.ExcludeID {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if !a.Window().Overlaps(q.Window) {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out, nil
}

func (t *scheduleTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if _, exists := t.rows[appt.ID]; exists {
		return domain.Appointment{}, store.ErrIdempotencyConflict
	}

	now := t.clock()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	if appt.UpdatedAt.IsZero() {
		appt.UpdatedAt = now
	}
	t.rows[appt.ID] = cloneAppointment(appt)
	return appt, nil
}

func (t *scheduleTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	existing, ok := t.rows[appt.ID]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	appt.CustomerID = existing.CustomerID
	appt.CreatedAt = existing.CreatedAt
	appt.UpdatedAt = t.clock()
	t.rows[appt.ID] = cloneAppointment(appt)
	return appt, nil
}

func (t *scheduleTx) DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	if _, ok := t.rows[appointmentID]; !ok {
		return store.ErrNotFound
	}
	delete(t.rows, appointmentID)
	return nil
}

func cloneAppointment(a domain.Appointment) domain.Appointment {
	a.StaffID = cloneString(a.StaffID)
	a.Notes = cloneString(a.Notes)
	a.CancellationReason = cloneString(a.CancellationReason)
	return a
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
