package store

import (
	"context"

	"github.com/google/uuid"

	"shopbook/backend/internal/domain"
)

// OverlapQuery selects appointments whose window overlaps Window. An empty
// Status matches every status; a nil ExcludeID excludes nothing.
type OverlapQuery struct {
	Window    domain.Window
	Status    domain.Status
	ExcludeID uuid.UUID
}

type AppointmentRepository interface {
	Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Appointment, error)
	ListAll(ctx context.Context) ([]domain.Appointment, error)

	// InScheduleTransaction runs fn with exclusive access to the schedule.
	// Writes made through tx are committed only if fn returns nil.
	InScheduleTransaction(ctx context.Context, fn func(ctx context.Context, tx ScheduleTx) error) error
}

type ScheduleTx interface {
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	ListOverlapping(ctx context.Context, q OverlapQuery) ([]domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, appointmentID uuid.UUID) error
}
