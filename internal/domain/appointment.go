package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	default:
		return false
	}
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                 uuid.UUID `bun:"id,pk,type:uuid"`
	CustomerID         string    `bun:"customer_id,notnull"`
	StaffID            *string   `bun:"staff_id"`
	StartAt            time.Time `bun:"start_at,notnull"`
	EndAt              time.Time `bun:"end_at,notnull"`
	Status             Status    `bun:"status,notnull"`
	Notes              *string   `bun:"notes"`
	CancellationReason *string   `bun:"cancellation_reason"`
	ReminderSent       bool      `bun:"reminder_sent,notnull"`
	CreatedAt          time.Time `bun:"created_at,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,notnull"`
}

func (a Appointment) Window() Window {
	return Window{Start: a.StartAt, End: a.EndAt}
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether the two half-open intervals share an instant.
// Touching windows such as [09:00,09:30) and [09:30,10:00) do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// TimePrecision is the resolution of a Postgres timestamptz.
const TimePrecision = time.Microsecond

// NormalizeTime converts t to UTC at the precision the store keeps, so a
// value compares equal before and after a round trip.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(TimePrecision)
}

func (w Window) Normalize() Window {
	return Window{Start: NormalizeTime(w.Start), End: NormalizeTime(w.End)}
}
