// Package events publishes appointment lifecycle events for downstream
// consumers such as reminder and notification workers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"shopbook/backend/internal/domain"
)

type Type string

const (
	TypeAppointmentCreated Type = "appointment.created"
	TypeAppointmentUpdated Type = "appointment.updated"
	TypeAppointmentDeleted Type = "appointment.deleted"
)

// Event is the envelope written to the broker. Topics are named by Type
// under a configurable prefix.
type Event struct {
	ID            string
	Type          Type
	AppointmentID string
	OccurredAt    time.Time
	Payload       []byte
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type appointmentPayload struct {
	ID                 string    `json:"id"`
	CustomerID         string    `json:"customer_id"`
	StaffID            *string   `json:"staff_id"`
	StartAt            time.Time `json:"start_at"`
	EndAt              time.Time `json:"end_at"`
	Status             string    `json:"status"`
	CancellationReason *string   `json:"cancellation_reason"`
	ReminderSent       bool      `json:"reminder_sent"`
}

// NewAppointmentEvent snapshots appt into an event of type t.
func NewAppointmentEvent(t Type, appt domain.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		ID:                 appt.ID.String(),
		CustomerID:         appt.CustomerID,
		StaffID:            appt.StaffID,
		StartAt:            appt.StartAt.UTC(),
		EndAt:              appt.EndAt.UTC(),
		Status:             string(appt.Status),
		CancellationReason: appt.CancellationReason,
		ReminderSent:       appt.ReminderSent,
	})
	if err != nil {
		return Event{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            id.String(),
		Type:          t,
		AppointmentID: appt.ID.String(),
		OccurredAt:    at.UTC(),
		Payload:       payload,
	}, nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
