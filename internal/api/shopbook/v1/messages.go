package shopbookv1

import (
	"google.golang.org/protobuf/types/known/fieldmaskpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type Appointment struct {
	Id                 string                 `json:"id"`
	CustomerId         string                 `json:"customer_id"`
	StaffId            *string                `json:"staff_id"`
	StartAt            *timestamppb.Timestamp `json:"start_at"`
	EndAt              *timestamppb.Timestamp `json:"end_at"`
	Status             string                 `json:"status"`
	Notes              *string                `json:"notes"`
	CancellationReason *string                `json:"cancellation_reason"`
	ReminderSent       bool                   `json:"reminder_sent"`
	CreatedAt          *timestamppb.Timestamp `json:"created_at"`
	UpdatedAt          *timestamppb.Timestamp `json:"updated_at"`
}

type CreateAppointmentRequest struct {
	StartAt *timestamppb.Timestamp `json:"start_at"`
	EndAt   *timestamppb.Timestamp `json:"end_at"`
	Notes   string                 `json:"notes,omitempty"`
	StaffId string                 `json:"staff_id,omitempty"`
}

type CreateAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type GetAppointmentRequest struct {
	AppointmentId string `json:"appointment_id"`
}

type GetAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type ListMyAppointmentsRequest struct{}

type ListMyAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
}

type ListAllAppointmentsRequest struct{}

type ListAllAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
}

// UpdateAppointmentRequest patches an appointment. When UpdateMask is set,
// exactly the listed paths are applied and a listed nullable field with a
// null value is cleared. Without a mask, every non-empty field is applied.
type UpdateAppointmentRequest struct {
	AppointmentId      string                 `json:"appointment_id"`
	StartAt            *timestamppb.Timestamp `json:"start_at,omitempty"`
	EndAt              *timestamppb.Timestamp `json:"end_at,omitempty"`
	Status             string                 `json:"status,omitempty"`
	Notes              *string                `json:"notes,omitempty"`
	CancellationReason *string                `json:"cancellation_reason,omitempty"`
	StaffId            *string                `json:"staff_id,omitempty"`
	UpdateMask         *fieldmaskpb.FieldMask `json:"update_mask,omitempty"`
}

type UpdateAppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type DeleteAppointmentRequest struct {
	AppointmentId string `json:"appointment_id"`
}

type DeleteAppointmentResponse struct{}

func (x *GetAppointmentRequest) GetAppointmentId() string {
	if x == nil {
		return ""
	}
	return x.AppointmentId
}

func (x *UpdateAppointmentRequest) GetAppointmentId() string {
	if x == nil {
		return ""
	}
	return x.AppointmentId
}

func (x *DeleteAppointmentRequest) GetAppointmentId() string {
	if x == nil {
		return ""
	}
	return x.AppointmentId
}

// Update mask paths.
const (
	PathStartAt            = "start_at"
	PathEndAt              = "end_at"
	PathStatus             = "status"
	PathNotes              = "notes"
	PathCancellationReason = "cancellation_reason"
	PathStaffId            = "staff_id"
)
