package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	shopbookv1 "shopbook/backend/internal/api/shopbook/v1"
	"shopbook/backend/internal/auth"
	"shopbook/backend/internal/domain"
	"shopbook/backend/internal/service/appointments"
)

const errorDomain = "shopbook"

type AppointmentsServer struct {
	shopbookv1.UnimplementedAppointmentsServiceServer

	svc appointmentsService
	log *slog.Logger
}

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Get(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error)
	ListMine(ctx context.Context, caller domain.Caller) ([]domain.Appointment, error)
	ListAll(ctx context.Context, caller domain.Caller) ([]domain.Appointment, error)
	Update(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID, patch appointments.Patch) (domain.Appointment, error)
	Delete(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) error
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
	}
}

func (s *AppointmentsServer) rpcLogger(ctx context.Context, rpc string) *slog.Logger {
	log := s.log.With(slog.String("rpc", rpc))
	if id := RequestIDFromContext(ctx); id != "" {
		log = log.With(slog.String("request_id", id))
	}
	return log
}

func (s *AppointmentsServer) CreateAppointment(ctx context.Context, req *shopbookv1.CreateAppointmentRequest) (*shopbookv1.CreateAppointmentResponse, error) {
	log := s.rpcLogger(ctx, "CreateAppointment")

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, malformed("request is required")
	}

	appt, err := s.svc.Create(ctx, appointments.CreateInput{
		Caller:         caller,
		StartAt:        toTime(req.StartAt),
		EndAt:          toTime(req.EndAt),
		Notes:          req.Notes,
		StaffID:        strings.TrimSpace(req.StaffId),
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, s.fail(log, "appointment create", err, slog.String("user_id", caller.ID))
	}

	log.Info(
		"appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("user_id", appt.CustomerID),
		slog.Time("start_at", appt.StartAt),
		slog.Time("end_at", appt.EndAt),
	)

	return &shopbookv1.CreateAppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *AppointmentsServer) GetAppointment(ctx context.Context, req *shopbookv1.GetAppointmentRequest) (*shopbookv1.GetAppointmentResponse, error) {
	log := s.rpcLogger(ctx, "GetAppointment")

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	id, err := parseAppointmentID(req.GetAppointmentId())
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("user_id", caller.ID))
		return nil, err
	}

	appt, err := s.svc.Get(ctx, caller, id)
	if err != nil {
		return nil, s.fail(log, "appointment get", err, slog.String("appointment_id", id.String()), slog.String("user_id", caller.ID))
	}
	return &shopbookv1.GetAppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *AppointmentsServer) ListMyAppointments(ctx context.Context, _ *shopbookv1.ListMyAppointmentsRequest) (*shopbookv1.ListMyAppointmentsResponse, error) {
	log := s.rpcLogger(ctx, "ListMyAppointments")

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	appts, err := s.svc.ListMine(ctx, caller)
	if err != nil {
		return nil, s.fail(log, "appointments list", err, slog.String("user_id", caller.ID))
	}

	log.Debug("appointments listed", slog.String("user_id", caller.ID), slog.Int("count", len(appts)))
	return &shopbookv1.ListMyAppointmentsResponse{Appointments: toProtoAppointments(appts)}, nil
}

func (s *AppointmentsServer) ListAllAppointments(ctx context.Context, _ *shopbookv1.ListAllAppointmentsRequest) (*shopbookv1.ListAllAppointmentsResponse, error) {
	log := s.rpcLogger(ctx, "ListAllAppointments")

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	appts, err := s.svc.ListAll(ctx, caller)
	if err != nil {
		return nil, s.fail(log, "appointments list", err, slog.String("user_id", caller.ID))
	}

	log.Debug("appointments listed", slog.String("user_id", caller.ID), slog.Int("count", len(appts)))
	return &shopbookv1.ListAllAppointmentsResponse{Appointments: toProtoAppointments(appts)}, nil
}

func (s *AppointmentsServer) UpdateAppointment(ctx context.Context, req *shopbookv1.UpdateAppointmentRequest) (*shopbookv1.UpdateAppointmentResponse, error) {
	log := s.rpcLogger(ctx, "UpdateAppointment")

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, malformed("request is required")
	}
	id, err := parseAppointmentID(req.AppointmentId)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("user_id", caller.ID))
		return nil, err
	}
	patch, err := toPatch(req)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_update_mask"), slog.String("user_id", caller.ID))
		return nil, err
	}

	appt, err := s.svc.Update(ctx, caller, id, patch)
	if err != nil {
		return nil, s.fail(log, "appointment update", err, slog.String("appointment_id", id.String()), slog.String("user_id", caller.ID))
	}

	log.Info(
		"appointment updated",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("user_id", caller.ID),
		slog.String("status", string(appt.Status)),
	)
	return &shopbookv1.UpdateAppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *AppointmentsServer) DeleteAppointment(ctx context.Context, req *shopbookv1.DeleteAppointmentRequest) (*shopbookv1.DeleteAppointmentResponse, error) {
	log := s.rpcLogger(ctx, "DeleteAppointment")

	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	id, err := parseAppointmentID(req.GetAppointmentId())
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("user_id", caller.ID))
		return nil, err
	}

	if err := s.svc.Delete(ctx, caller, id); err != nil {
		return nil, s.fail(log, "appointment delete", err, slog.String("appointment_id", id.String()), slog.String("user_id", caller.ID))
	}

	log.Info("appointment deleted", slog.String("appointment_id", id.String()), slog.String("user_id", caller.ID))
	return &shopbookv1.DeleteAppointmentResponse{}, nil
}

// fail logs err at a level matching its kind and converts it to a status.
func (s *AppointmentsServer) fail(log *slog.Logger, op string, err error, attrs ...any) error {
	st := statusFromError(err)
	args := append([]any{slog.Any("err", err)}, attrs...)
	switch st.Code() {
	case codes.Internal:
		log.Error(op+" failed", args...)
	case codes.InvalidArgument:
		log.Warn("invalid request", args...)
	default:
		log.Info(op+" rejected", append(args, slog.String("code", st.Code().String()))...)
	}
	return st.Err()
}

func statusFromError(err error) *status.Status {
	var vErr *appointments.ValidationError
	switch {
	case errors.As(err, &vErr):
		return withReason(codes.InvalidArgument, vErr.Error(), reasonFor(vErr.Kind()))
	case errors.Is(err, appointments.ErrCapacityExceeded):
		return withReason(codes.FailedPrecondition, err.Error(), "CAPACITY_EXCEEDED")
	case errors.Is(err, appointments.ErrIdempotencyConflict):
		return withReason(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.", "IDEMPOTENCY_CONFLICT")
	case errors.Is(err, appointments.ErrNotFound):
		return withReason(codes.NotFound, "Appointment not found", "NOT_FOUND")
	case errors.Is(err, appointments.ErrForbidden):
		return withReason(codes.PermissionDenied, "Not authorized to access this appointment", "FORBIDDEN")
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "request canceled")
	default:
		return withReason(codes.Internal, "internal error", "STORE_FAILURE")
	}
}

func reasonFor(kind error) string {
	switch {
	case errors.Is(kind, appointments.ErrInvalidOrdering):
		return "INVALID_ORDERING"
	case errors.Is(kind, appointments.ErrDurationViolation):
		return "DURATION_VIOLATION"
	case errors.Is(kind, appointments.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	default:
		return "MALFORMED_INPUT"
	}
}

func withReason(code codes.Code, msg, reason string) *status.Status {
	st := status.New(code, msg)
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: errorDomain})
	if err != nil {
		return st
	}
	return detailed
}

func malformed(msg string) error {
	return withReason(codes.InvalidArgument, msg, "MALFORMED_INPUT").Err()
}

func parseAppointmentID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, malformed("appointment_id must be a UUID")
	}
	return id, nil
}

// toTime maps a missing or out-of-range timestamp to the zero time, which
// the scheduler rejects as malformed input.
func toTime(ts *timestamppb.Timestamp) time.Time {
	if ts == nil || !ts.IsValid() {
		return time.Time{}
	}
	return ts.AsTime()
}

func toPatch(req *shopbookv1.UpdateAppointmentRequest) (appointments.Patch, error) {
	var patch appointments.Patch

	if req.UpdateMask == nil || len(req.UpdateMask.GetPaths()) == 0 {
		if req.StartAt != nil {
			t := toTime(req.StartAt)
			patch.StartAt = &t
		}
		if req.EndAt != nil {
			t := toTime(req.EndAt)
			patch.EndAt = &t
		}
		if req.Status != "" {
			st := domain.Status(req.Status)
			patch.Status = &st
		}
		if req.Notes != nil {
			patch.Notes = appointments.SetTo(*req.Notes)
		}
		if req.CancellationReason != nil {
			patch.CancellationReason = appointments.SetTo(*req.CancellationReason)
		}
		if req.StaffId != nil {
			patch.StaffID = appointments.SetTo(strings.TrimSpace(*req.StaffId))
		}
		return patch, nil
	}

	for _, path := range req.UpdateMask.GetPaths() {
		switch path {
		case shopbookv1.PathStartAt:
			t := toTime(req.StartAt)
			patch.StartAt = &t
		case shopbookv1.PathEndAt:
			t := toTime(req.EndAt)
			patch.EndAt = &t
		case shopbookv1.PathStatus:
			st := domain.Status(req.Status)
			patch.Status = &st
		case shopbookv1.PathNotes:
			patch.Notes = appointments.NullableField[string]{Set: true, Value: req.Notes}
		case shopbookv1.PathCancellationReason:
			patch.CancellationReason = appointments.NullableField[string]{Set: true, Value: req.CancellationReason}
		case shopbookv1.PathStaffId:
			patch.StaffID = appointments.NullableField[string]{Set: true, Value: req.StaffId}
		default:
			return appointments.Patch{}, malformed("unknown update_mask path " + path)
		}
	}
	return patch, nil
}

func toProtoAppointments(appts []domain.Appointment) []*shopbookv1.Appointment {
	out := make([]*shopbookv1.Appointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, toProtoAppointment(a))
	}
	return out
}

func toProtoAppointment(a domain.Appointment) *shopbookv1.Appointment {
	return &shopbookv1.Appointment{
		Id:                 a.ID.String(),
		CustomerId:         a.CustomerID,
		StaffId:            a.StaffID,
		StartAt:            timestamppb.New(a.StartAt),
		EndAt:              timestamppb.New(a.EndAt),
		Status:             string(a.Status),
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		ReminderSent:       a.ReminderSent,
		CreatedAt:          timestamppb.New(a.CreatedAt),
		UpdatedAt:          timestamppb.New(a.UpdatedAt),
	}
}
