package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopbook/backend/internal/domain"
	"shopbook/backend/internal/events"
	"shopbook/backend/internal/store"
)

// Config holds the shop's scheduling rules.
type Config struct {
	SlotDuration time.Duration
	Capacity     int
}

func DefaultConfig() Config {
	return Config{
		SlotDuration: 30 * time.Minute,
		Capacity:     2,
	}
}

type Options struct {
	Policy      Policy
	Transitions StatusTransitions
	Publisher   events.Publisher
	Logger      *slog.Logger
	Now         func() time.Time
}

type Service struct {
	repo        store.AppointmentRepository
	cfg         Config
	policy      Policy
	transitions StatusTransitions
	publisher   events.Publisher
	log         *slog.Logger
	now         func() time.Time
}

func NewService(repo store.AppointmentRepository, cfg Config, opts Options) *Service {
	def := DefaultConfig()
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = def.SlotDuration
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if opts.Policy == nil {
		opts.Policy = OwnerOrAdmin{}
	}
	if opts.Transitions == nil {
		opts.Transitions = AnyTransition{}
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:        repo,
		cfg:         cfg,
		policy:      opts.Policy,
		transitions: opts.Transitions,
		publisher:   opts.Publisher,
		log:         opts.Logger.With(slog.String("component", "service.appointments")),
		now:         opts.Now,
	}
}

func (s *Service) Config() Config {
	return s.cfg
}

// ValidateDuration requires start < end and an elapsed time of exactly one
// slot. There is no tolerance and no rounding.
func (s *Service) ValidateDuration(start, end time.Time) error {
	if !start.Before(end) {
		return validationError(ErrInvalidOrdering, "End time must be after start time")
	}
	if end.Sub(start) != s.cfg.SlotDuration {
		return validationError(ErrDurationViolation, fmt.Sprintf("Appointment duration must be exactly %s", formatSlot(s.cfg.SlotDuration)))
	}
	return nil
}

func (s *Service) checkCapacity(ctx context.Context, tx store.ScheduleTx, window domain.Window, excludeID uuid.UUID) error {
	overlapping, err := tx.ListOverlapping(ctx, store.OverlapQuery{
		Window:    window,
		Status:    domain.StatusScheduled,
		ExcludeID: excludeID,
	})
	if err != nil {
		return err
	}
	if len(overlapping) >= s.cfg.Capacity {
		return &CapacityError{Capacity: s.cfg.Capacity, Overlapping: len(overlapping)}
	}
	return nil
}

func (s *Service) authorizeMutation(caller domain.Caller, appt domain.Appointment) error {
	if !s.policy.CanMutate(caller, appt) {
		return ErrForbidden
	}
	return nil
}

type CreateInput struct {
	Caller         domain.Caller
	StartAt        time.Time
	EndAt          time.Time
	Notes          string
	StaffID        string
	IdempotencyKey string
}

// Create books a new scheduled appointment owned by the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if in.Caller.ID == "" {
		return domain.Appointment{}, validationError(ErrMalformedInput, "caller identity is required")
	}
	if in.StartAt.IsZero() || in.EndAt.IsZero() {
		return domain.Appointment{}, validationError(ErrMalformedInput, "Start and end times are required")
	}

	window := domain.Window{Start: in.StartAt, End: in.EndAt}.Normalize()
	if err := s.ValidateDuration(window.Start, window.End); err != nil {
		return domain.Appointment{}, err
	}

	appt := domain.Appointment{
		CustomerID:   in.Caller.ID,
		StaffID:      optionalString(in.StaffID),
		StartAt:      window.Start,
		EndAt:        window.End,
		Status:       domain.StatusScheduled,
		Notes:        optionalString(in.Notes),
		ReminderSent: false,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError(ErrMalformedInput, "idempotency_key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("shopbook:create_appointment:"+in.Caller.ID+":"+key))
	}

	var out domain.Appointment
	replayed := false
	err := s.repo.InScheduleTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		if appt.ID != uuid.Nil {
			existing, err := tx.GetAppointment(ctx, appt.ID)
			switch {
			case err == nil:
				if !sameBooking(existing, appt) {
					return store.ErrIdempotencyConflict
				}
				out = existing
				replayed = true
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		if err := s.checkCapacity(ctx, tx, window, uuid.Nil); err != nil {
			return err
		}
		created, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, classify("create appointment", err)
	}

	if !replayed {
		s.publish(ctx, events.TypeAppointmentCreated, out)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) (domain.Appointment, error) {
	if caller.ID == "" {
		return domain.Appointment{}, validationError(ErrMalformedInput, "caller identity is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError(ErrMalformedInput, "appointment_id is required")
	}

	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, classify("get appointment", err)
	}
	if !s.policy.CanView(caller, appt) {
		return domain.Appointment{}, ErrForbidden
	}
	return appt, nil
}

// ListMine returns the caller's own appointments, latest start first.
func (s *Service) ListMine(ctx context.Context, caller domain.Caller) ([]domain.Appointment, error) {
	if caller.ID == "" {
		return nil, validationError(ErrMalformedInput, "caller identity is required")
	}
	appts, err := s.repo.ListByCustomer(ctx, caller.ID)
	if err != nil {
		return nil, classify("list customer appointments", err)
	}
	return appts, nil
}

// ListAll returns every appointment, latest start first. Admin only.
func (s *Service) ListAll(ctx context.Context, caller domain.Caller) ([]domain.Appointment, error) {
	if !s.policy.CanViewAll(caller) {
		return nil, ErrForbidden
	}
	appts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, classify("list appointments", err)
	}
	return appts, nil
}

// NullableField separates a field left out of a patch from one set to null.
type NullableField[T any] struct {
	Set   bool
	Value *T
}

func SetTo[T any](v T) NullableField[T] {
	return NullableField[T]{Set: true, Value: &v}
}

func SetNull[T any]() NullableField[T] {
	return NullableField[T]{Set: true}
}

type Patch struct {
	StartAt            *time.Time
	EndAt              *time.Time
	Status             *domain.Status
	Notes              NullableField[string]
	CancellationReason NullableField[string]
	StaffID            NullableField[string]
}

func (p Patch) changesWindow() bool {
	return p.StartAt != nil || p.EndAt != nil
}

// Update applies patch to an appointment owned by the caller, or to any
// appointment when the caller is an admin. Window changes re-run the
// duration and capacity rules against the effective window.
func (s *Service) Update(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID, patch Patch) (domain.Appointment, error) {
	if caller.ID == "" {
		return domain.Appointment{}, validationError(ErrMalformedInput, "caller identity is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError(ErrMalformedInput, "appointment_id is required")
	}

	var out domain.Appointment
	err := s.repo.InScheduleTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := s.authorizeMutation(caller, current); err != nil {
			return err
		}

		next, err := s.applyPatch(current, patch)
		if err != nil {
			return err
		}

		reactivated := current.Status != domain.StatusScheduled && next.Status == domain.StatusScheduled
		if patch.changesWindow() {
			if err := s.ValidateDuration(next.StartAt, next.EndAt); err != nil {
				return err
			}
		}
		if patch.changesWindow() || reactivated {
			if err := s.checkCapacity(ctx, tx, next.Window(), next.ID); err != nil {
				return err
			}
		}

		updated, err := tx.UpdateAppointment(ctx, next)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, classify("update appointment", err)
	}

	s.publish(ctx, events.TypeAppointmentUpdated, out)
	return out, nil
}

func (s *Service) applyPatch(current domain.Appointment, patch Patch) (domain.Appointment, error) {
	next := current

	if patch.StartAt != nil {
		if patch.StartAt.IsZero() {
			return domain.Appointment{}, validationError(ErrMalformedInput, "Invalid date format provided")
		}
		next.StartAt = domain.NormalizeTime(*patch.StartAt)
	}
	if patch.EndAt != nil {
		if patch.EndAt.IsZero() {
			return domain.Appointment{}, validationError(ErrMalformedInput, "Invalid date format provided")
		}
		next.EndAt = domain.NormalizeTime(*patch.EndAt)
	}

	if patch.Status != nil && *patch.Status != "" {
		to := *patch.Status
		if !to.Valid() {
			return domain.Appointment{}, validationError(ErrMalformedInput, fmt.Sprintf("invalid status %q", to))
		}
		if !s.transitions.Allow(current.Status, to) {
			return domain.Appointment{}, validationError(ErrInvalidTransition, fmt.Sprintf("status cannot change from %s to %s", current.Status, to))
		}
		next.Status = to
	}

	if patch.Notes.Set {
		next.Notes = cloneString(patch.Notes.Value)
	}
	if patch.CancellationReason.Set {
		next.CancellationReason = cloneString(patch.CancellationReason.Value)
	}
	if patch.StaffID.Set {
		next.StaffID = nil
		if patch.StaffID.Value != nil {
			next.StaffID = optionalString(*patch.StaffID.Value)
		}
	}

	return next, nil
}

// Delete removes an appointment permanently.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, appointmentID uuid.UUID) error {
	if caller.ID == "" {
		return validationError(ErrMalformedInput, "caller identity is required")
	}
	if appointmentID == uuid.Nil {
		return validationError(ErrMalformedInput, "appointment_id is required")
	}

	var deleted domain.Appointment
	err := s.repo.InScheduleTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := s.authorizeMutation(caller, current); err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, appointmentID); err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return classify("delete appointment", err)
	}

	s.publish(ctx, events.TypeAppointmentDeleted, deleted)
	return nil
}

// publish runs after the write is committed; a broker failure is logged
// and does not undo the booking.
func (s *Service) publish(ctx context.Context, t events.Type, appt domain.Appointment) {
	ev, err := events.NewAppointmentEvent(t, appt, s.now())
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn(
			"appointment event publish failed",
			slog.Any("err", err),
			slog.String("event_type", string(t)),
			slog.String("appointment_id", appt.ID.String()),
		)
	}
}

func sameBooking(existing, proposed domain.Appointment) bool {
	return existing.CustomerID == proposed.CustomerID &&
		existing.StartAt.Equal(proposed.StartAt) &&
		existing.EndAt.Equal(proposed.EndAt) &&
		equalStrings(existing.StaffID, proposed.StaffID) &&
		equalStrings(existing.Notes, proposed.Notes)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equalStrings(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatSlot(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}
