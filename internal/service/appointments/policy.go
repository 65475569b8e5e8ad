package appointments

import "shopbook/backend/internal/domain"

// Policy decides who may read and change appointments.
type Policy interface {
	CanMutate(caller domain.Caller, appt domain.Appointment) bool
	CanView(caller domain.Caller, appt domain.Appointment) bool
	CanViewAll(caller domain.Caller) bool
}

// OwnerOrAdmin grants access to the owning customer and to admins.
type OwnerOrAdmin struct{}

func (OwnerOrAdmin) CanMutate(caller domain.Caller, appt domain.Appointment) bool {
	if caller.ID == "" {
		return false
	}
	return appt.CustomerID == caller.ID || caller.IsAdmin()
}

func (p OwnerOrAdmin) CanView(caller domain.Caller, appt domain.Appointment) bool {
	return p.CanMutate(caller, appt)
}

func (OwnerOrAdmin) CanViewAll(caller domain.Caller) bool {
	return caller.IsAdmin()
}

// StatusTransitions decides whether an appointment may move between
// statuses.
type StatusTransitions interface {
	Allow(from, to domain.Status) bool
}

// AnyTransition permits every move between known statuses.
type AnyTransition struct{}

func (AnyTransition) Allow(from, to domain.Status) bool {
	return to.Valid()
}
