package scheduling

import (
	"context"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
)

// The core holds no locks and performs no SQL. Exclusivity under concurrent
// bookings is a capability of the shared store: AppointmentStore.Create must
// reject a second scheduled appointment for the same (caregiver, instant)
// with ErrSlotUnavailable, and AvailabilityStore.RemoveSlot must be a
// conditional write that reports whether the instant was actually present.
// In-process locking would not survive a multi-instance deployment.

type AppointmentStore interface {
	// Create persists a new appointment and returns it with its generated
	// identity. It fails with ErrSlotUnavailable when a scheduled
	// appointment already exists for the same (caregiver, instant).
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	// GetByID fails with ErrNotFound when the id does not resolve.
	GetByID(ctx context.Context, id string) (model.Appointment, error)
	Update(ctx context.Context, appt model.Appointment) error
	FindByPatient(ctx context.Context, patientID string) ([]model.Appointment, error)
	FindByCaregiver(ctx context.Context, caregiverID string) ([]model.Appointment, error)
}

// OpenSlot is one bookable (caregiver, instant) pair.
type OpenSlot struct {
	CaregiverID string
	At          time.Time
}

type AvailabilityStore interface {
	Create(ctx context.Context, rec model.Availability) (model.Availability, error)
	FindByCaregiver(ctx context.Context, caregiverID string) ([]model.Availability, error)
	// RemoveSlot deletes the instant from the record if present. The false
	// return means the slot was already gone; callers must treat that as
	// having lost a race, not as an error.
	RemoveSlot(ctx context.Context, recordID string, at time.Time) (bool, error)
	// AddSlot inserts the instant into the record unless already present.
	AddSlot(ctx context.Context, recordID string, at time.Time) (bool, error)
	// OpenSlots lists every open (caregiver, instant) pair strictly after
	// the given instant.
	OpenSlots(ctx context.Context, after time.Time) ([]OpenSlot, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, fb model.Feedback) (model.Feedback, error)
}

// UserDirectory resolves identities to profiles for display-name enrichment
// and existence checks. It never authorizes anything.
type UserDirectory interface {
	// GetByID fails with ErrNotFound when the id does not resolve.
	GetByID(ctx context.Context, id string) (model.User, error)
}
