package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
)

// Actor is the authenticated identity a boundary layer resolved for the
// current request. The engine never reads identity from ambient state.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) admin() bool {
	return a.Role == model.RoleAdmin
}

// Engine reconciles booking requests against published availability: it
// matches a requested instant to an open slot, converts the slot into a
// scheduled appointment, and handles cancellation.
type Engine struct {
	appointments AppointmentStore
	availability AvailabilityStore
	logger       *slog.Logger
	now          func() time.Time

	// restoreSlotOnCancel re-opens the slot when an appointment is
	// cancelled. Off by default: the upstream product behavior never
	// restores, which makes a cancelled slot unbookable until the
	// caregiver republishes it. Kept as a single switch so flipping the
	// product decision does not touch the booking path.
	restoreSlotOnCancel bool
}

type EngineConfig struct {
	RestoreSlotOnCancel bool
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

func NewEngine(appointments AppointmentStore, availability AvailabilityStore, logger *slog.Logger, cfg EngineConfig) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		appointments:        appointments,
		availability:        availability,
		logger:              logger,
		now:                 now,
		restoreSlotOnCancel: cfg.RestoreSlotOnCancel,
	}
}

// Book claims the exact requested instant from the caregiver's open slots
// and converts it into a scheduled appointment. Under concurrent requests
// for the same (caregiver, instant) at most one caller succeeds; the rest
// get ErrSlotUnavailable from the store's uniqueness check without any
// mutation of their own.
func (e *Engine) Book(ctx context.Context, patientID, caregiverID string, startAt time.Time) (model.Appointment, error) {
	if strings.TrimSpace(patientID) == "" {
		return model.Appointment{}, invalid("patient_id", "cannot be empty")
	}
	if strings.TrimSpace(caregiverID) == "" {
		return model.Appointment{}, invalid("caregiver_id", "cannot be empty")
	}
	if startAt.IsZero() {
		return model.Appointment{}, invalid("start_at", "cannot be empty")
	}

	records, err := e.availability.FindByCaregiver(ctx, caregiverID)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load availability: %w", err)
	}

	var match *model.Availability
	for i := range records {
		if records[i].HasSlot(startAt) {
			match = &records[i]
			break
		}
	}
	if match == nil {
		return model.Appointment{}, ErrSlotUnavailable
	}

	appt, err := e.appointments.Create(ctx, model.Appointment{
		PatientID:   patientID,
		CaregiverID: caregiverID,
		StartAt:     startAt,
		Status:      model.StatusScheduled,
	})
	if err != nil {
		// ErrSlotUnavailable here is the store-level exclusivity check:
		// a concurrent booking won the slot between our scan and create.
		return model.Appointment{}, err
	}

	removed, err := e.availability.RemoveSlot(ctx, match.ID, startAt)
	if err != nil {
		// The appointment exists; the stale slot cannot be double-booked
		// because the store rejects a second scheduled (caregiver, instant).
		e.logger.Error("slot removal failed after booking",
			"appointment_id", appt.ID,
			"availability_id", match.ID,
			"err", err,
		)
		return appt, nil
	}
	if !removed {
		e.logger.Debug("slot already removed", "availability_id", match.ID, "start_at", startAt)
	}
	return appt, nil
}

// Cancel marks the appointment cancelled. Admins may cancel any
// appointment; a patient only their own. Cancelling an already-cancelled
// appointment is a no-op.
func (e *Engine) Cancel(ctx context.Context, appointmentID string, actor Actor) (model.Appointment, error) {
	appt, err := e.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	if !actor.admin() && appt.PatientID != actor.ID {
		return model.Appointment{}, ErrForbidden
	}
	if appt.Status == model.StatusCancelled {
		return appt, nil
	}

	appt.Status = model.StatusCancelled
	if err := e.appointments.Update(ctx, appt); err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	e.maybeRestoreSlot(ctx, appt)
	return appt, nil
}

// CancelAllForPatient cancels every scheduled appointment of the patient.
// Used by the account-deletion workflow. Returns how many were cancelled.
func (e *Engine) CancelAllForPatient(ctx context.Context, patientID string) (int, error) {
	appts, err := e.appointments.FindByPatient(ctx, patientID)
	if err != nil {
		return 0, fmt.Errorf("load appointments: %w", err)
	}

	cancelled := 0
	for _, appt := range appts {
		if appt.Status != model.StatusScheduled {
			continue
		}
		appt.Status = model.StatusCancelled
		if err := e.appointments.Update(ctx, appt); err != nil {
			return cancelled, fmt.Errorf("update appointment %s: %w", appt.ID, err)
		}
		e.maybeRestoreSlot(ctx, appt)
		cancelled++
	}
	return cancelled, nil
}

// PublishAvailability records a new set of open slots for the caregiver.
// Duplicate instants in the submitted list are collapsed; slots are unique
// within a record.
func (e *Engine) PublishAvailability(ctx context.Context, caregiverID string, slots []time.Time) (model.Availability, error) {
	if strings.TrimSpace(caregiverID) == "" {
		return model.Availability{}, invalid("caregiver_id", "cannot be empty")
	}
	if len(slots) == 0 {
		return model.Availability{}, invalid("slots", "cannot be empty")
	}

	unique := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		if s.IsZero() {
			return model.Availability{}, invalid("slots", "contains an empty instant")
		}
		dup := false
		for _, u := range unique {
			if u.Equal(s) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, s)
		}
	}

	rec, err := e.availability.Create(ctx, model.Availability{
		CaregiverID: caregiverID,
		Slots:       unique,
	})
	if err != nil {
		return model.Availability{}, fmt.Errorf("create availability: %w", err)
	}
	return rec, nil
}

func (e *Engine) maybeRestoreSlot(ctx context.Context, appt model.Appointment) {
	if !e.restoreSlotOnCancel {
		return
	}

	records, err := e.availability.FindByCaregiver(ctx, appt.CaregiverID)
	if err != nil {
		e.logger.Error("slot restore: load availability failed", "appointment_id", appt.ID, "err", err)
		return
	}
	if len(records) > 0 {
		if _, err := e.availability.AddSlot(ctx, records[0].ID, appt.StartAt); err != nil {
			e.logger.Error("slot restore failed", "appointment_id", appt.ID, "err", err)
		}
		return
	}
	if _, err := e.availability.Create(ctx, model.Availability{
		CaregiverID: appt.CaregiverID,
		Slots:       []time.Time{appt.StartAt},
	}); err != nil {
		e.logger.Error("slot restore failed", "appointment_id", appt.ID, "err", err)
	}
}
