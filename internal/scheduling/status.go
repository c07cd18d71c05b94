package scheduling

import (
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
)

// DeriveDisplayStatus computes the caller-facing status of an appointment
// from its stored status and the current instant. A past appointment that
// was never cancelled displays as completed; cancellation sticks regardless
// of time. The result is never written back.
func DeriveDisplayStatus(stored model.AppointmentStatus, startAt, now time.Time) model.AppointmentStatus {
	if startAt.After(now) {
		return stored
	}
	if stored == model.StatusCancelled {
		return model.StatusCancelled
	}
	return model.StatusCompleted
}
