package scheduling

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/healthcare-ab/careapi/internal/model"
)

// MaxCommentLength is the upper bound on feedback comments, in characters.
const MaxCommentLength = 900

// FeedbackGate validates that feedback is only attached to an appointment
// owned by the submitting patient.
type FeedbackGate struct {
	appointments AppointmentStore
	feedback     FeedbackStore
}

func NewFeedbackGate(appointments AppointmentStore, feedback FeedbackStore) *FeedbackGate {
	return &FeedbackGate{appointments: appointments, feedback: feedback}
}

// LeaveFeedback stores a comment against one of the patient's own
// appointments. Nothing is persisted when any check fails.
func (g *FeedbackGate) LeaveFeedback(ctx context.Context, patientID, appointmentID, comment string) (model.Feedback, error) {
	if strings.TrimSpace(comment) == "" {
		return model.Feedback{}, invalid("comment", "cannot be empty")
	}
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return model.Feedback{}, invalid("comment", "cannot exceed 900 characters")
	}
	if strings.TrimSpace(appointmentID) == "" {
		return model.Feedback{}, invalid("appointment_id", "cannot be empty")
	}

	appt, err := g.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return model.Feedback{}, err
	}
	if appt.PatientID != patientID {
		return model.Feedback{}, ErrForbidden
	}

	return g.feedback.Create(ctx, model.Feedback{
		AppointmentID: appointmentID,
		PatientID:     patientID,
		Comment:       comment,
	})
}
