package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
)

func TestLeaveFeedback_OwnAppointment(t *testing.T) {
	ctx := context.Background()
	appts := newFakeAppointments()
	appt, err := appts.Create(ctx, model.Appointment{
		PatientID:   "p1",
		CaregiverID: "c1",
		StartAt:     time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Status:      model.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	feedback := &fakeFeedback{}
	gate := NewFeedbackGate(appts, feedback)

	fb, err := gate.LeaveFeedback(ctx, "p1", appt.ID, "On time and very helpful.")
	if err != nil {
		t.Fatalf("leave feedback: %v", err)
	}
	if fb.AppointmentID != appt.ID || fb.PatientID != "p1" {
		t.Fatalf("feedback bound to wrong appointment: %+v", fb)
	}
	if feedback.count() != 1 {
		t.Fatalf("expected 1 stored feedback, got %d", feedback.count())
	}
}

func TestLeaveFeedback_Validation(t *testing.T) {
	ctx := context.Background()
	appts := newFakeAppointments()
	appt, err := appts.Create(ctx, model.Appointment{
		PatientID:   "p1",
		CaregiverID: "c1",
		StartAt:     time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Status:      model.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	cases := []struct {
		name          string
		appointmentID string
		comment       string
	}{
		{"empty comment", appt.ID, ""},
		{"whitespace comment", appt.ID, "   \t\n"},
		{"comment over limit", appt.ID, strings.Repeat("x", MaxCommentLength+1)},
		{"missing appointment id", "", "fine visit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			feedback := &fakeFeedback{}
			gate := NewFeedbackGate(appts, feedback)

			_, err := gate.LeaveFeedback(ctx, "p1", tc.appointmentID, tc.comment)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if feedback.count() != 0 {
				t.Fatalf("nothing may be stored on rejection, got %d", feedback.count())
			}
		})
	}
}

func TestLeaveFeedback_ExactLimitAccepted(t *testing.T) {
	ctx := context.Background()
	appts := newFakeAppointments()
	appt, err := appts.Create(ctx, model.Appointment{
		PatientID:   "p1",
		CaregiverID: "c1",
		StartAt:     time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Status:      model.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	feedback := &fakeFeedback{}
	gate := NewFeedbackGate(appts, feedback)

	if _, err := gate.LeaveFeedback(ctx, "p1", appt.ID, strings.Repeat("å", MaxCommentLength)); err != nil {
		t.Fatalf("comment at the limit must pass: %v", err)
	}
	if feedback.count() != 1 {
		t.Fatalf("expected 1 stored feedback, got %d", feedback.count())
	}
}

func TestLeaveFeedback_UnknownAppointment(t *testing.T) {
	feedback := &fakeFeedback{}
	gate := NewFeedbackGate(newFakeAppointments(), feedback)

	_, err := gate.LeaveFeedback(context.Background(), "p1", "missing", "never happened")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if feedback.count() != 0 {
		t.Fatalf("nothing may be stored, got %d", feedback.count())
	}
}

func TestLeaveFeedback_OtherPatientsAppointment(t *testing.T) {
	ctx := context.Background()
	appts := newFakeAppointments()
	appt, err := appts.Create(ctx, model.Appointment{
		PatientID:   "p1",
		CaregiverID: "c1",
		StartAt:     time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Status:      model.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	feedback := &fakeFeedback{}
	gate := NewFeedbackGate(appts, feedback)

	_, err = gate.LeaveFeedback(ctx, "p2", appt.ID, "sneaky")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if feedback.count() != 0 {
		t.Fatalf("nothing may be stored, got %d", feedback.count())
	}
}
