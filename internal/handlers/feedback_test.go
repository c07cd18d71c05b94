package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/internal/scheduling"
)

func newFeedbackFixture(t *testing.T) (*FeedbackHandler, *memAppointments, *memFeedback) {
	t.Helper()
	appts := newMemAppointments()
	feedback := &memFeedback{}
	gate := scheduling.NewFeedbackGate(appts, feedback)
	return NewFeedbackHandler(gate, nil, testLogger), appts, feedback
}

func TestFeedbackEndpoint(t *testing.T) {
	handler, appts, feedback := newFeedbackFixture(t)
	appt, err := appts.Create(context.Background(), model.Appointment{
		PatientID:   "patient-1",
		CaregiverID: "caregiver-1",
		StartAt:     time.Now().Add(-24 * time.Hour),
		Status:      model.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	token := signTestToken(t, "patient-1", model.RolePatient)
	body := `{"appointment_id":"` + appt.ID + `","comment":"Very thorough."}`
	rw := doAuthed(t, http.HandlerFunc(handler.Create), http.MethodPost, "/api/v1/feedback", token, body)
	if rw.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rw.Code, rw.Body.String())
	}
	if len(feedback.created) != 1 {
		t.Fatalf("expected 1 stored feedback, got %d", len(feedback.created))
	}
}

func TestFeedbackEndpoint_ForeignAppointment(t *testing.T) {
	handler, appts, feedback := newFeedbackFixture(t)
	appt, err := appts.Create(context.Background(), model.Appointment{
		PatientID:   "patient-1",
		CaregiverID: "caregiver-1",
		StartAt:     time.Now().Add(-24 * time.Hour),
		Status:      model.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	token := signTestToken(t, "patient-2", model.RolePatient)
	body := `{"appointment_id":"` + appt.ID + `","comment":"not mine"}`
	rw := doAuthed(t, http.HandlerFunc(handler.Create), http.MethodPost, "/api/v1/feedback", token, body)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}
	if len(feedback.created) != 0 {
		t.Fatalf("nothing may be stored, got %d", len(feedback.created))
	}
}

func TestFeedbackEndpoint_CommentTooLong(t *testing.T) {
	handler, appts, _ := newFeedbackFixture(t)
	appt, err := appts.Create(context.Background(), model.Appointment{
		PatientID:   "patient-1",
		CaregiverID: "caregiver-1",
		StartAt:     time.Now().Add(-24 * time.Hour),
		Status:      model.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	token := signTestToken(t, "patient-1", model.RolePatient)
	body := `{"appointment_id":"` + appt.ID + `","comment":"` + strings.Repeat("x", scheduling.MaxCommentLength+1) + `"}`
	rw := doAuthed(t, http.HandlerFunc(handler.Create), http.MethodPost, "/api/v1/feedback", token, body)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}
