package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthcare-ab/careapi/internal/metrics"
	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/internal/scheduling"
)

var tracer = otel.Tracer("careapi/handlers")

type BookingHandler struct {
	engine    *scheduling.Engine
	projector *scheduling.Projector
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func NewBookingHandler(engine *scheduling.Engine, projector *scheduling.Projector, recorder metrics.Recorder, logger *slog.Logger) *BookingHandler {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &BookingHandler{
		engine:    engine,
		projector: projector,
		metrics:   recorder,
		logger:    logger,
	}
}

type bookRequest struct {
	CaregiverID string `json:"caregiver_id"`
	StartAt     string `json:"start_at"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	CaregiverID   string `json:"caregiver_id"`
	StartAt       string `json:"start_at"`
	Status        string `json:"status"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type appointmentViewItem struct {
	AppointmentID string `json:"appointment_id"`
	CaregiverID   string `json:"caregiver_id"`
	Name          string `json:"name,omitempty"`
	StartAt       string `json:"start_at"`
	Status        string `json:"status"`
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartAt))
	if err != nil {
		h.metrics.RecordBooking(metrics.OutcomeInvalid)
		http.Error(w, "invalid start_at", http.StatusBadRequest)
		return
	}

	ctx, span := tracer.Start(r.Context(), "booking.book", trace.WithAttributes(
		attribute.String("caregiver.id", req.CaregiverID),
	))
	defer span.End()

	began := time.Now()
	appt, err := h.engine.Book(ctx, actor.ID, strings.TrimSpace(req.CaregiverID), startAt)
	h.metrics.RecordBookingLatency(time.Since(began))
	if err != nil {
		h.metrics.RecordBooking(bookingOutcome(err))
		writeDomainError(w, err)
		return
	}

	h.metrics.RecordBooking(metrics.OutcomeBooked)
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.Cancel(r.Context(), req.AppointmentID, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.metrics.RecordCancellation()
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	h.listForPatient(w, r, h.projector.ListUpcoming)
}

func (h *BookingHandler) History(w http.ResponseWriter, r *http.Request) {
	h.listForPatient(w, r, h.projector.ListHistory)
}

// Schedule returns the authenticated caregiver's future appointments with
// patient names.
func (h *BookingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if actor.Role != model.RoleCaregiver && actor.Role != model.RoleAdmin {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	views, err := h.projector.ListForCaregiver(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("caregiver schedule failed", "err", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewItems(views))
}

func (h *BookingHandler) listForPatient(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, patientID string) ([]scheduling.AppointmentView, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	views, err := list(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("appointment listing failed", "err", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewItems(views))
}

func bookingOutcome(err error) string {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		return metrics.OutcomeInvalid
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		CaregiverID:   appt.CaregiverID,
		StartAt:       appt.StartAt.UTC().Format(time.RFC3339),
		Status:        string(appt.Status),
	}
}

func toViewItems(views []scheduling.AppointmentView) []appointmentViewItem {
	items := make([]appointmentViewItem, 0, len(views))
	for _, v := range views {
		items = append(items, appointmentViewItem{
			AppointmentID: v.AppointmentID,
			CaregiverID:   v.CaregiverID,
			Name:          v.DisplayName,
			StartAt:       v.StartAt.UTC().Format(time.RFC3339),
			Status:        string(v.Status),
		})
	}
	return items
}
