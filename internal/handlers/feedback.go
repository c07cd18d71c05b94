package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/healthcare-ab/careapi/internal/metrics"
	"github.com/healthcare-ab/careapi/internal/scheduling"
)

type FeedbackHandler struct {
	gate    *scheduling.FeedbackGate
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewFeedbackHandler(gate *scheduling.FeedbackGate, recorder metrics.Recorder, logger *slog.Logger) *FeedbackHandler {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &FeedbackHandler{gate: gate, metrics: recorder, logger: logger}
}

type feedbackRequest struct {
	AppointmentID string `json:"appointment_id"`
	Comment       string `json:"comment"`
}

type feedbackResponse struct {
	FeedbackID    string `json:"feedback_id"`
	AppointmentID string `json:"appointment_id"`
	Comment       string `json:"comment"`
	CreatedAt     string `json:"created_at"`
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	fb, err := h.gate.LeaveFeedback(r.Context(), actor.ID, strings.TrimSpace(req.AppointmentID), req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.metrics.RecordFeedback()
	writeJSON(w, http.StatusCreated, feedbackResponse{
		FeedbackID:    fb.ID,
		AppointmentID: fb.AppointmentID,
		Comment:       fb.Comment,
		CreatedAt:     fb.CreatedAt.UTC().Format(time.RFC3339),
	})
}
