package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/internal/scheduling"
)

type AvailabilityHandler struct {
	engine *scheduling.Engine
	slots  scheduling.AvailabilityStore
	logger *slog.Logger
}

func NewAvailabilityHandler(engine *scheduling.Engine, slots scheduling.AvailabilityStore, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: engine, slots: slots, logger: logger}
}

type publishRequest struct {
	// CaregiverID is honored for admins only; caregivers always publish
	// their own slots.
	CaregiverID string   `json:"caregiver_id,omitempty"`
	Slots       []string `json:"slots"`
}

type publishResponse struct {
	AvailabilityID string   `json:"availability_id"`
	CaregiverID    string   `json:"caregiver_id"`
	Slots          []string `json:"slots"`
}

type openSlotItem struct {
	CaregiverID string `json:"caregiver_id"`
	StartAt     string `json:"start_at"`
}

// Publish records the authenticated caregiver's open slots.
func (h *AvailabilityHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	caregiverID := actor.ID
	if actor.Role == model.RoleAdmin && strings.TrimSpace(req.CaregiverID) != "" {
		caregiverID = strings.TrimSpace(req.CaregiverID)
	}
	slots := make([]time.Time, 0, len(req.Slots))
	for _, raw := range req.Slots {
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
		if err != nil {
			http.Error(w, "invalid slot instant", http.StatusBadRequest)
			return
		}
		slots = append(slots, at)
	}

	rec, err := h.engine.PublishAvailability(r.Context(), caregiverID, slots)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]string, 0, len(rec.Slots))
	for _, at := range rec.Slots {
		out = append(out, at.UTC().Format(time.RFC3339))
	}
	writeJSON(w, http.StatusCreated, publishResponse{
		AvailabilityID: rec.ID,
		CaregiverID:    rec.CaregiverID,
		Slots:          out,
	})
}

// Open lists every bookable (caregiver, instant) pair in the future. It is
// the browse surface patients book from.
func (h *AvailabilityHandler) Open(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := actorFromContext(r.Context()); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	after := time.Now()
	if v := strings.TrimSpace(r.URL.Query().Get("after")); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid after", http.StatusBadRequest)
			return
		}
		after = parsed
	}

	open, err := h.slots.OpenSlots(r.Context(), after)
	if err != nil {
		h.logger.Error("open slot listing failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	items := make([]openSlotItem, 0, len(open))
	for _, slot := range open {
		items = append(items, openSlotItem{
			CaregiverID: slot.CaregiverID,
			StartAt:     slot.At.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}
