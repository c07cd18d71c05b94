package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/healthcare-ab/careapi/internal/scheduling"
	"github.com/healthcare-ab/careapi/internal/storage"
)

type UserHandler struct {
	users  *storage.UserRepository
	engine *scheduling.Engine
	logger *slog.Logger
}

func NewUserHandler(users *storage.UserRepository, engine *scheduling.Engine, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, engine: engine, logger: logger}
}

type profileResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CreatedAt string `json:"created_at"`
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Me serves the authenticated account: GET reads the profile, PATCH updates
// the name fields, DELETE removes the account after cancelling every
// scheduled appointment so the caregiver side sees them disappear cleanly.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.profile(w, r, actor)
	case http.MethodPatch:
		h.update(w, r, actor)
	case http.MethodDelete:
		h.delete(w, r, actor)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *UserHandler) profile(w http.ResponseWriter, r *http.Request, actor scheduling.Actor) {
	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, actor scheduling.Actor) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	if err := h.users.UpdateProfile(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request, actor scheduling.Actor) {
	cancelled, err := h.engine.CancelAllForPatient(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("cancel-on-delete failed", "user_id", actor.ID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := h.users.Delete(r.Context(), actor.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("account deleted", "user_id", actor.ID, "appointments_cancelled", cancelled)
	w.WriteHeader(http.StatusNoContent)
}
