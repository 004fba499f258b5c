package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/event-registration/backend/internal/auth"
	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/middleware"
	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/respond"
)

// Handler serves the caller's own profile and the admin user endpoints.
type Handler struct {
	svc    *Service
	logger logging.Logger
}

func NewHandler(svc *Service, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Me handles GET /user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.CurrentIdentity(r)
	if err != nil {
		respond.Error(w, http.StatusForbidden, "access denied")
		return
	}

	user, err := h.svc.Profile(r.Context(), id.Subject)
	if err != nil {
		auth.WriteUserError(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// UpdateMe handles PUT /user/update.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.CurrentIdentity(r)
	if err != nil {
		respond.Error(w, http.StatusForbidden, "access denied")
		return
	}

	var req models.UpdateProfileRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.DecodeFailed(w, r, h.logger, err)
		return
	}

	if err := h.svc.UpdateProfile(r.Context(), id.Subject, req); err != nil {
		auth.WriteUserError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe handles DELETE /user/delete.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.CurrentIdentity(r)
	if err != nil {
		respond.Error(w, http.StatusForbidden, "access denied")
		return
	}

	if err := h.svc.DeleteSelf(r.Context(), id.Subject); err != nil {
		auth.WriteUserError(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, id.Subject+" Has been deleted successfully")
}

// List handles GET /admin/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		auth.WriteUserError(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// Add handles POST /admin/adduser.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.DecodeFailed(w, r, h.logger, err)
		return
	}

	user, err := h.svc.Add(r.Context(), req)
	if err != nil {
		auth.WriteUserError(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, user)
}

// Update handles PUT /admin/updateuser/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.DecodeFailed(w, r, h.logger, err)
		return
	}

	user, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		auth.WriteUserError(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// Delete handles DELETE /admin/deleteuser/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		auth.WriteUserError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
