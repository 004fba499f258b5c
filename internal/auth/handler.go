package auth

import (
	"errors"
	"net/http"

	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/respond"
)

const badCredentials = "Incorrect Username or Password"

// Handler holds the public (unauthenticated) account endpoints.
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

// Check handles GET /public/check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	respond.Message(w, http.StatusOK, "Endpoints are working")
}

// Login handles POST /public/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.DecodeFailed(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, badCredentials)
		return
	}

	resp, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			respond.Error(w, http.StatusBadRequest, badCredentials)
			return
		}
		h.logger.Error(r.Context(), "login failed", "err", err)
		respond.Error(w, http.StatusInternalServerError, "An error occurred. Please try again.")
		return
	}

	respond.JSON(w, http.StatusOK, resp)
}

// CreateUser handles POST /public/create-user. Self-service signups are
// always plain users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.signUp(w, r, models.RoleUser)
}

// RegisterAdmin handles POST /public/register-admin. The role is forced to
// ADMIN whatever the body says.
func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	h.signUp(w, r, models.RoleAdmin)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request, role models.Role) {
	var req models.CreateUserRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.DecodeFailed(w, r, h.logger, err)
		return
	}

	user, err := h.svc.SignUp(r.Context(), req, role)
	if err != nil {
		WriteUserError(w, r, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusCreated, user)
}

// WriteUserError maps account creation/update failures to responses.
func WriteUserError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrEmailTaken):
		respond.Error(w, http.StatusBadRequest, "User could not be added: "+models.ErrEmailTaken.Error())
	case errors.Is(err, models.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "User not found")
	default:
		logger.Error(r.Context(), "user write failed", "err", err)
		respond.Error(w, http.StatusInternalServerError, "An error occurred. Please try again.")
	}
}
