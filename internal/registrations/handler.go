package registrations

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/middleware"
	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/respond"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	ledger    *Ledger
	imageBase string
	logger    logging.Logger
}

// NewHandler returns a Handler. imageBase is the prefix embedded event
// image URLs are built from, the same one the events handler uses.
func NewHandler(ledger *Ledger, imageBase string, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{ledger: ledger, imageBase: strings.TrimRight(imageBase, "/"), logger: logger}
}

// Register handles POST /register/{eventId}.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.CurrentIdentity(r)
	if err != nil {
		respond.Error(w, http.StatusForbidden, "access denied")
		return
	}

	reg, err := h.ledger.Register(r.Context(), id.Subject, chi.URLParam(r, "eventId"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyRegistered):
			respond.Error(w, http.StatusBadRequest, "User is already registered for this event")
		case errors.Is(err, models.ErrUnknownEvent):
			respond.Error(w, http.StatusBadRequest, "Event not found")
		case errors.Is(err, models.ErrUnknownIdentity):
			respond.Error(w, http.StatusBadRequest, "User not found")
		default:
			h.internal(w, r, "register failed", err)
		}
		return
	}
	respond.JSON(w, http.StatusCreated, h.present(reg))
}

// Cancel handles DELETE /register/{registrationId}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	ok, err := h.ledger.Cancel(r.Context(), chi.URLParam(r, "registrationId"))
	if err != nil {
		h.internal(w, r, "cancel failed", err)
		return
	}
	if !ok {
		respond.Error(w, http.StatusNotFound, "Registration not found")
		return
	}
	respond.Message(w, http.StatusOK, "Registration cancelled successfully")
}

// Mine handles GET /register/my-registrations.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.CurrentIdentity(r)
	if err != nil {
		respond.Error(w, http.StatusForbidden, "access denied")
		return
	}

	regs, err := h.ledger.ListByIdentity(r.Context(), id.Subject)
	if err != nil {
		if errors.Is(err, models.ErrUnknownIdentity) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.internal(w, r, "list own registrations failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, h.presentAll(regs))
}

// All handles GET /admin/registrations.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	regs, err := h.ledger.ListAll(r.Context())
	if err != nil {
		h.internal(w, r, "list registrations failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, h.presentAll(regs))
}

// Pending handles GET /admin/registrations/pending.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	regs, err := h.ledger.ListPending(r.Context())
	if err != nil {
		h.internal(w, r, "list pending registrations failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, h.presentAll(regs))
}

// Accept handles PUT /admin/registrations/accept/{id}.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusApproved)
}

// Reject handles PUT /admin/registrations/reject/{id}.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusRejected)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, status models.Status) {
	reg, err := h.ledger.Transition(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			respond.Error(w, http.StatusBadRequest, "Registration not found")
		case errors.Is(err, models.ErrInvalidStatus):
			respond.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.internal(w, r, "status change failed", err)
		}
		return
	}
	respond.JSON(w, http.StatusOK, h.present(reg))
}

// present fills the image URL of the embedded event. The event is copied
// since the ledger may share one event between registrations.
func (h *Handler) present(reg *models.Registration) *models.Registration {
	if reg.Event != nil {
		ev := *reg.Event
		ev.Image = ev.ImageURL(h.imageBase)
		reg.Event = &ev
	}
	return reg
}

func (h *Handler) presentAll(regs []models.Registration) []models.Registration {
	for i := range regs {
		h.present(&regs[i])
	}
	return regs
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(r.Context(), msg, "err", err)
	respond.Error(w, http.StatusInternalServerError, "An error occurred. Please try again.")
}
