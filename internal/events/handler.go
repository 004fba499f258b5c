package events

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/respond"
	"github.com/ayush/event-registration/backend/internal/store"
)

// MaxImageBytes caps an uploaded event image.
const MaxImageBytes = 5 << 20

const notFoundMsg = "Event not found or invalid ID"

// EventStore defines the interface for event persistence.
type EventStore interface {
	InsertEvent(ctx context.Context, e *models.Event) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, e *models.Event) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	FindEventsByLocation(ctx context.Context, location string) ([]models.Event, error)
	SearchEvents(ctx context.Context, query string) ([]models.Event, error)
}

// FileStore defines the interface for image storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds event catalogue HTTP handlers.
type Handler struct {
	events    EventStore
	files     FileStore
	imageBase string
	logger    logging.Logger
}

// NewHandler returns a Handler. imageBase is the public prefix image URLs
// are built from, e.g. "/api/events".
func NewHandler(events EventStore, files FileStore, imageBase string, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{
		events:    events,
		files:     files,
		imageBase: strings.TrimRight(imageBase, "/"),
		logger:    logger,
	}
}

// List returns every event ordered by date.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	h.writeList(w, r, events, err)
}

// FilterByLocation handles GET /events/filter/location?location=.
func (h *Handler) FilterByLocation(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		respond.Error(w, http.StatusBadRequest, "location is required")
		return
	}
	events, err := h.events.FindEventsByLocation(r.Context(), location)
	h.writeList(w, r, events, err)
}

// Search handles GET /events/search?query=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respond.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	events, err := h.events.SearchEvents(r.Context(), query)
	h.writeList(w, r, events, err)
}

// Get returns a single event.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.present(*e))
}

// Create handles POST /admin/events.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.DecodeFailed(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var e models.Event
	req.Apply(&e)
	saved, err := h.events.InsertEvent(r.Context(), &e)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info(r.Context(), "event created", "event_id", saved.ID.Hex())
	respond.JSON(w, http.StatusCreated, h.present(*saved))
}

// Update handles PUT /admin/events/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.DecodeFailed(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Apply(e)
	saved, err := h.events.UpdateEvent(r.Context(), e)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.present(*saved))
}

// Delete removes an event and its image. Registrations pointing at it stay.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if e.ImageKey != "" {
		if err := h.files.Remove(r.Context(), e.ImageKey); err != nil {
			h.logger.Warn(r.Context(), "event image cleanup failed", "key", e.ImageKey, "err", err)
		}
	}
	h.logger.Info(r.Context(), "event deleted", "event_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles PUT /admin/events/{id}/image with the raw image as body.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "image exceeds 5 MiB")
			return
		}
		respond.Error(w, http.StatusBadRequest, "could not read image")
		return
	}
	if len(data) == 0 {
		respond.Error(w, http.StatusBadRequest, "image is empty")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		respond.Error(w, http.StatusUnsupportedMediaType, "body must be an image")
		return
	}

	key := store.EventImageKey(e.ID.Hex())
	if err := h.files.Upload(r.Context(), key, data, contentType); err != nil {
		h.writeError(w, r, err)
		return
	}

	e.ImageKey = key
	saved, err := h.events.UpdateEvent(r.Context(), e)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.present(*saved))
}

// DownloadImage streams the event image from object storage.
func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil || e.ImageKey == "" {
		respond.Error(w, http.StatusNotFound, "image not available")
		return
	}

	data, ct, err := h.files.Download(r.Context(), e.ImageKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "image not available")
			return
		}
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(data)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, events []models.Event, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		out = append(out, h.present(e))
	}
	respond.JSON(w, http.StatusOK, out)
}

// present fills the client-facing image URL.
func (h *Handler) present(e models.Event) models.Event {
	e.Image = e.ImageURL(h.imageBase)
	return e
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, notFoundMsg)
		return
	}
	h.logger.Error(r.Context(), "event request failed", "err", err)
	respond.Error(w, http.StatusInternalServerError, "An error occurred. Please try again.")
}
