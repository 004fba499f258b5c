package registrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/event-registration/backend/internal/auth"
	"github.com/ayush/event-registration/backend/internal/models"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/register/{eventId}", h.Register)
	r.Delete("/register/{registrationId}", h.Cancel)
	r.Get("/register/my-registrations", h.Mine)
	r.Get("/admin/registrations", h.All)
	r.Get("/admin/registrations/pending", h.Pending)
	r.Put("/admin/registrations/accept/{id}", h.Accept)
	r.Put("/admin/registrations/reject/{id}", h.Reject)
	return r
}

func call(router http.Handler, method, path string, id *auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if id != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RegistrationFlow(t *testing.T) {
	w := newWorld(t, true, nil)
	router := newTestRouter(NewHandler(w.ledger, "/api/events", nil))
	ada := &auth.Identity{Subject: "ada@example.com", Role: models.RoleUser}

	rec := call(router, http.MethodPost, "/register/"+w.event.ID.Hex(), ada)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg models.Registration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, models.StatusPending, reg.Status)

	rec = call(router, http.MethodPost, "/register/"+w.event.ID.Hex(), ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered")

	rec = call(router, http.MethodPost, "/register/"+primitive.NewObjectID().Hex(), ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Event not found")

	rec = call(router, http.MethodGet, "/register/my-registrations", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Registration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Event)
	assert.Equal(t, "Go Meetup", mine[0].Event.Name)

	rec = call(router, http.MethodGet, "/admin/registrations/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), reg.ID.Hex())

	rec = call(router, http.MethodPut, "/admin/registrations/accept/"+reg.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"APPROVED"`)

	rec = call(router, http.MethodPut, "/admin/registrations/reject/"+reg.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"REJECTED"`)

	rec = call(router, http.MethodGet, "/admin/registrations/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = call(router, http.MethodGet, "/admin/registrations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), reg.ID.Hex())

	rec = call(router, http.MethodDelete, "/register/"+reg.ID.Hex(), ada)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(router, http.MethodDelete, "/register/"+reg.ID.Hex(), ada)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_TransitionUnknown(t *testing.T) {
	w := newWorld(t, false, nil)
	router := newTestRouter(NewHandler(w.ledger, "/api/events", nil))

	rec := call(router, http.MethodPut, "/admin/registrations/accept/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(router, http.MethodPut, "/admin/registrations/reject/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RequiresIdentity(t *testing.T) {
	w := newWorld(t, false, nil)
	router := newTestRouter(NewHandler(w.ledger, "/api/events", nil))

	assert.Equal(t, http.StatusForbidden, call(router, http.MethodPost, "/register/"+w.event.ID.Hex(), nil).Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/register/my-registrations", nil).Code)

	ghost := &auth.Identity{Subject: "ghost@example.com", Role: models.RoleUser}
	assert.Equal(t, http.StatusNotFound, call(router, http.MethodGet, "/register/my-registrations", ghost).Code)
	assert.Equal(t, http.StatusBadRequest, call(router, http.MethodPost, "/register/"+w.event.ID.Hex(), ghost).Code)
}

func TestHandler_EmbeddedEventImageURL(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, true, nil)
	withImage, err := w.store.InsertEvent(ctx, &models.Event{
		Name: "Gopher Gala", Location: "Paris", Date: time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
		ImageKey: "events/gala",
	})
	require.NoError(t, err)

	router := newTestRouter(NewHandler(w.ledger, "/api/events/", nil))
	ada := &auth.Identity{Subject: "ada@example.com", Role: models.RoleUser}

	rec := call(router, http.MethodPost, "/register/"+withImage.ID.Hex(), ada)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Registration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Event)
	assert.Equal(t, "/api/events/"+withImage.ID.Hex()+"/image", created.Event.Image)

	require.Equal(t, http.StatusCreated, call(router, http.MethodPost, "/register/"+w.event.ID.Hex(), ada).Code)

	rec = call(router, http.MethodGet, "/register/my-registrations", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Registration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 2)

	images := map[string]string{}
	for _, reg := range mine {
		require.NotNil(t, reg.Event)
		images[reg.Event.Name] = reg.Event.Image
	}
	assert.Equal(t, "/api/events/"+withImage.ID.Hex()+"/image", images["Gopher Gala"])
	assert.Empty(t, images["Go Meetup"])
}
