package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/event-registration/backend/internal/models"
	"github.com/ayush/event-registration/backend/internal/store"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	events *store.MemoryStore
	files  *store.MemoryBlobs
	router http.Handler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{events: store.NewMemoryStore(false), files: store.NewMemoryBlobs()}
	h := NewHandler(env.events, env.files, "/api/events", nil)

	r := chi.NewRouter()
	r.Get("/events", h.List)
	r.Get("/events/public", h.List)
	r.Get("/events/filter/location", h.FilterByLocation)
	r.Get("/events/search", h.Search)
	r.Get("/events/{id}", h.Get)
	r.Get("/events/{id}/image", h.DownloadImage)
	r.Get("/admin/events", h.List)
	r.Post("/admin/events", h.Create)
	r.Put("/admin/events/{id}", h.Update)
	r.Delete("/admin/events/{id}", h.Delete)
	r.Put("/admin/events/{id}/image", h.UploadImage)
	env.router = r
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) create(t *testing.T, body string) models.Event {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/admin/events", []byte(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) []models.Event {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandler_CRUD(t *testing.T) {
	env := newEnv(t)

	created := env.create(t, `{"eventName":"Go Meetup","location":"Berlin","date":"2026-06-01T18:00","maxParticipants":50}`)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, "Go Meetup", created.Name)
	require.NotNil(t, created.MaxParticipants)
	assert.Equal(t, 50, *created.MaxParticipants)

	rec := env.do(t, http.MethodPut, "/admin/events/"+created.ID.Hex(),
		[]byte(`{"eventName":"Go Meetup #2","location":"Hamburg","date":"2026-06-02"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Hamburg", updated.Location)
	assert.Nil(t, updated.MaxParticipants)

	list := decodeEvents(t, env.do(t, http.MethodGet, "/events/public", nil, ""))
	require.Len(t, list, 1)

	rec = env.do(t, http.MethodDelete, "/admin/events/"+created.ID.Hex(), nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, decodeEvents(t, env.do(t, http.MethodGet, "/events", nil, "")))
}

func TestHandler_NotFound(t *testing.T) {
	env := newEnv(t)
	missing := primitive.NewObjectID().Hex()
	body := []byte(`{"eventName":"X","location":"Y","date":"2026-06-02"}`)

	tests := []struct {
		name, method, path string
		body               []byte
	}{
		{"update unknown", http.MethodPut, "/admin/events/" + missing, body},
		{"update malformed id", http.MethodPut, "/admin/events/not-hex", body},
		{"delete unknown", http.MethodDelete, "/admin/events/" + missing, nil},
		{"get malformed id", http.MethodGet, "/events/zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body, "application/json")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), notFoundMsg)
		})
	}
}

func TestHandler_CreateValidation(t *testing.T) {
	env := newEnv(t)
	for name, body := range map[string]string{
		"missing name":   `{"location":"Berlin","date":"2026-06-01"}`,
		"bad date":       `{"eventName":"X","location":"Berlin","date":"next tuesday"}`,
		"negative seats": `{"eventName":"X","location":"Berlin","date":"2026-06-01","maxParticipants":-1}`,
		"not json":       `{`,
		"empty body":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/admin/events", []byte(body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_FilterAndSearch(t *testing.T) {
	env := newEnv(t)
	env.create(t, `{"eventName":"Go Meetup","location":"Berlin","date":"2026-06-01"}`)
	env.create(t, `{"eventName":"Jazz Night","location":"berlin","date":"2026-06-03"}`)
	env.create(t, `{"eventName":"Berlinale Party","location":"Potsdam","date":"2026-06-02"}`)

	byLocation := decodeEvents(t, env.do(t, http.MethodGet, "/events/filter/location?location=BERLIN", nil, ""))
	assert.Len(t, byLocation, 2)

	found := decodeEvents(t, env.do(t, http.MethodGet, "/events/search?query=berlin", nil, ""))
	assert.Len(t, found, 3, "matches name or location substrings")

	found = decodeEvents(t, env.do(t, http.MethodGet, "/events/search?query=jazz", nil, ""))
	require.Len(t, found, 1)
	assert.Equal(t, "Jazz Night", found[0].Name)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/events/search", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/events/filter/location", nil, "").Code)
}

func TestHandler_Images(t *testing.T) {
	env := newEnv(t)
	e := env.create(t, `{"eventName":"Go Meetup","location":"Berlin","date":"2026-06-01"}`)
	imagePath := "/admin/events/" + e.ID.Hex() + "/image"

	rec := env.do(t, http.MethodGet, "/events/"+e.ID.Hex()+"/image", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, imagePath, []byte("plain text"), "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = env.do(t, http.MethodPut, imagePath, nil, "image/png")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, imagePath, bytes.Repeat([]byte{0}, MaxImageBytes+1), "image/png")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = env.do(t, http.MethodPut, imagePath, pngHeader, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var withImage models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withImage))
	assert.Equal(t, "/api/events/"+e.ID.Hex()+"/image", withImage.Image)
	assert.NotContains(t, rec.Body.String(), "events/"+e.ID.Hex()+`"`, "storage key stays internal")

	rec = env.do(t, http.MethodGet, "/events/"+e.ID.Hex()+"/image", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	list := decodeEvents(t, env.do(t, http.MethodGet, "/events", nil, ""))
	require.Len(t, list, 1)
	assert.True(t, strings.HasSuffix(list[0].Image, "/image"))

	rec = env.do(t, http.MethodDelete, "/admin/events/"+e.ID.Hex(), nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, _, err := env.files.Download(context.Background(), store.EventImageKey(e.ID.Hex()))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHandler_UploadImageUnknownEvent(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPut, "/admin/events/"+primitive.NewObjectID().Hex()+"/image", pngHeader, "image/png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
