package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/core/window"
	"github.com/example/crewfinder/pkg/db"
)

// mockAPIStore implements Store for testing
type mockAPIStore struct {
	resources []db.Resource
	prefs     map[string]db.PreferredWindow
	inserted  []db.ResourceAllocation
	upserted  []db.PreferredWindow
	statuses  map[string]string
}

func (m *mockAPIStore) ListResources(ctx context.Context, category, status string) ([]db.Resource, error) {
	return m.resources, nil
}

func (m *mockAPIStore) GetPreferredWindows(ctx context.Context, resourceIDs []string) (map[string]db.PreferredWindow, error) {
	return m.prefs, nil
}

func (m *mockAPIStore) UpsertPreferredWindow(ctx context.Context, pref db.PreferredWindow) error {
	m.upserted = append(m.upserted, pref)
	return nil
}

func (m *mockAPIStore) DeletePreferredWindow(ctx context.Context, resourceID string) error {
	return nil
}

func (m *mockAPIStore) InsertAllocations(ctx context.Context, allocations []db.ResourceAllocation) error {
	m.inserted = append(m.inserted, allocations...)
	return nil
}

func (m *mockAPIStore) GetAllocationsByIdempotencyKey(ctx context.Context, key string) ([]db.ResourceAllocation, error) {
	return nil, nil
}

func (m *mockAPIStore) UpdateAllocationStatus(ctx context.Context, allocationID, status string) error {
	if m.statuses == nil {
		m.statuses = make(map[string]string)
	}
	m.statuses[allocationID] = status
	return nil
}

// mockAPIMailer implements services.InvitationSender for testing
type mockAPIMailer struct {
	failFor map[string]bool
	sent    []string
}

func (m *mockAPIMailer) SendEmail(to, subject, body string) error {
	if m.failFor[to] {
		return fmt.Errorf("delivery to %s failed", to)
	}
	m.sent = append(m.sent, to)
	return nil
}

type noopGeocoder struct{}

func (noopGeocoder) Resolve(ctx context.Context, address string) (model.Coordinate, error) {
	return model.Coordinate{}, model.ErrGeocodeNotFound
}

func floatPtr(v float64) *float64 { return &v }

func apiResource(id string) db.Resource {
	return db.Resource{
		ID:                id,
		Category:          "scaffolding",
		Status:            string(model.ResourceAvailable),
		Name:              "Provider " + id,
		Email:             id + "@example.com",
		City:              "Zurich",
		Lat:               floatPtr(47.3769),
		Lon:               floatPtr(8.5417),
		AvailabilityStart: window.Date(2024, 1, 1),
		AvailabilityEnd:   window.Date(2024, 1, 30),
		PersonCount:       3,
	}
}

func newTestHandler(store *mockAPIStore, mailer *mockAPIMailer) *Handler {
	return &Handler{
		Database: store,
		Pipeline: search.NewPipeline(noopGeocoder{}, zap.NewNop(), 0),
		Mailer:   mailer,
		Logger:   zap.NewNop(),
		Sessions: NewSessionRegistry(),
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func searchBody() map[string]any {
	return map[string]any{
		"category":  "scaffolding",
		"window":    map[string]string{"start": "2024-01-10", "end": "2024-01-15"},
		"center":    map[string]float64{"lat": 47.3467, "lon": 8.7208},
		"radius_km": 100,
	}
}

func openSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/search", searchBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestSearch_ReturnsCandidatesAndOpensSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{resources: []db.Resource{apiResource("r1"), apiResource("r2")}}
	router := NewRouter(newTestHandler(store, &mockAPIMailer{}))

	rec := doJSON(t, router, http.MethodPost, "/api/search", searchBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID  string `json:"session_id"`
		Candidates []struct {
			ResourceID string  `json:"resource_id"`
			DistanceKm float64 `json:"distance_km"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	require.Len(t, resp.Candidates, 2)
	assert.InDelta(t, 13.9, resp.Candidates[0].DistanceKm, 0.1)
}

func TestSearch_RejectsMalformedDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{}
	router := NewRouter(newTestHandler(store, &mockAPIMailer{}))

	body := searchBody()
	body["window"] = map[string]string{"start": "10.01.2024", "end": "2024-01-15"}

	rec := doJSON(t, router, http.MethodPost, "/api/search", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleAndReorder_ChangeSelectionOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{resources: []db.Resource{apiResource("r1"), apiResource("r2"), apiResource("r3")}}
	router := NewRouter(newTestHandler(store, &mockAPIMailer{}))
	sessionID := openSession(t, router)

	for _, id := range []string{"r1", "r2", "r3"} {
		rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/toggle", gin.H{"resource_id": id})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/reorder", gin.H{"from": 0, "to": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"r2", "r3", "r1"}, resp.Selection)
}

func TestToggle_RejectsUnknownResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{resources: []db.Resource{apiResource("r1")}}
	router := NewRouter(newTestHandler(store, &mockAPIMailer{}))
	sessionID := openSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/toggle", gin.H{"resource_id": "ghost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggle_UnknownSessionIs404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(newTestHandler(&mockAPIStore{}, &mockAPIMailer{}))

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/no-such-session/toggle", gin.H{"resource_id": "r1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetPreferredWindow_PersistsAndBindsToSelection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{resources: []db.Resource{apiResource("r1")}}
	router := NewRouter(newTestHandler(store, &mockAPIMailer{}))
	sessionID := openSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/toggle", gin.H{"resource_id": "r1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/sessions/"+sessionID+"/preferred-window", gin.H{
		"resource_id": "r1",
		"window":      gin.H{"start": "2024-01-12", "end": "2024-01-14"},
		"notes":       "mornings only",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, "r1", store.upserted[0].ResourceID)
	assert.Equal(t, "mornings only", store.upserted[0].Notes)

	var resp struct {
		Session sessionView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Session.Preferences, "r1")
	assert.Equal(t, "2024-01-12", resp.Session.Preferences["r1"].Window.Start)
}

func TestSetPreferredWindow_RejectsWindowOutsideAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{resources: []db.Resource{apiResource("r1")}}
	router := NewRouter(newTestHandler(store, &mockAPIMailer{}))
	sessionID := openSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/toggle", gin.H{"resource_id": "r1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/sessions/"+sessionID+"/preferred-window", gin.H{
		"resource_id": "r1",
		"window":      gin.H{"start": "2024-03-01", "end": "2024-03-05"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.upserted)
}

func TestCommit_CreatesAllocationsAndClosesSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{resources: []db.Resource{apiResource("r1"), apiResource("r2")}}
	mailer := &mockAPIMailer{failFor: map[string]bool{"r2@example.com": true}}
	router := NewRouter(newTestHandler(store, mailer))
	sessionID := openSession(t, router)

	for _, id := range []string{"r1", "r2"} {
		rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/toggle", gin.H{"resource_id": id})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/commit", gin.H{"trade_id": "trade-7"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Allocations []allocationView      `json:"allocations"`
		Warnings    []dispatchWarningView `json:"warnings"`
		Replayed    bool                  `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Allocations, 2)
	assert.Equal(t, 0, resp.Allocations[0].Priority)
	assert.Equal(t, 1, resp.Allocations[1].Priority)
	assert.Equal(t, string(model.AllocationInvited), resp.Allocations[0].Status)
	assert.Equal(t, string(model.AllocationInvited), resp.Allocations[1].Status)

	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "r2", resp.Warnings[0].ResourceID)
	assert.False(t, resp.Replayed)

	assert.Len(t, store.inserted, 2)

	// The session is closed after a successful commit
	getRec := doJSON(t, router, http.MethodGet, "/api/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestCommit_EmptySelectionIsRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &mockAPIStore{resources: []db.Resource{apiResource("r1")}}
	router := NewRouter(newTestHandler(store, &mockAPIMailer{}))
	sessionID := openSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/commit", gin.H{"trade_id": "trade-7"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.inserted)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(newTestHandler(&mockAPIStore{}, &mockAPIMailer{}))

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
