package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartCrime/internal/domain/models"
)

type stubStore struct {
	results  []models.CorrelationResult
	rotation []models.RotationItem
	detail   []models.CuratedEntry
	err      error
}

func (s *stubStore) LoadResults(context.Context) ([]models.CorrelationResult, error) {
	return s.results, s.err
}
func (s *stubStore) SaveResults(context.Context, []models.CorrelationResult) error { return nil }
func (s *stubStore) LoadRotation(context.Context) ([]models.RotationItem, error) {
	return s.rotation, s.err
}
func (s *stubStore) SaveRotation(context.Context, []models.RotationItem) error { return nil }
func (s *stubStore) LoadDetail(context.Context) ([]models.CuratedEntry, error) {
	return s.detail, s.err
}
func (s *stubStore) SaveDetail(context.Context, []models.CuratedEntry) error { return nil }

type listBody struct {
	Status int `json:"status"`
	Data   struct {
		Rows  json.RawMessage `json:"rows"`
		Total int64           `json:"total"`
	} `json:"data"`
}

func newTestEcho(store *stubStore, hub *Hub) *echo.Echo {
	e := echo.New()
	NewRotationHandler(store, hub, nil).RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRotation(t *testing.T) {
	store := &stubStore{rotation: []models.RotationItem{{ID: "A", Title: "Alpha"}, {ID: "B", Title: "Beta"}}}
	e := newTestEcho(store, nil)

	rec := get(t, e, "/api/rotation?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Data.Total)
	assert.JSONEq(t, `[{"id":"A","title":"Alpha"}]`, string(body.Data.Rows))
}

func TestRotation_EmptyIsList(t *testing.T) {
	rec := get(t, newTestEcho(&stubStore{}, nil), "/api/rotation")
	require.Equal(t, http.StatusOK, rec.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `[]`, string(body.Data.Rows))
}

func TestRotation_StoreError(t *testing.T) {
	rec := get(t, newTestEcho(&stubStore{err: errors.New("disk")}, nil), "/api/rotation")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INTERNAL")
}

func TestCorrelations(t *testing.T) {
	store := &stubStore{
		results: []models.CorrelationResult{
			{ID: "A", AbsR: 0.9}, {ID: "B", AbsR: 0.5}, {ID: "C", AbsR: 0.1},
		},
		detail: []models.CuratedEntry{
			{CorrelationResult: models.CorrelationResult{ID: "A", AbsR: 0.9}, Category: models.CategoryFunny},
			{CorrelationResult: models.CorrelationResult{ID: "B", AbsR: 0.5}, Category: models.CategoryOther},
		},
	}
	e := newTestEcho(store, nil)

	var body listBody
	rec := get(t, e, "/api/correlations?min_abs_r=0.4")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Data.Total)

	rec = get(t, e, "/api/correlations?category=other")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Data.Total)
	assert.Contains(t, string(body.Data.Rows), `"category":"other"`)
}

func TestCorrelations_Validation(t *testing.T) {
	e := newTestEcho(&stubStore{}, nil)
	for _, q := range []string{"category=boring", "limit=5000", "min_abs_r=2"} {
		rec := get(t, e, "/api/correlations?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestEcho(&stubStore{}, NewHub(nil)), "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","ws_clients":0}`, rec.Body.String())
}

func TestHub_BroadcastsRotation(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(newTestEcho(&stubStore{}, hub))
	defer srv.Close()

	ctx := context.Background()
	first := &models.RotationEvent{BenchmarkID: "SP500", Items: []models.RotationItem{{ID: "A", Title: "Alpha"}}}
	require.NoError(t, hub.PublishRotation(ctx, first))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rotation"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var got models.RotationEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "A", got.Items[0].ID)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	second := &models.RotationEvent{BenchmarkID: "SP500", Items: []models.RotationItem{{ID: "B", Title: "Beta"}}}
	require.NoError(t, hub.PublishRotation(ctx, second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "B", got.Items[0].ID)
}
