package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benepick/database"
	"benepick/internal/config"
	"benepick/server/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.NewCatalogDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.SeedCatalogIfEmpty())

	cfg := &config.Config{
		Port: "0",
		QualityLoop: config.QualityLoopConfig{
			WindowDays:     14,
			MinRecommended: 20,
			LowCtr:         5,
			HighCtr:        18,
			LowCvr:         3,
			HighCvr:        12,
			MaxAdjustment:  20,
		},
	}

	container, err := NewContainer(db, cfg)
	require.NoError(t, err)
	return NewServer(container)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, request)
	return recorder
}

func validSimulateBody() map[string]any {
	return map[string]any{
		"age":            31,
		"income":         4200,
		"monthlySpend":   150,
		"priority":       "cashback",
		"salaryTransfer": "yes",
		"travelLevel":    "rarely",
		"categories":     []string{"grocery", "online"},
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	recorder := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"ok"`)
}

func TestSimulateAndFetchRunOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	recorder := doJSON(t, srv, http.MethodPost, "/api/recommendations/simulate", validSimulateBody())
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var simulated types.RecommendationRunResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &simulated))
	assert.Len(t, simulated.Accounts, 3)
	assert.Len(t, simulated.Cards, 3)
	assert.NotEmpty(t, simulated.Bundles)

	fetched := doJSON(t, srv, http.MethodGet, "/api/recommendations/"+simulated.RunID, nil)
	require.Equal(t, http.StatusOK, fetched.Code)

	var run types.RecommendationRunResponse
	require.NoError(t, json.Unmarshal(fetched.Body.Bytes(), &run))
	assert.Equal(t, simulated.RunID, run.RunID)
	assert.Len(t, run.Accounts, 3)

	history := doJSON(t, srv, http.MethodGet, "/api/recommendations/history?limit=5", nil)
	require.Equal(t, http.StatusOK, history.Code)
	assert.Contains(t, history.Body.String(), simulated.RunID)
}

func TestSimulateValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	body := validSimulateBody()
	body["age"] = 15
	recorder := doJSON(t, srv, http.MethodPost, "/api/recommendations/simulate", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	delete(body, "age")
	recorder = doJSON(t, srv, http.MethodPost, "/api/recommendations/simulate", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetRunNotFoundOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	recorder := doJSON(t, srv, http.MethodGet, "/api/recommendations/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Recommendation run not found")
}

func TestRedirectOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	recorder := doJSON(t, srv, http.MethodPost, "/api/recommendations/simulate", validSimulateBody())
	require.Equal(t, http.StatusOK, recorder.Code)
	var simulated types.RecommendationRunResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &simulated))

	redirect := doJSON(t, srv, http.MethodPost, "/api/recommendations/"+simulated.RunID+"/redirect", map[string]any{
		"productType": "ACCOUNT",
		"productId":   simulated.Accounts[0].ProductID,
	})
	require.Equal(t, http.StatusOK, redirect.Code, redirect.Body.String())
	assert.Contains(t, redirect.Body.String(), "http")

	analytics := doJSON(t, srv, http.MethodGet, "/api/recommendations/"+simulated.RunID+"/analytics", nil)
	require.Equal(t, http.StatusOK, analytics.Code)
	assert.Contains(t, analytics.Body.String(), `"totalRedirects":1`)
}

func TestQualityEndpointsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	latest := doJSON(t, srv, http.MethodGet, "/api/recommendations/quality/latest", nil)
	require.Equal(t, http.StatusOK, latest.Code)
	assert.Contains(t, latest.Body.String(), `"triggerSource":"none"`)

	recompute := doJSON(t, srv, http.MethodPost, "/api/recommendations/quality/recompute", nil)
	require.Equal(t, http.StatusOK, recompute.Code)
	assert.Contains(t, recompute.Body.String(), `"triggerSource":"manual-api"`)

	export := doJSON(t, srv, http.MethodGet, "/api/recommendations/quality/export", nil)
	require.Equal(t, http.StatusOK, export.Code)
	assert.Contains(t, export.Header().Get("Content-Disposition"), "quality-report-")
}

func TestCatalogEndpointsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	summary := doJSON(t, srv, http.MethodGet, "/api/catalog/summary", nil)
	require.Equal(t, http.StatusOK, summary.Code)
	assert.Contains(t, summary.Body.String(), `"totalAccounts":4`)
	assert.Contains(t, summary.Body.String(), `"totalCards":4`)

	status := doJSON(t, srv, http.MethodGet, "/api/catalog/sync/status", nil)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), "아직 동기화 실행 이력이 없습니다.")

	search := doJSON(t, srv, http.MethodGet, "/api/catalog/search?q=적금", nil)
	require.Equal(t, http.StatusOK, search.Code)
	assert.Contains(t, search.Body.String(), "acc_sh_save")

	// no auth key configured
	finlife := doJSON(t, srv, http.MethodPost, "/api/catalog/sync/finlife", nil)
	assert.Equal(t, http.StatusBadRequest, finlife.Code)
}
