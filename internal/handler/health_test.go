package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-planner/backend/api"
	"github.com/pkordes/travel-planner/backend/internal/handler"
)

// TestGetHealth_returns200WithOKStatus verifies that GET /healthz returns
// HTTP 200 and a JSON body of {"status":"ok"} without any credentials.
func TestGetHealth_returns200WithOKStatus(t *testing.T) {
	r := chi.NewRouter()
	handler.NewServer(nil, nil, nil).Routes(r, handler.Middlewares{Authenticate: rejectAll})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
}

func TestGetOpenAPI_servesEmbeddedDocument(t *testing.T) {
	r := chi.NewRouter()
	handler.NewServer(nil, nil, nil).Routes(r, handler.Middlewares{Authenticate: rejectAll})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	require.Equal(t, api.OpenAPI, rec.Body.Bytes())
	require.Contains(t, rec.Body.String(), "/api/plans/generate")
}
