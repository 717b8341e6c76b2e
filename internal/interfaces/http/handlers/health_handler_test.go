package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                      { return s.name }
func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	rec := serveHealth(NewHealthHandler("1.2.3", stubChecker{"postgres", errors.New("down")}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestReadiness_AllHealthy(t *testing.T) {
	rec := serveHealth(NewHealthHandler("v", stubChecker{name: "postgres"}, stubChecker{name: "redis"}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Len(t, body.Components, 2)
}

func TestReadiness_Degraded(t *testing.T) {
	rec := serveHealth(NewHealthHandler("v", stubChecker{name: "postgres"}, stubChecker{"redis", errors.New("connection refused")}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "unhealthy", body.Components["redis"].Status)
	assert.Equal(t, "connection refused", body.Components["redis"].Error)
	assert.Equal(t, "healthy", body.Components["postgres"].Status)
}

func TestReadiness_NoCheckers(t *testing.T) {
	rec := serveHealth(NewHealthHandler("v"), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

//Personal.AI order the ending
