package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebSocketHandlerRejectsNonGet(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/ws", nil)
	w := httptest.NewRecorder()

	WebSocketHandler(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthHandler(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	HealthHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
	assert.Equal(t, "text/plain", w.Result().Header.Get("Content-Type"))
}

func TestSetupRoutesServesMetrics(t *testing.T) {
	mux := SetupRoutes()

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wirechat_")
}
