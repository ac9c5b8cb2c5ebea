package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routecast/routecast/internal/api/middleware"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var seen string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/routes/history", http.NoBody))

	assert.True(t, strings.HasPrefix(seen, "req_"))
	assert.Equal(t, seen, w.Header().Get("X-Request-Id"))
}

func TestRequestID_PreservesClientID(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mobile-7f3a", middleware.GetRequestID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-Id", "mobile-7f3a")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "mobile-7f3a", w.Header().Get("X-Request-Id"))
}

func TestRequestID_ReplacesOversizedClientID(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-Id"), "req_"))
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}

func TestRequestID_UniqueIDs(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

		id := w.Header().Get("X-Request-Id")
		assert.False(t, ids[id], "duplicate request ID generated: %s", id)
		ids[id] = true
	}
}
