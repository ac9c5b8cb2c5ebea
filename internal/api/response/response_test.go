package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/routecast/routecast/internal/api/middleware"
	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/api/response"
)

// requestWithID returns a request whose context carries a request ID.
func requestWithID(t *testing.T, method, path string) *http.Request {
	t.Helper()
	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, http.NoBody))
	return processed
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req := requestWithID(t, http.MethodGet, "/v1/routes/history")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if id := rec.Header().Get("X-Request-Id"); !strings.HasPrefix(id, "req_") {
		t.Errorf("expected X-Request-Id header, got %q", id)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody), http.StatusOK, nil)

	if id := rec.Header().Get("X-Request-Id"); id != "" {
		t.Errorf("expected no X-Request-Id header, got %q", id)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestCreated_SetsLocation(t *testing.T) {
	req := requestWithID(t, http.MethodPost, "/v1/routes/favorites")
	rec := httptest.NewRecorder()

	response.Created(rec, req, "/v1/routes/favorites/fav-1", map[string]string{"id": "fav-1"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/routes/favorites/fav-1" {
		t.Errorf("unexpected Location %q", loc)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header to be set")
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	response.NoContent(rec, requestWithID(t, http.MethodDelete, "/v1/routes/favorites/fav-1"))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header to be set")
	}
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	body := []byte("<kml/>")
	response.Attachment(rec, requestWithID(t, http.MethodGet, "/v1/routes/r1/kml"),
		"application/vnd.google-earth.kml+xml", "denver-to-vail.kml", body)

	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="denver-to-vail.kml"` {
		t.Errorf("unexpected Content-Disposition %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "6" {
		t.Errorf("unexpected Content-Length %q", got)
	}
	if rec.Body.String() != "<kml/>" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestProblemHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, *http.Request)
		status int
		typ    string
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) { response.BadRequest(w, r, "bad", nil) }, http.StatusBadRequest, models.ProblemTypeValidation},
		{"location", func(w http.ResponseWriter, r *http.Request) { response.LocationNotFound(w, r, "nowhere") }, http.StatusBadRequest, models.ProblemTypeLocation},
		{"not found", func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "gone") }, http.StatusNotFound, models.ProblemTypeNotFound},
		{"unprocessable", func(w http.ResponseWriter, r *http.Request) { response.Unprocessable(w, r, "no path") }, http.StatusUnprocessableEntity, models.ProblemTypeUnprocessable},
		{"bad gateway", func(w http.ResponseWriter, r *http.Request) { response.BadGateway(w, r, "mapbox") }, http.StatusBadGateway, models.ProblemTypeUpstream},
		{"internal", func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "oops") }, http.StatusInternalServerError, models.ProblemTypeInternal},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "db") }, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithID(t, http.MethodGet, "/v1/routes/abc")
			rec := httptest.NewRecorder()
			tt.write(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("expected problem content type, got %q", ct)
			}

			var p models.Problem
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatalf("decode problem: %v", err)
			}
			if p.Type != tt.typ {
				t.Errorf("expected type %q, got %q", tt.typ, p.Type)
			}
			if p.Instance != "/v1/routes/abc" {
				t.Errorf("expected instance to be the request path, got %q", p.Instance)
			}
			if p.TraceID != rec.Header().Get("X-Request-Id") || p.TraceID == "" {
				t.Errorf("trace id %q does not match header", p.TraceID)
			}
		})
	}
}
