package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecast/routecast/internal/api/models"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_test123").
		WithDetail("origin is required").
		WithInstance("/v1/routes/weather").
		WithErrors([]models.FieldError{{Field: "origin", Message: "is required", Code: "required"}})

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "origin is required", p.Detail)
	assert.Equal(t, "/v1/routes/weather", p.Instance)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "required", p.Errors[0].Code)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "vehicleType", Message: "must be one of car suv truck semi rv motorcycle trailer"},
	}).WithInstance("/v1/routes/weather")

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "Validation error", result.Title)
	assert.Equal(t, "invalid input", result.Detail)
	assert.Equal(t, "/v1/routes/weather", result.Instance)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "vehicleType", result.Errors[0].Field)
}

func TestProblem_WriteWithoutTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	models.NewNotFound("", "route report not found").Write(w)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("X-Request-Id"))
}

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name    string
		problem *models.Problem
		typ     string
		title   string
		status  int
	}{
		{"bad request", models.NewBadRequest("req_1", "d", nil), models.ProblemTypeValidation, "Validation error", http.StatusBadRequest},
		{"location", models.NewLocationNotFound("req_1", "d"), models.ProblemTypeLocation, "Location not found", http.StatusBadRequest},
		{"not found", models.NewNotFound("req_1", "d"), models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"unprocessable", models.NewUnprocessable("req_1", "d"), models.ProblemTypeUnprocessable, "Route not evaluable", http.StatusUnprocessableEntity},
		{"media type", models.NewUnsupportedMediaType("req_1", "d"), models.ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType},
		{"rate limit", models.NewTooManyRequests("req_1", "d"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"bad gateway", models.NewBadGateway("req_1", "d"), models.ProblemTypeUpstream, "Upstream provider error", http.StatusBadGateway},
		{"internal", models.NewInternalError("req_1", "d"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"unavailable", models.NewServiceUnavailable("req_1", "d"), models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.title, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "d", tt.problem.Detail)
			assert.Equal(t, "req_1", tt.problem.TraceID)
		})
	}
}

func TestTimestamp_JSON(t *testing.T) {
	ts := models.Timestamp(time.Date(2026, 1, 10, 8, 30, 0, 0, time.FixedZone("MST", -7*3600)))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-10T15:30:00Z"`, string(data))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ts.Time().Equal(back.Time()))

	require.NoError(t, json.Unmarshal([]byte("null"), &back))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &back))
}
