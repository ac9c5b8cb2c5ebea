package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.routecast.app/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation       = problemBase + "validation-error"
	ProblemTypeLocation         = problemBase + "location-not-found"
	ProblemTypeNotFound         = problemBase + "not-found"
	ProblemTypeUnprocessable    = problemBase + "route-not-evaluable"
	ProblemTypeUnsupportedMedia = problemBase + "unsupported-media-type"
	ProblemTypeTLSRequired      = problemBase + "tls-required"
	ProblemTypeTooManyRequests  = problemBase + "too-many-requests"
	ProblemTypeUpstream         = problemBase + "upstream-error"
	ProblemTypeInternal         = problemBase + "internal-error"
	ProblemTypeUnavailable      = problemBase + "service-unavailable"
)

// NewProblem creates a Problem with the required members set.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail sets Detail.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets Instance, normally the request path.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write encodes the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewLocationNotFound creates a 400 problem for an address that did not geocode.
func NewLocationNotFound(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeLocation, "Location not found", http.StatusBadRequest, traceID)
	p.Detail = detail
	return p
}

func NewNotFound(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID)
	p.Detail = detail
	return p
}

// NewUnprocessable creates a 422 problem for a route that could not be evaluated.
func NewUnprocessable(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnprocessable, "Route not evaluable", http.StatusUnprocessableEntity, traceID)
	p.Detail = detail
	return p
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnsupportedMedia, "Unsupported media type", http.StatusUnsupportedMediaType, traceID)
	p.Detail = detail
	return p
}

func NewTooManyRequests(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID)
	p.Detail = detail
	return p
}

// NewBadGateway creates a 502 problem for a failing upstream provider.
func NewBadGateway(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUpstream, "Upstream provider error", http.StatusBadGateway, traceID)
	p.Detail = detail
	return p
}

func NewInternalError(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID)
	p.Detail = detail
	return p
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID)
	p.Detail = detail
	return p
}
