// Package response writes JSON, attachment and problem responses.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/routecast/routecast/internal/api/middleware"
	"github.com/routecast/routecast/internal/api/models"
)

func setRequestID(w http.ResponseWriter, r *http.Request) string {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	return requestID
}

// JSON writes data as a JSON body with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 with a Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Attachment writes body as a downloadable file.
func Attachment(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Error writes a problem response for the current request.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

func LocationNotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewLocationNotFound(traceID(r), detail))
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

func Unprocessable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewUnprocessable(traceID(r), detail))
}

func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewBadGateway(traceID(r), detail))
}

func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(traceID(r), detail))
}
