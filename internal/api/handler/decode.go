package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/api/response"
)

const maxRequestBodySize = 64 << 10

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a rejected request body; it carries the problem detail and
// any per-field errors.
type requestError struct {
	detail string
	fields []models.FieldError
}

func (e *requestError) Error() string {
	return e.detail
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return &requestError{detail: "request body must contain a single JSON object"}
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &requestError{detail: "invalid request body"}
		}
		return &requestError{detail: "request validation failed", fields: fieldErrors(verrs)}
	}
	return nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return &requestError{detail: "request body is empty"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &requestError{detail: "request body is not valid JSON"}
	case errors.As(err, &typeErr):
		return &requestError{
			detail: "request body has a field of the wrong type",
			fields: []models.FieldError{{Field: typeErr.Field, Message: "must be " + typeErr.Type.String(), Code: "type"}},
		}
	case errors.As(err, &maxErr):
		return &requestError{detail: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return &requestError{
			detail: "request body has an unknown field",
			fields: []models.FieldError{{Field: field, Message: "is not a recognised field", Code: "unknown"}},
		}
	default:
		return &requestError{detail: "invalid request body"}
	}
}

func fieldErrors(verrs validator.ValidationErrors) []models.FieldError {
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "RouteWeatherRequest.stops[0].location"; drop the struct name.
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, models.FieldError{Field: field, Message: fieldMessage(fe), Code: fe.Tag()})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "must have at most " + fe.Param() + " items"
		}
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must be an RFC 3339 timestamp"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		response.BadRequest(w, r, reqErr.detail, reqErr.fields)
		return
	}
	response.BadRequest(w, r, "invalid request body", nil)
}
