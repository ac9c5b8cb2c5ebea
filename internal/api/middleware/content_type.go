package middleware

import (
	"mime"
	"net/http"

	"github.com/routecast/routecast/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that write KML or problem documents override it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects POST, PUT and PATCH bodies declared as anything other
// than application/json. A missing Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
					models.NewUnsupportedMediaType(GetRequestID(r.Context()), "Content-Type must be application/json").
						WithInstance(r.URL.Path).
						Write(w)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
