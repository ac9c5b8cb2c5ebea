package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/api/models"
)

// Recovery turns a handler panic into a logged 500 problem response.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rvr)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Str("route", routePattern(r)).
					Interface("panic", rvr).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				models.NewInternalError(requestID, "an unexpected error occurred").
					WithInstance(r.URL.Path).
					Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
