package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/routecast/routecast/internal/api/models"
)

// RateLimitConfig is a fixed request budget per client IP per window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// ExpensiveRateLimit guards route evaluation, which fans out to every
	// upstream provider.
	ExpensiveRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit covers reads, favorites and geocoding.
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits requests per client IP. Behind a proxy, run chi's
// RealIP middleware first so X-Forwarded-For is honoured.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the reset time; a full window is the upper bound.
			w.Header().Set("Retry-After", retryAfter)
			models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
				WithInstance(r.URL.Path).
				Write(w)
		}),
	)
}
