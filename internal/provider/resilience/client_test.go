package resilience_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecast/routecast/internal/provider/resilience"
)

// fastConfig retries quickly and never trips unless trip is given.
func fastConfig(name string, trip func(gobreaker.Counts) bool) resilience.ClientConfig {
	if trip == nil {
		trip = func(gobreaker.Counts) bool { return false }
	}
	cb := resilience.DefaultCircuitBreakerConfig(name)
	cb.ReadyToTrip = trip
	return resilience.ClientConfig{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		CircuitBreaker:  &cb,
	}
}

func get(t *testing.T, client *resilience.Client, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return client.Do(req)
}

func TestClient_SuccessfulRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{}}`))
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.DefaultClientConfig("noaa"))
	assert.Equal(t, "noaa", client.Name())

	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, client.CircuitBreakerState())
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if attempts.Add(1) < 3 {
					w.WriteHeader(status)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := resilience.NewClient(fastConfig("retry", nil))
			resp, err := get(t, client, server.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, int32(3), attempts.Load())
		})
	}
}

func TestClient_ReturnsLastResponseWhenRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	cfg := fastConfig("exhausted", nil)
	cfg.MaxRetries = 2
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "bad gateway", string(body))
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("not-found", nil))
	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Zero(t, client.CircuitBreakerCounts().TotalFailures)
}

func TestClient_RetryAfterIsCappedAtMaxInterval(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := fastConfig("retry-after", nil)
	cfg.MaxInterval = 60 * time.Millisecond

	start := time.Now()
	resp, err := get(t, resilience.NewClient(cfg), server.URL)
	elapsed := time.Since(start)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestClient_OpenCircuitFailsFast(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := fastConfig("tripping", func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 2 })
	cfg.MaxRetries = 1
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())

	_, err = get(t, client, server.URL)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	start := time.Now()
	_, err = resilience.NewClient(fastConfig("deadline", nil)).Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_RetryResendsBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	query := `[out:json];way(39.7,-105.0,39.8,-104.9)["maxheight"];out;`
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, strings.NewReader(query))
	require.NoError(t, err)

	resp, err := resilience.NewClient(fastConfig("overpass", nil)).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{query, query}, bodies)
}

func TestClient_DefaultUserAgent(t *testing.T) {
	agents := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
	}))
	defer server.Close()

	cfg := fastConfig("agent", nil)
	cfg.UserAgent = "Routecast/2.0 (ops@routecast.app)"
	client := resilience.NewClient(cfg)

	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, cfg.UserAgent, <-agents)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "custom", <-agents)
}

func TestClient_DiscardedResponsesReleaseConnection(t *testing.T) {
	var attempts, conns atomic.Int32
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("try later"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	server.Start()
	defer server.Close()

	resp, err := get(t, resilience.NewClient(fastConfig("keepalive", nil)), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(1), conns.Load())
}

func TestClient_RecordsOutcomeInRegistry(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	cfg := fastConfig("mapbox-directions", nil)
	cfg.MaxRetries = 1
	cfg.Registry = registry
	client := resilience.NewClient(cfg)
	require.Equal(t, 1, registry.ProviderCount())

	resp, err := get(t, client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	health := registry.GetHealth("mapbox-directions")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
	assert.Positive(t, health.LastLatency)

	fail.Store(true)
	resp, err = get(t, client, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	health = registry.GetHealth("mapbox-directions")
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "503")
}

func TestDefaultReadyToTrip(t *testing.T) {
	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"five consecutive failures", gobreaker.Counts{Requests: 5, TotalFailures: 5, ConsecutiveFailures: 5}, true},
		{"four consecutive failures", gobreaker.Counts{Requests: 4, TotalFailures: 4, ConsecutiveFailures: 4}, false},
		{"half of ten failed", gobreaker.Counts{Requests: 10, TotalFailures: 5, ConsecutiveFailures: 1}, true},
		{"four of ten failed", gobreaker.Counts{Requests: 10, TotalFailures: 4, ConsecutiveFailures: 2}, false},
		{"too few samples for ratio", gobreaker.Counts{Requests: 9, TotalFailures: 8, ConsecutiveFailures: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.DefaultReadyToTrip(tt.counts))
		})
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := resilience.DefaultClientConfig("noaa")

	assert.Equal(t, "noaa", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.MaxInterval)
	require.NotNil(t, cfg.CircuitBreaker)
	assert.Equal(t, 30*time.Second, cfg.CircuitBreaker.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.CircuitBreaker.Interval)
}

func TestStatusError(t *testing.T) {
	var err error = &resilience.StatusError{StatusCode: http.StatusServiceUnavailable}
	assert.Equal(t, "provider returned 503 Service Unavailable", err.Error())

	var statusErr *resilience.StatusError
	assert.True(t, errors.As(err, &statusErr))
}
