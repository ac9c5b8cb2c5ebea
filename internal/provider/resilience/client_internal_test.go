package resilience

import (
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-4"))
	assert.Zero(t, parseRetryAfter("soon"))

	date := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(date)
	assert.Greater(t, got, 58*time.Minute)
	assert.LessOrEqual(t, got, time.Hour)

	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Zero(t, parseRetryAfter(past))
}

func TestRetryAfterBackOff(t *testing.T) {
	b := &retryAfterBackOff{BackOff: backoff.NewConstantBackOff(10 * time.Millisecond), max: time.Second}

	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())

	b.pending = 200 * time.Millisecond
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff(), "override applies once")

	b.pending = time.Minute
	assert.Equal(t, time.Second, b.NextBackOff())

	stopped := &retryAfterBackOff{BackOff: &backoff.StopBackOff{}, max: time.Second, pending: time.Millisecond}
	assert.Equal(t, backoff.Stop, stopped.NextBackOff())
}
