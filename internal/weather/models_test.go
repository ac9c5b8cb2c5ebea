package weather_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routecast/routecast/internal/weather"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in       string
		expected weather.Severity
	}{
		{"Extreme", weather.SeverityExtreme},
		{"severe", weather.SeveritySevere},
		{" Moderate ", weather.SeverityModerate},
		{"MINOR", weather.SeverityMinor},
		{"", weather.SeverityUnknown},
		{"Catastrophic", weather.SeverityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, weather.ParseSeverity(tt.in))
		})
	}
}

func TestSeverity_Rank(t *testing.T) {
	order := []weather.Severity{
		weather.SeverityUnknown,
		weather.SeverityMinor,
		weather.SeverityModerate,
		weather.SeveritySevere,
		weather.SeverityExtreme,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Rank(), order[i-1].Rank(), "%s should outrank %s", order[i], order[i-1])
	}

	assert.True(t, weather.SeverityExtreme.IsSevere())
	assert.True(t, weather.SeveritySevere.IsSevere())
	assert.False(t, weather.SeverityModerate.IsSevere())
	assert.False(t, weather.Severity("bogus").IsSevere())
}

func TestHasSevere(t *testing.T) {
	assert.False(t, weather.HasSevere(nil))
	assert.False(t, weather.HasSevere([]weather.Alert{{Severity: weather.SeverityMinor}}))
	assert.True(t, weather.HasSevere([]weather.Alert{
		{Severity: weather.SeverityMinor},
		{Severity: weather.SeverityExtreme},
	}))
}

func TestTruncateDescription(t *testing.T) {
	short := "Blowing snow expected."
	assert.Equal(t, short, weather.TruncateDescription(short))

	long := strings.Repeat("é", weather.MaxAlertDescription+20)
	out := weather.TruncateDescription(long)
	assert.Equal(t, weather.MaxAlertDescription, len([]rune(out)))
}
