// Package noaa provides a client for the National Weather Service API (api.weather.gov).
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "noaa"

	// DefaultBaseURL is the National Weather Service API base URL.
	DefaultBaseURL = "https://api.weather.gov"

	// DefaultUserAgent identifies the application to NWS, which rejects anonymous clients.
	DefaultUserAgent = "Routecast/1.0 (ops@routecast.app)"

	// HourlyPeriods is the number of hourly forecast periods kept per point.
	HourlyPeriods = 12

	// MaxAlerts is the number of active alerts kept per point.
	MaxAlerts = 5

	sunrise = "06:30"
	sunset  = "18:30"
)

// ClientConfig holds configuration for the NOAA client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to api.weather.gov).
	BaseURL string

	// UserAgent is sent with every request (optional).
	UserAgent string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a National Weather Service API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *resilience.Client
	logger     zerolog.Logger

	// Gridpoint forecast URLs keyed by rounded coordinate. NWS grid assignments are static.
	mu          sync.RWMutex
	hourlyByKey map[string]string
}

// NewClient creates a new NOAA client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:     baseURL,
		userAgent:   userAgent,
		httpClient:  httpClient,
		logger:      cfg.Logger,
		hourlyByKey: make(map[string]string),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentWeather resolves the NWS gridpoint for a location and returns the
// first hourly period as the observation, with the next periods attached.
func (c *Client) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	hourlyURL, err := c.hourlyForecastURL(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	var forecast forecastResponse
	if err := c.getJSON(ctx, hourlyURL, &forecast); err != nil {
		return nil, fmt.Errorf("fetching hourly forecast: %w", err)
	}

	if len(forecast.Properties.Periods) == 0 {
		return nil, weather.ErrNoDataForLocation
	}

	return toObservation(lat, lon, forecast.Properties.Periods), nil
}

// GetAlerts returns active alerts for the point, most relevant first as ordered by NWS.
func (c *Client) GetAlerts(ctx context.Context, lat, lon float64) ([]weather.Alert, error) {
	url := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", c.baseURL, lat, lon)

	var resp alertsResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetching alerts: %w", err)
	}

	alerts := make([]weather.Alert, 0, MaxAlerts)
	for _, f := range resp.Features {
		if len(alerts) == MaxAlerts {
			break
		}
		p := f.Properties
		id := p.ID
		if id == "" {
			id = f.ID
		}
		alerts = append(alerts, weather.Alert{
			ID:          id,
			Headline:    p.Headline,
			Severity:    weather.ParseSeverity(p.Severity),
			Event:       p.Event,
			Description: weather.TruncateDescription(p.Description),
			Areas:       p.AreaDesc,
		})
	}

	return alerts, nil
}

// hourlyForecastURL looks up (and memoizes) the gridpoint hourly forecast URL.
func (c *Client) hourlyForecastURL(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)

	c.mu.RLock()
	if u, ok := c.hourlyByKey[key]; ok {
		c.mu.RUnlock()
		return u, nil
	}
	c.mu.RUnlock()

	var points pointsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/points/%s", c.baseURL, key), &points); err != nil {
		return "", fmt.Errorf("resolving gridpoint: %w", err)
	}
	if points.Properties.ForecastHourly == "" {
		return "", weather.ErrNoDataForLocation
	}

	c.mu.Lock()
	c.hourlyByKey[key] = points.Properties.ForecastHourly
	c.mu.Unlock()

	return points.Properties.ForecastHourly, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return weather.ErrNoDataForLocation
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// toObservation converts hourly periods to the domain model.
func toObservation(lat, lon float64, periods []period) *weather.Observation {
	first := periods[0]
	obs := &weather.Observation{
		Lat:             lat,
		Lon:             lon,
		Temperature:     first.Temperature,
		TemperatureUnit: first.TemperatureUnit,
		Conditions:      first.ShortForecast,
		WindSpeed:       first.WindSpeed,
		WindDirection:   first.WindDirection,
		Humidity:        first.RelativeHumidity.intPtr(),
		IsDaytime:       first.IsDaytime,
		Icon:            first.Icon,
		Sunrise:         sunrise,
		Sunset:          sunset,
		FetchedAt:       time.Now(),
	}

	n := min(len(periods), HourlyPeriods)
	obs.Hourly = make([]weather.HourlyForecast, 0, n)
	for _, p := range periods[:n] {
		obs.Hourly = append(obs.Hourly, weather.HourlyForecast{
			Time:                p.StartTime,
			Temperature:         p.Temperature,
			Conditions:          p.ShortForecast,
			WindSpeed:           p.WindSpeed,
			PrecipitationChance: p.ProbabilityOfPrecipitation.intPtr(),
			Icon:                p.Icon,
		})
	}

	return obs
}

// NWS API response structures.

type pointsResponse struct {
	Properties struct {
		Forecast       string `json:"forecast"`
		ForecastHourly string `json:"forecastHourly"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []period `json:"periods"`
	} `json:"properties"`
}

type period struct {
	Number                     int           `json:"number"`
	StartTime                  string        `json:"startTime"`
	EndTime                    string        `json:"endTime"`
	IsDaytime                  bool          `json:"isDaytime"`
	Temperature                int           `json:"temperature"`
	TemperatureUnit            string        `json:"temperatureUnit"`
	WindSpeed                  string        `json:"windSpeed"`
	WindDirection              string        `json:"windDirection"`
	Icon                       string        `json:"icon"`
	ShortForecast              string        `json:"shortForecast"`
	ProbabilityOfPrecipitation quantityValue `json:"probabilityOfPrecipitation"`
	RelativeHumidity           quantityValue `json:"relativeHumidity"`
}

// quantityValue is the NWS {"unitCode": ..., "value": ...} wrapper; value may be null.
type quantityValue struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

func (q quantityValue) intPtr() *int {
	if q.Value == nil {
		return nil
	}
	v := int(*q.Value)
	return &v
}

type alertsResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			ID          string `json:"id"`
			AreaDesc    string `json:"areaDesc"`
			Severity    string `json:"severity"`
			Event       string `json:"event"`
			Headline    string `json:"headline"`
			Description string `json:"description"`
		} `json:"properties"`
	} `json:"features"`
}
