// Package mapbox provides a client for the Mapbox Directions API (driving profile).
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "mapbox-directions"

	// DefaultBaseURL is the Mapbox API base URL.
	DefaultBaseURL = "https://api.mapbox.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxCoordinates is the Directions API limit for the driving profile.
	MaxCoordinates = 25
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Mapbox Directions client.
type ClientConfig struct {
	// AccessToken is the Mapbox access token (required).
	AccessToken string

	// BaseURL is the API base URL (optional, defaults to api.mapbox.com).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 30s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Mapbox Directions API client.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  HTTPDoer
	logger      zerolog.Logger
}

// NewClient creates a new Mapbox Directions client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves a driving route through origin, stops and destination.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	points := req.Points()
	for i, p := range points {
		if !p.Valid() {
			return nil, &routing.Error{
				Provider: ProviderName,
				Code:     "INVALID_COORDINATES",
				Message:  fmt.Sprintf("point %d has invalid coordinates", i),
				Err:      routing.ErrInvalidCoordinates,
			}
		}
	}
	if len(points) > MaxCoordinates {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "TOO_MANY_STOPS",
			Message:  fmt.Sprintf("at most %d points per route", MaxCoordinates),
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	// Mapbox uses lon,lat order separated by semicolons.
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat)
	}

	q := url.Values{}
	q.Set("access_token", c.accessToken)
	q.Set("geometries", "polyline")
	q.Set("overview", "full")
	q.Set("alternatives", fmt.Sprintf("%t", req.Alternatives))

	u := fmt.Sprintf("%s/directions/v5/mapbox/driving/%s?%s",
		c.baseURL, strings.Join(coords, ";"), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Int("points", len(points)).
		Bool("alternatives", req.Alternatives).
		Msg("requesting directions from Mapbox")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var dirResp directionsResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(respBody, &dirResp)
		return nil, handleErrorResponse(resp.StatusCode, &dirResp)
	}

	if err := json.Unmarshal(respBody, &dirResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if dirResp.Code != "" && dirResp.Code != "Ok" {
		return nil, handleErrorResponse(resp.StatusCode, &dirResp)
	}
	if len(dirResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	result := toDirectionsResponse(&dirResp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from Mapbox")

	return result, nil
}

// handleErrorResponse maps Mapbox status codes and response codes to domain errors.
func handleErrorResponse(statusCode int, body *directionsResponse) error {
	switch {
	case body.Code == "NoRoute" || body.Code == "NoSegment":
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  nonEmpty(body.Message, "no route found between the given points"),
			Err:      routing.ErrNoRouteFound,
		}
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check access token configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	case statusCode == http.StatusUnprocessableEntity || body.Code == "InvalidInput":
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  nonEmpty(body.Message, "invalid routing request"),
			Err:      routing.ErrInvalidCoordinates,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  nonEmpty(body.Message, fmt.Sprintf("routing provider returned status %d", statusCode)),
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// toDirectionsResponse converts the Mapbox response to the domain model.
func toDirectionsResponse(resp *directionsResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))

	for i := range resp.Routes {
		r := &resp.Routes[i]
		route := routing.Route{
			GeometryPolyline: r.Geometry,
			DistanceMeters:   r.Distance,
			DurationSeconds:  r.Duration,
		}

		summaries := make([]string, 0, len(r.Legs))
		for _, leg := range r.Legs {
			if leg.Summary != "" {
				summaries = append(summaries, leg.Summary)
			}
		}
		route.Summary = strings.Join(summaries, "; ")

		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// directionsResponse represents the Mapbox Directions API response.
type directionsResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message,omitempty"`
	Routes  []mbRoute `json:"routes"`
}

type mbRoute struct {
	Geometry   string  `json:"geometry"`
	Distance   float64 `json:"distance"`
	Duration   float64 `json:"duration"`
	WeightName string  `json:"weight_name,omitempty"`
	Legs       []mbLeg `json:"legs"`
}

type mbLeg struct {
	Summary  string  `json:"summary"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}
