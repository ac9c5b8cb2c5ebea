// Package mapbox provides a client for the Mapbox Geocoding API (v5 mapbox.places).
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/geocoding"
	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/pkg/polyline"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "mapbox-geocoding"

	// DefaultBaseURL is the Mapbox API base URL.
	DefaultBaseURL = "https://api.mapbox.com"

	// DefaultCountry restricts forward lookups to the United States, where NOAA data exists.
	DefaultCountry = "US"
)

// ClientConfig holds configuration for the Mapbox Geocoding client.
type ClientConfig struct {
	// AccessToken is the Mapbox access token (required).
	AccessToken string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// Country is the ISO country filter for forward lookups (optional, defaults to US).
	Country string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Mapbox Geocoding API client.
type Client struct {
	accessToken string
	baseURL     string
	country     string
	httpClient  *resilience.Client
	logger      zerolog.Logger
}

// NewClient creates a new Mapbox Geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	country := cfg.Country
	if country == "" {
		country = DefaultCountry
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = 20 * time.Second
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		country:     country,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode returns the best match for a free-text place.
func (c *Client) Geocode(ctx context.Context, query string) (*geocoding.Place, error) {
	if strings.TrimSpace(query) == "" {
		return nil, geocoding.ErrInvalidQuery
	}

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("limit", "1")
	params.Set("country", c.country)

	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		c.baseURL, url.PathEscape(query), params.Encode())

	return c.lookup(ctx, u)
}

// ReverseGeocode returns the city or locality containing the point.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*geocoding.Place, error) {
	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("types", "place,locality")
	params.Set("limit", "1")

	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%.6f,%.6f.json?%s",
		c.baseURL, lon, lat, params.Encode())

	return c.lookup(ctx, u)
}

func (c *Client) lookup(ctx context.Context, u string) (*geocoding.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", geocoding.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, geocoding.ErrLocationNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, geocoding.ErrInvalidQuery
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status code: %d", geocoding.ErrProviderUnavailable, resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, geocoding.ErrLocationNotFound
	}

	return toPlace(&fc.Features[0])
}

// toPlace converts a Mapbox feature to the domain model.
func toPlace(f *feature) (*geocoding.Place, error) {
	if len(f.Center) < 2 {
		return nil, fmt.Errorf("feature %q has no center", f.ID)
	}

	p := &geocoding.Place{
		Coordinate: polyline.Coordinate{Lat: f.Center[1], Lon: f.Center[0]},
		Name:       f.Text,
		FullName:   f.PlaceName,
		FetchedAt:  time.Now(),
	}

	for _, ctxItem := range f.Context {
		if strings.HasPrefix(ctxItem.ID, "region") {
			p.Region = regionCode(ctxItem.ShortCode)
			break
		}
	}

	return p, nil
}

// regionCode strips the country prefix from an ISO 3166-2 code ("US-CO" -> "CO").
func regionCode(shortCode string) string {
	if i := strings.IndexByte(shortCode, '-'); i >= 0 {
		return shortCode[i+1:]
	}
	return shortCode
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	PlaceName string    `json:"place_name"`
	Center    []float64 `json:"center"`
	Context   []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		ShortCode string `json:"short_code"`
	} `json:"context"`
}
