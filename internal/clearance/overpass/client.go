// Package overpass queries OpenStreetMap through the Overpass API for ways
// tagged with maxheight.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/clearance"
	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/pkg/polyline"
)

const (
	// ProviderName identifies this clearance provider.
	ProviderName = "overpass"

	// DefaultBaseURL is the public Overpass interpreter endpoint.
	DefaultBaseURL = "https://overpass-api.de/api/interpreter"

	// DefaultQueryTimeout is the server-side query timeout in seconds.
	DefaultQueryTimeout = 25

	// userAgent identifies Routecast to the public interpreter.
	userAgent = "Routecast/2.0 (+https://routecast.app)"
)

// ClientConfig holds configuration for the Overpass client.
type ClientConfig struct {
	// BaseURL is the interpreter endpoint (optional).
	BaseURL string

	// QueryTimeout is the Overpass [timeout:N] setting in seconds (optional).
	QueryTimeout int

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Overpass API client.
type Client struct {
	baseURL      string
	queryTimeout int
	httpClient   *resilience.Client
	logger       zerolog.Logger
}

// NewClient creates a new Overpass client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	queryTimeout := cfg.QueryTimeout
	if queryTimeout == 0 {
		queryTimeout = DefaultQueryTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = time.Duration(queryTimeout+5) * time.Second
		clientCfg.UserAgent = userAgent
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:      baseURL,
		queryTimeout: queryTimeout,
		httpClient:   httpClient,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Query builds the Overpass QL for maxheight ways inside the box.
func (c *Client) Query(box polyline.BoundingBox) string {
	return fmt.Sprintf(
		`[out:json][timeout:%d];way["maxheight"](%.5f,%.5f,%.5f,%.5f);out tags geom;`,
		c.queryTimeout, box.South, box.West, box.North, box.East,
	)
}

// StructuresInBox returns every maxheight-tagged way inside the box.
func (c *Client) StructuresInBox(ctx context.Context, box polyline.BoundingBox) ([]clearance.Structure, error) {
	form := url.Values{}
	form.Set("data", c.Query(box))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", clearance.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", clearance.ErrProviderUnavailable, resp.StatusCode)
	}

	var out overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	structures := make([]clearance.Structure, 0, len(out.Elements))
	for i := range out.Elements {
		el := &out.Elements[i]
		if el.Type != "way" || el.Tags["maxheight"] == "" {
			continue
		}

		s := clearance.Structure{
			ID:        el.ID,
			Name:      el.Tags["name"],
			Road:      roadName(el.Tags),
			MaxHeight: el.Tags["maxheight"],
			Nodes:     make([]polyline.Coordinate, 0, len(el.Geometry)),
		}
		for _, g := range el.Geometry {
			s.Nodes = append(s.Nodes, polyline.Coordinate{Lat: g.Lat, Lon: g.Lon})
		}
		structures = append(structures, s)
	}

	c.logger.Debug().
		Int("structures", len(structures)).
		Str("bbox", fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", box.South, box.West, box.North, box.East)).
		Msg("fetched height restrictions")

	return structures, nil
}

// roadName prefers a route reference ("I 70") over a street name.
func roadName(tags map[string]string) string {
	if ref := tags["ref"]; ref != "" {
		return ref
	}
	return tags["name"]
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
}
