package overpass_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecast/routecast/internal/clearance"
	"github.com/routecast/routecast/internal/clearance/overpass"
	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/pkg/polyline"
)

const structuresResponse = `{
  "version": 0.6,
  "elements": [
    {
      "type": "way",
      "id": 28412345,
      "tags": {"maxheight": "12'6\"", "name": "Santa Fe Underpass", "ref": "US 85"},
      "geometry": [{"lat": 39.70, "lon": -104.99}, {"lat": 39.72, "lon": -104.97}]
    },
    {
      "type": "way",
      "id": 28412346,
      "tags": {"maxheight": "4.1", "name": "Rail Bridge"},
      "geometry": [{"lat": 39.60, "lon": -104.90}]
    },
    {
      "type": "node",
      "id": 1,
      "tags": {"maxheight": "3.0"}
    },
    {
      "type": "way",
      "id": 3,
      "tags": {"highway": "primary"}
    }
  ]
}`

func TestClient_StructuresInBox(t *testing.T) {
	box := polyline.BoundingBox{South: 39.5, West: -105.1, North: 39.8, East: -104.8}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t,
			`[out:json][timeout:25];way["maxheight"](39.50000,-105.10000,39.80000,-104.80000);out tags geom;`,
			r.PostForm.Get("data"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(structuresResponse))
	}))
	defer server.Close()

	client := overpass.NewClient(overpass.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("test")),
	})

	structures, err := client.StructuresInBox(context.Background(), box)
	require.NoError(t, err)
	require.Len(t, structures, 2)

	first := structures[0]
	assert.Equal(t, int64(28412345), first.ID)
	assert.Equal(t, "Santa Fe Underpass", first.Name)
	assert.Equal(t, "US 85", first.Road)
	assert.Equal(t, `12'6"`, first.MaxHeight)
	require.Len(t, first.Nodes, 2)

	center, ok := first.Centroid()
	require.True(t, ok)
	assert.InDelta(t, 39.71, center.Lat, 1e-9)
	assert.InDelta(t, -104.98, center.Lon, 1e-9)

	assert.Equal(t, "Rail Bridge", structures[1].Road)
}

func TestClient_StructuresInBox_ServerBusy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := overpass.NewClient(overpass.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.DefaultClientConfig("test")),
	})

	_, err := client.StructuresInBox(context.Background(), polyline.BoundingBox{})
	require.Error(t, err)
	assert.ErrorIs(t, err, clearance.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "429")
}

func TestStructure_CentroidWithoutNodes(t *testing.T) {
	_, ok := clearance.Structure{ID: 1}.Centroid()
	assert.False(t, ok)
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "overpass", overpass.NewClient(overpass.ClientConfig{}).Name())
}
