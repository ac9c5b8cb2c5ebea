// Package valkeystore shares cached weather observations and alerts across
// API and worker instances through Valkey.
package valkeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/routecast/routecast/internal/weather"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "routecast:weather"

// Store implements weather.Store on top of a Valkey client.
type Store struct {
	client valkey.Client
	prefix string
}

var _ weather.Store = (*Store)(nil)

// New creates a store. An empty prefix selects DefaultPrefix.
func New(client valkey.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Options builds client options from either a URL ("redis://host:6379/0")
// or a bare host:port address.
func Options(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	if addr == "" {
		return valkey.ClientOption{}, fmt.Errorf("valkey address is empty")
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// Connect creates a client for addr and verifies it with PING.
func Connect(ctx context.Context, addr string) (valkey.Client, error) {
	opt, err := Options(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid valkey address: %w", err)
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("creating valkey client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging valkey: %w", err)
	}

	return client, nil
}

// GetObservation returns the cached observation for a grid key.
func (s *Store) GetObservation(ctx context.Context, key string) (*weather.Observation, bool, error) {
	var obs weather.Observation
	ok, err := s.get(ctx, s.ObservationKey(key), &obs)
	if err != nil || !ok {
		return nil, false, err
	}
	return &obs, true, nil
}

// SaveObservation caches an observation for ttl.
func (s *Store) SaveObservation(ctx context.Context, key string, obs *weather.Observation, ttl time.Duration) error {
	return s.set(ctx, s.ObservationKey(key), obs, ttl)
}

// GetAlerts returns the cached alert list for a grid key.
func (s *Store) GetAlerts(ctx context.Context, key string) ([]weather.Alert, bool, error) {
	var alerts []weather.Alert
	ok, err := s.get(ctx, s.AlertsKey(key), &alerts)
	if err != nil || !ok {
		return nil, false, err
	}
	if alerts == nil {
		alerts = []weather.Alert{}
	}
	return alerts, true, nil
}

// SaveAlerts caches an alert list for ttl.
func (s *Store) SaveAlerts(ctx context.Context, key string, alerts []weather.Alert, ttl time.Duration) error {
	return s.set(ctx, s.AlertsKey(key), alerts, ttl)
}

// ObservationKey is the Valkey key holding the observation for a grid key.
func (s *Store) ObservationKey(key string) string {
	return s.prefix + ":obs:" + key
}

// AlertsKey is the Valkey key holding the alerts for a grid key.
func (s *Store) AlertsKey(key string) string {
	return s.prefix + ":alerts:" + key
}

func (s *Store) get(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	builder := s.client.B().Set().Key(key).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}
