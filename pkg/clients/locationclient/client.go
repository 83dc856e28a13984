package locationclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
)

// Source names which step of the fallback chain produced a coordinate
type Source string

const (
	SourceCache   Source = "cache"
	SourceLookup  Source = "lookup"
	SourceDefault Source = "default"
)

const defaultCacheTTL = 24 * time.Hour

// Client acquires the searching actor's own location through a fallback
// chain: a previously cached result, then a fresh IP-geolocation lookup,
// then a configured default coordinate. Acquisition therefore never fails;
// a degraded answer is substituted and reported through the Source
type Client struct {
	hc        *http.Client
	lookupURL string
	cachePath string
	cacheTTL  time.Duration
	fallback  model.Coordinate
	logger    *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithCachePath overrides where the last known location is cached
func WithCachePath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.cachePath = path
		}
	}
}

// WithCacheTTL overrides how long a cached location stays fresh
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.cacheTTL = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// NewClient creates a location client. lookupURL is an IP-geolocation
// endpoint answering JSON with lat and lon fields; fallback is the fixed
// default substituted when everything else fails
func NewClient(lookupURL string, fallback model.Coordinate, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		hc:        &http.Client{Timeout: 5 * time.Second},
		lookupURL: lookupURL,
		cachePath: defaultCachePath(),
		cacheTTL:  defaultCacheTTL,
		fallback:  fallback,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedLocation struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CurrentLocation walks the fallback chain and returns the first usable
// coordinate together with its source
func (c *Client) CurrentLocation(ctx context.Context) (model.Coordinate, Source) {
	if coord, ok := c.readCache(); ok {
		return coord, SourceCache
	}

	coord, err := c.lookup(ctx)
	if err == nil {
		c.writeCache(coord)
		return coord, SourceLookup
	}

	c.logger.Warn("Location lookup failed, substituting default coordinate",
		zap.Error(fmt.Errorf("%w: %w", model.ErrLocationUnavailable, err)))
	return c.fallback, SourceDefault
}

func (c *Client) lookup(ctx context.Context) (model.Coordinate, error) {
	if c.lookupURL == "" {
		return model.Coordinate{}, fmt.Errorf("no lookup endpoint configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.lookupURL, nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to build location request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("location request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to read location response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.Coordinate{}, fmt.Errorf("location request failed (status=%d)", resp.StatusCode)
	}

	var parsed struct {
		Status string  `json:"status"`
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to parse location response: %w", err)
	}
	if parsed.Status != "" && parsed.Status != "success" {
		return model.Coordinate{}, fmt.Errorf("location lookup answered status %q", parsed.Status)
	}
	if parsed.Lat == 0 && parsed.Lon == 0 {
		return model.Coordinate{}, fmt.Errorf("location lookup answered no coordinate")
	}

	return model.Coordinate{Lat: parsed.Lat, Lon: parsed.Lon}, nil
}

func (c *Client) readCache() (model.Coordinate, bool) {
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return model.Coordinate{}, false
	}

	var cached cachedLocation
	if err := json.Unmarshal(data, &cached); err != nil {
		return model.Coordinate{}, false
	}
	if time.Since(cached.FetchedAt) > c.cacheTTL {
		return model.Coordinate{}, false
	}

	return model.Coordinate{Lat: cached.Lat, Lon: cached.Lon}, true
}

// writeCache is best effort; a failed write only means the next search
// performs a fresh lookup
func (c *Client) writeCache(coord model.Coordinate) {
	data, err := json.Marshal(cachedLocation{
		Lat:       coord.Lat,
		Lon:       coord.Lon,
		FetchedAt: time.Now(),
	})
	if err != nil {
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0755); err != nil {
		c.logger.Debug("Failed to create location cache directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		c.logger.Debug("Failed to write location cache", zap.Error(err))
	}
}

func defaultCachePath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "crewfinder", "location.json")
	}
	return filepath.Join(cacheDir, "crewfinder", "location.json")
}
