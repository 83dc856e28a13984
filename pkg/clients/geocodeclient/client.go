package geocodeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/example/crewfinder/pkg/core/model"
)

// DefaultBaseURL is the public Nominatim instance. Its usage policy allows
// at most one request per second, hence the request interval below
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

const defaultRequestInterval = 1100 * time.Millisecond

// Client resolves postal addresses against a Nominatim-compatible
// geocoding service. Requests are throttled to the provider's rate limit
// and results are cached per address for the lifetime of the client, so a
// repeated search never refetches the same address. Resolved coordinates
// are transient: callers must not write them back to the resource
// directory
type Client struct {
	hc       *http.Client
	baseURL  string
	interval time.Duration

	sendMu       sync.Mutex
	lastSendTime time.Time

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	coord model.Coordinate
	err   error
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different Nominatim-compatible
// endpoint, e.g. a self-hosted instance or a test server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithRequestInterval overrides the minimum delay between provider calls
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
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

// NewClient creates a geocoding client
func NewClient(opts ...Option) *Client {
	c := &Client{
		hc:       &http.Client{Timeout: 10 * time.Second},
		baseURL:  DefaultBaseURL,
		interval: defaultRequestInterval,
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve looks up the coordinate for a postal address. It returns
// model.ErrGeocodeNotFound when the provider has no match. Both hits and
// not-found answers are cached; transport errors are not, so a transient
// failure can be retried on the next search
func (c *Client) Resolve(ctx context.Context, address string) (model.Coordinate, error) {
	c.cacheMu.Lock()
	if entry, ok := c.cache[address]; ok {
		c.cacheMu.Unlock()
		return entry.coord, entry.err
	}
	c.cacheMu.Unlock()

	coord, err := c.fetch(ctx, address)
	if err != nil && err != model.ErrGeocodeNotFound {
		return model.Coordinate{}, err
	}

	c.cacheMu.Lock()
	c.cache[address] = cacheEntry{coord: coord, err: err}
	c.cacheMu.Unlock()

	return coord, err
}

func (c *Client) fetch(ctx context.Context, address string) (model.Coordinate, error) {
	c.throttle()

	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", c.baseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "crewfinder")

	resp, err := c.hc.Do(req)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to read geocode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return model.Coordinate{}, fmt.Errorf("geocode request failed (status=%d)", resp.StatusCode)
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to parse geocode response: %w", err)
	}

	if len(results) == 0 {
		return model.Coordinate{}, model.ErrGeocodeNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid latitude in geocode response: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid longitude in geocode response: %w", err)
	}

	return model.Coordinate{Lat: lat, Lon: lon}, nil
}

// throttle enforces the minimum interval between provider calls
func (c *Client) throttle() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.lastSendTime.IsZero() {
		if elapsed := time.Since(c.lastSendTime); elapsed < c.interval {
			time.Sleep(c.interval - elapsed)
		}
	}
	c.lastSendTime = time.Now()
}
