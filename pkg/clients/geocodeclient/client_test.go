package geocodeclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/crewfinder/pkg/core/model"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(
		WithBaseURL(srv.URL),
		WithRequestInterval(time.Millisecond),
		WithHTTPClient(srv.Client()),
	)
}

func TestResolve_Success(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "Bahnhofstrasse 1, 8001, Zurich", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat": "47.3769", "lon": "8.5417"}]`))
	})

	coord, err := testClient(srv).Resolve(context.Background(), "Bahnhofstrasse 1, 8001, Zurich")
	require.NoError(t, err)
	assert.InDelta(t, 47.3769, coord.Lat, 1e-9)
	assert.InDelta(t, 8.5417, coord.Lon, 1e-9)
}

func TestResolve_NotFound(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := testClient(srv).Resolve(context.Background(), "Nowhere 99")
	assert.ErrorIs(t, err, model.ErrGeocodeNotFound)
}

func TestResolve_ServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := testClient(srv).Resolve(context.Background(), "Bahnhofstrasse 1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrGeocodeNotFound)
}

func TestResolve_CachesResults(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"lat": "47.3769", "lon": "8.5417"}]`))
	})

	client := testClient(srv)
	for i := 0; i < 3; i++ {
		_, err := client.Resolve(context.Background(), "Bahnhofstrasse 1")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_CachesNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	})

	client := testClient(srv)
	for i := 0; i < 2; i++ {
		_, err := client.Resolve(context.Background(), "Nowhere 99")
		assert.ErrorIs(t, err, model.ErrGeocodeNotFound)
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_DoesNotCacheTransportErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"lat": "47.3769", "lon": "8.5417"}]`))
	})

	client := testClient(srv)

	_, err := client.Resolve(context.Background(), "Bahnhofstrasse 1")
	require.Error(t, err)

	coord, err := client.Resolve(context.Background(), "Bahnhofstrasse 1")
	require.NoError(t, err)
	assert.InDelta(t, 47.3769, coord.Lat, 1e-9)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolve_ThrottlesRequests(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "1", "lon": "2"}]`))
	})

	client := NewClient(
		WithBaseURL(srv.URL),
		WithRequestInterval(50*time.Millisecond),
		WithHTTPClient(srv.Client()),
	)

	start := time.Now()
	for _, addr := range []string{"a", "b", "c"} {
		_, err := client.Resolve(context.Background(), addr)
		require.NoError(t, err)
	}

	// Three distinct addresses mean two enforced waits
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
