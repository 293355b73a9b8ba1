package serpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

func fastRetry() Option {
	return WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
}

func TestMapsSearch_FirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "google_maps", q.Get("engine"))
		assert.Equal(t, "motosierras en Durango", q.Get("q"))
		assert.Equal(t, "es", q.Get("hl"))
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Empty(t, q.Get("start"))
		assert.Empty(t, q.Get("next_page_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"local_results": [
				{"place_id": "p1", "title": "Motosierras del Norte", "rating": 4.7, "reviews": 52},
				{"place_id_search": "s2", "title": "Refacciones El Pino"}
			],
			"serpapi_pagination": {"next_page_token": "tok-2"}
		}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.MapsSearch(context.Background(), MapsRequest{Query: "motosierras en Durango"})
	require.NoError(t, err)
	require.Len(t, resp.LocalResults, 2)
	assert.Equal(t, "p1", resp.LocalResults[0].PlaceID)
	assert.Equal(t, 52, resp.LocalResults[0].ReviewCount())
	key, ok := resp.LocalResults[1].Key()
	assert.True(t, ok)
	assert.Equal(t, "s2", key)
	assert.Equal(t, "tok-2", resp.Pagination.NextPageToken)
}

func TestMapsSearch_Continuation(t *testing.T) {
	tests := []struct {
		name      string
		req       MapsRequest
		wantToken string
		wantStart string
	}{
		{"token", MapsRequest{Query: "q", PageToken: "abc"}, "abc", ""},
		{"offset", MapsRequest{Query: "q", Start: 40}, "", "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				assert.Equal(t, tt.wantToken, q.Get("next_page_token"))
				assert.Equal(t, tt.wantStart, q.Get("start"))
				w.Write([]byte(`{"local_results": []}`)) //nolint:errcheck
			}))
			defer srv.Close()

			c := NewClient("k", WithBaseURL(srv.URL))
			_, err := c.MapsSearch(context.Background(), tt.req)
			require.NoError(t, err)
		})
	}
}

func TestMapsSearch_TokenAndOffsetRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.MapsSearch(context.Background(), MapsRequest{Query: "q", PageToken: "t", Start: 20})
	require.ErrorIs(t, err, ErrTokenAndOffset)
	assert.Zero(t, calls.Load())
}

func TestMapsSearch_NoResultsIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.MapsSearch(context.Background(), MapsRequest{Query: "nada"})
	require.NoError(t, err)
	assert.Empty(t, resp.LocalResults)
}

func TestMapsSearch_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error": "Invalid API key."}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL))
	_, err := c.MapsSearch(context.Background(), MapsRequest{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key.")
}

func TestGet_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"organic_results": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), fastRetry())
	_, err := c.WebSearch(context.Background(), "q", 8)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_PermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid API key."}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), fastRetry())
	_, err := c.WebSearch(context.Background(), "q", 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_CircuitOpensOnOutage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL),
		WithRetry(resilience.RetryConfig{MaxAttempts: 1}),
		WithCircuitBreaker(resilience.BreakerConfig{Threshold: 2, CoolDown: time.Hour}),
	)
	for i := 0; i < 2; i++ {
		_, err := c.WebSearch(context.Background(), "q", 8)
		require.Error(t, err)
	}

	_, err := c.MapsSearch(context.Background(), MapsRequest{Query: "q"})
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebSearch_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "8", q.Get("num"))
		w.Write([]byte(`{
			"ads": [{"title": "Motosierras Stihl", "link": "https://ads.example"}],
			"organic_results": [
				{"position": 1, "title": "FB", "link": "https://www.facebook.com/motonorte"},
				{"position": 2, "title": "IG", "link": "https://instagram.com/motonorte"}
			]
		}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.WebSearch(context.Background(), "Motosierras del Norte Durango", 8)
	require.NoError(t, err)
	assert.Len(t, resp.Ads, 1)
	require.Len(t, resp.OrganicResults, 2)
	assert.Equal(t, "https://instagram.com/motonorte", resp.OrganicResults[1].Link)
}

func TestWithRateLimit_Spaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(20))
	start := time.Now()
	for range 3 {
		_, err := c.WebSearch(context.Background(), "q", 0)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
