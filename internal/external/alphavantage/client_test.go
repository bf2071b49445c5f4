package alphavantage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricedelta/pkg/httputil"
	"github.com/wonny/pricedelta/pkg/logger"
	"github.com/wonny/pricedelta/pkg/redis"
)

func newTestClient(t *testing.T, baseURL, apiKey string) *Client {
	t.Helper()
	return newCachedTestClient(t, baseURL, apiKey, redis.NewCache(redis.Disabled(), "test"))
}

func newCachedTestClient(t *testing.T, baseURL, apiKey string, cache PayloadCache) *Client {
	t.Helper()

	log := logger.NewNop()
	return NewClient(Config{
		APIKey:            apiKey,
		BaseURL:           baseURL,
		OutputSize:        "compact",
		RequestsPerMinute: 60000,
		Location:          time.UTC,
	}, httputil.New(log).DisableRetry(), cache, log)
}

// memoryCache keeps raw payloads in process, standing in for Redis
type memoryCache struct {
	entries map[string][]byte
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.entries[key] = data
	return nil
}

func TestClient_FetchSeriesAlwaysFetchesFresh(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(samplePayload))
	}))
	defer server.Close()

	cache := newMemoryCache()
	client := newCachedTestClient(t, server.URL, "secret", cache)
	ctx := context.Background()

	// 장중 raw 조회가 캐시를 채워도 배치는 새로 받아야 함
	_, err := client.FetchDailyRaw(ctx, "AAPL")
	require.NoError(t, err)
	require.Equal(t, 1, hits)

	for i := 0; i < 2; i++ {
		_, err := client.FetchSeries(ctx, "AAPL")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, hits)
	assert.Equal(t, 3, cache.sets)
}

func TestClient_FetchDailyRawReplaysCache(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(samplePayload))
	}))
	defer server.Close()

	client := newCachedTestClient(t, server.URL, "secret", newMemoryCache())
	ctx := context.Background()

	_, err := client.FetchSeries(ctx, "AAPL")
	require.NoError(t, err)

	raw, err := client.FetchDailyRaw(ctx, "aapl")
	require.NoError(t, err)
	assert.JSONEq(t, samplePayload, string(raw))
	assert.Equal(t, 1, hits)
}

func TestClient_FetchSeries(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"function":   q.Get("function"),
			"symbol":     q.Get("symbol"),
			"apikey":     q.Get("apikey"),
			"outputsize": q.Get("outputsize"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "secret")

	series, err := client.FetchSeries(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     "AAPL",
		"apikey":     "secret",
		"outputsize": "compact",
	}, gotQuery)
	assert.Equal(t, "AAPL", series.Symbol())
	assert.Equal(t, 3, series.Len())
}

func TestClient_FetchDailyRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "secret")

	raw, err := client.FetchDailyRaw(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.JSONEq(t, samplePayload, string(raw))
}

func TestClient_MissingAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "")
	assert.False(t, client.HasAPIKey())

	_, err := client.FetchSeries(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, called, "no request without an API key")
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{}`, ErrUnexpectedStatus},
		{"rate limited", http.StatusOK, `{"Note": "5 calls per minute"}`, ErrRateLimited},
		{"invalid symbol", http.StatusOK, `{"Error Message": "Invalid API call."}`, ErrProviderError},
		{"missing series", http.StatusOK, `{"Meta Data": {}}`, ErrMissingSeries},
		{"truncated body", http.StatusOK, `{"Time Series (Daily)": {`, ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, "secret")

			_, err := client.FetchSeries(context.Background(), "META")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var fetchErr *FetchError
			assert.ErrorAs(t, err, &fetchErr)
		})
	}
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePayload))
	}))
	defer server.Close()

	log := logger.NewNop()
	client := NewClient(Config{
		APIKey:            "secret",
		BaseURL:           server.URL,
		RequestsPerMinute: 1,
	}, httputil.New(log).DisableRetry(), nil, log)

	_, err := client.FetchSeries(context.Background(), "AAPL")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.FetchSeries(ctx, "AAPL")
	require.Error(t, err)

	var fetchErr *FetchError
	assert.ErrorAs(t, err, &fetchErr)
}
