package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricedelta/internal/batch"
	"github.com/wonny/pricedelta/internal/contracts"
	"github.com/wonny/pricedelta/internal/external/alphavantage"
	"github.com/wonny/pricedelta/internal/pricing"
	"github.com/wonny/pricedelta/pkg/logger"
)

type stubRunner struct {
	got      []string
	deadline bool
	run      *batch.BatchRun
	err      error
}

func (s *stubRunner) Run(ctx context.Context, symbols []string) (*batch.BatchRun, error) {
	s.got = symbols
	_, s.deadline = ctx.Deadline()
	return s.run, s.err
}

type stubFetcher struct {
	key bool
	raw json.RawMessage
	err error
	got string
}

func (s *stubFetcher) HasAPIKey() bool { return s.key }

func (s *stubFetcher) FetchDailyRaw(ctx context.Context, symbol string) (json.RawMessage, error) {
	s.got = symbol
	return s.raw, s.err
}

type stubReader struct {
	records map[string]contracts.StockRecord
	err     error
}

func (s *stubReader) List(ctx context.Context) ([]contracts.StockRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]contracts.StockRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubReader) Get(ctx context.Context, symbol string) (*contracts.StockRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.records[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrStockNotFound)
	}
	return &rec, nil
}

func sampleRun() *batch.BatchRun {
	start := time.Date(2024, 6, 3, 21, 30, 0, 0, time.UTC)
	return &batch.BatchRun{
		ID:         "2b1e4c1a-run",
		Symbols:    []string{"AAPL", "AMZN"},
		Results:    map[string]pricing.LookbackResult{"AAPL": {Symbol: "AAPL"}},
		Failures:   map[string]error{"AMZN": errors.New("rate limited")},
		Committed:  true,
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
}

func newTestHandler(runner BatchRunner, fetcher RawFetcher, reader StockReader) *StockHandler {
	return NewStockHandler(runner, fetcher, reader, StockHandlerConfig{
		Symbols:      []string{"AAPL", "AMZN"},
		BatchTimeout: time.Minute,
	}, logger.NewNop())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestUpdate_Partial(t *testing.T) {
	runner := &stubRunner{run: sampleRun()}
	h := newTestHandler(runner, &stubFetcher{key: true}, &stubReader{})

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPost, "/api/stocks/update", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL", "AMZN"}, runner.got)
	assert.True(t, runner.deadline)

	var resp UpdateResponse
	decode(t, rec, &resp)
	assert.Equal(t, "2b1e4c1a-run", resp.RunID)
	assert.Equal(t, "partial", resp.Status)
	assert.Equal(t, []string{"AAPL"}, resp.Succeeded)
	assert.Equal(t, map[string]string{"AMZN": "rate limited"}, resp.Failed)
	assert.True(t, resp.Committed)
	assert.Equal(t, "3s", resp.Duration)
}

func TestUpdate_SymbolOverride(t *testing.T) {
	runner := &stubRunner{run: &batch.BatchRun{}}
	h := newTestHandler(runner, &stubFetcher{key: true}, &stubReader{})

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPost, "/api/stocks/update?symbols=msft,%20tsla", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"MSFT", "TSLA"}, runner.got)
}

func TestUpdate_MissingAPIKey(t *testing.T) {
	runner := &stubRunner{}
	h := newTestHandler(runner, &stubFetcher{key: false}, &stubReader{})

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPost, "/api/stocks/update", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "API key is missing")
	assert.Nil(t, runner.got)
}

func TestUpdate_CommitFailure(t *testing.T) {
	run := sampleRun()
	run.Committed = false
	commitErr := &batch.CommitError{Count: 1, Err: errors.New("connection refused")}
	run.CommitErr = commitErr

	h := newTestHandler(&stubRunner{run: run, err: commitErr}, &stubFetcher{key: true}, &stubReader{})

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPost, "/api/stocks/update", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp UpdateResponse
	decode(t, rec, &resp)
	assert.Equal(t, "failed", resp.Status)
	assert.Contains(t, resp.Error, "connection refused")
	assert.Equal(t, []string{"AAPL"}, resp.Succeeded)
}

func TestGetRaw(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		fetcher    *stubFetcher
		wantStatus int
		wantSymbol string
	}{
		{
			name:       "defaults to IBM",
			fetcher:    &stubFetcher{key: true, raw: json.RawMessage(`{"Meta Data":{}}`)},
			wantStatus: http.StatusOK,
			wantSymbol: "IBM",
		},
		{
			name:       "upper-cases symbol",
			query:      "?symbol=nflx",
			fetcher:    &stubFetcher{key: true, raw: json.RawMessage(`{}`)},
			wantStatus: http.StatusOK,
			wantSymbol: "NFLX",
		},
		{
			name:       "rate limited",
			query:      "?symbol=AAPL",
			fetcher:    &stubFetcher{key: true, err: &alphavantage.FetchError{Symbol: "AAPL", Err: alphavantage.ErrRateLimited}},
			wantStatus: http.StatusTooManyRequests,
			wantSymbol: "AAPL",
		},
		{
			name:       "provider error",
			query:      "?symbol=NOPE",
			fetcher:    &stubFetcher{key: true, err: &alphavantage.FetchError{Symbol: "NOPE", Err: alphavantage.ErrProviderError}},
			wantStatus: http.StatusBadGateway,
			wantSymbol: "NOPE",
		},
		{
			name:       "missing key",
			fetcher:    &stubFetcher{key: false},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubRunner{}, tt.fetcher, &stubReader{})

			rec := httptest.NewRecorder()
			h.GetRaw(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/raw"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSymbol, tt.fetcher.got)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, string(tt.fetcher.raw), rec.Body.String())
			}
		})
	}
}

func TestListAndGet(t *testing.T) {
	reader := &stubReader{records: map[string]contracts.StockRecord{
		"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", LastPrice: 194.03},
	}}
	h := newTestHandler(&stubRunner{}, &stubFetcher{}, reader)

	r := mux.NewRouter()
	r.HandleFunc("/api/stocks", h.List)
	r.HandleFunc("/api/stocks/{symbol}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"AAPL"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/aapl", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data contracts.StockRecord `json:"data"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "Apple Inc.", body.Data.Name)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/TSLA", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList_Error(t *testing.T) {
	h := newTestHandler(&stubRunner{}, &stubFetcher{}, &stubReader{err: errors.New("pool closed")})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/stocks", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
