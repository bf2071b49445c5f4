package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/pricedelta/internal/batch"
	"github.com/wonny/pricedelta/internal/contracts"
	"github.com/wonny/pricedelta/internal/external/alphavantage"
	"github.com/wonny/pricedelta/pkg/logger"
)

// DefaultRawSymbol is used by the raw payload endpoint when no symbol is given
const DefaultRawSymbol = "IBM"

// BatchRunner runs one update over a symbol list
type BatchRunner interface {
	Run(ctx context.Context, symbols []string) (*batch.BatchRun, error)
}

// RawFetcher returns unprocessed provider payloads
type RawFetcher interface {
	HasAPIKey() bool
	FetchDailyRaw(ctx context.Context, symbol string) (json.RawMessage, error)
}

// StockReader reads persisted records
type StockReader interface {
	List(ctx context.Context) ([]contracts.StockRecord, error)
	Get(ctx context.Context, symbol string) (*contracts.StockRecord, error)
}

// StockHandlerConfig holds the update defaults
type StockHandlerConfig struct {
	Symbols      []string
	BatchTimeout time.Duration
}

// StockHandler handles stock API endpoints
// ⭐ SSOT: 종목 API 핸들러는 이 구조체에서만
type StockHandler struct {
	runner  BatchRunner
	fetcher RawFetcher
	reader  StockReader
	cfg     StockHandlerConfig
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(runner BatchRunner, fetcher RawFetcher, reader StockReader, cfg StockHandlerConfig, log *logger.Logger) *StockHandler {
	return &StockHandler{
		runner:  runner,
		fetcher: fetcher,
		reader:  reader,
		cfg:     cfg,
		logger:  log,
	}
}

// UpdateResponse summarises one batch run
type UpdateResponse struct {
	RunID     string            `json:"run_id"`
	Status    string            `json:"status"`
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
	Committed bool              `json:"committed"`
	Duration  string            `json:"duration"`
	Error     string            `json:"error,omitempty"`
}

// Update runs one batch update over the configured symbols
// POST /api/stocks/update?symbols=AAPL,MSFT
func (h *StockHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.fetcher.HasAPIKey() {
		h.logger.Error("Alpha Vantage API key is not configured")
		respondError(w, http.StatusInternalServerError, "API key is missing")
		return
	}

	symbols := h.cfg.Symbols
	if override := parseSymbols(r.URL.Query().Get("symbols")); len(override) > 0 {
		symbols = override
	}

	ctx := r.Context()
	if h.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.BatchTimeout)
		defer cancel()
	}

	run, err := h.runner.Run(ctx, symbols)
	if run == nil {
		h.logger.WithError(err).Error("Stock update did not produce a run")
		respondError(w, http.StatusInternalServerError, "Stock update failed")
		return
	}

	resp := UpdateResponse{
		RunID:     run.ID,
		Status:    "ok",
		Succeeded: run.Succeeded(),
		Failed:    run.FailureReasons(),
		Committed: run.Committed,
		Duration:  run.Duration().String(),
	}
	if len(resp.Failed) > 0 {
		resp.Status = "partial"
	}

	if err != nil {
		h.logger.WithError(err).Error("Stock update commit failed")
		resp.Status = "failed"
		resp.Error = err.Error()
		respondJSON(w, http.StatusInternalServerError, resp)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetRaw returns one symbol's provider payload unprocessed
// GET /api/stocks/raw?symbol=IBM
func (h *StockHandler) GetRaw(w http.ResponseWriter, r *http.Request) {
	if !h.fetcher.HasAPIKey() {
		respondError(w, http.StatusInternalServerError, "API key is missing")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		symbol = DefaultRawSymbol
	}

	raw, err := h.fetcher.FetchDailyRaw(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Warn("Raw fetch failed")

		status := http.StatusBadGateway
		if errors.Is(err, alphavantage.ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
		respondError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// List returns every persisted record
// GET /api/stocks
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.reader.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list stocks")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stocks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
	})
}

// Get returns one persisted record
// GET /api/stocks/{symbol}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	record, err := h.reader.Get(r.Context(), symbol)
	if errors.Is(err, contracts.ErrStockNotFound) {
		respondError(w, http.StatusNotFound, "stock not found: "+symbol)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get stock")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stock")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    record,
	})
}

func parseSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
