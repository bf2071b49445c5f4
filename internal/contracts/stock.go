package contracts

import (
	"time"

	"github.com/wonny/pricedelta/internal/pricing"
)

// StockRecord is the persisted summary of one instrument's lookback metrics
// ⭐ SSOT: 저장 레코드 형식은 여기서만
type StockRecord struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	LastPrice   float64   `json:"last_price"`
	ChangeToday float64   `json:"change_today"`
	Change1D    float64   `json:"change_1d"`
	Change1W    float64   `json:"change_1w"`
	Change1M    float64   `json:"change_1m"`
	ChangeYTD   float64   `json:"change_ytd"`
	UpdatedAt   time.Time `json:"updated_at"` // set by the store on write
}

// NewStockRecord maps a comparison result onto a record ready to be written
func NewStockRecord(name string, result pricing.LookbackResult) StockRecord {
	if name == "" {
		name = result.Symbol
	}

	return StockRecord{
		Symbol:      result.Symbol,
		Name:        name,
		LastPrice:   result.CurrentPrice,
		ChangeToday: result.Changes.Today,
		Change1D:    result.Changes.OneDay,
		Change1W:    result.Changes.OneWeek,
		Change1M:    result.Changes.OneMonth,
		ChangeYTD:   result.Changes.YearToDate,
	}
}
