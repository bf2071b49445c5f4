package contracts

import (
	"context"

	"github.com/wonny/pricedelta/internal/pricing"
)

// SeriesFetcher obtains one instrument's daily series from a market data provider
// ⭐ SSOT: 시세 조회 인터페이스
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, symbol string) (*pricing.PriceSeries, error)
}

// StockCommitter writes a batch of records as one all-or-nothing unit
// ⭐ SSOT: 일괄 저장 인터페이스
type StockCommitter interface {
	Commit(ctx context.Context, records []StockRecord) error
}
