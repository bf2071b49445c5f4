package contracts

import (
	"context"
	"errors"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ErrStockNotFound is returned when no record exists for a symbol
var ErrStockNotFound = errors.New("stock record not found")

// StockRepository manages persisted stock records
type StockRepository interface {
	StockCommitter

	Upsert(ctx context.Context, record StockRecord) error
	List(ctx context.Context) ([]StockRecord, error)
	Get(ctx context.Context, symbol string) (*StockRecord, error)
}
