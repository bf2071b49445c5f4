package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/pricedelta/internal/contracts"
	"github.com/wonny/pricedelta/pkg/database"
	"github.com/wonny/pricedelta/pkg/logger"
	"github.com/wonny/pricedelta/pkg/redis"
)

// Pool is the subset of *pgxpool.Pool the repository needs
type Pool interface {
	database.TxBeginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE TABLE IF NOT EXISTS market.stocks (
		symbol       VARCHAR(16) PRIMARY KEY,
		name         TEXT NOT NULL,
		last_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
		change_today DOUBLE PRECISION NOT NULL DEFAULT 0,
		change_1d    DOUBLE PRECISION NOT NULL DEFAULT 0,
		change_1w    DOUBLE PRECISION NOT NULL DEFAULT 0,
		change_1m    DOUBLE PRECISION NOT NULL DEFAULT 0,
		change_ytd   DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Only the written columns are touched on conflict
const upsertStockSQL = `
	INSERT INTO market.stocks (symbol, name, last_price, change_today, change_1d, change_1w, change_1m, change_ytd, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (symbol) DO UPDATE SET
		name = EXCLUDED.name,
		last_price = EXCLUDED.last_price,
		change_today = EXCLUDED.change_today,
		change_1d = EXCLUDED.change_1d,
		change_1w = EXCLUDED.change_1w,
		change_1m = EXCLUDED.change_1m,
		change_ytd = EXCLUDED.change_ytd,
		updated_at = now()
`

const selectStockColumns = `
	SELECT symbol, name, last_price, change_today, change_1d, change_1w, change_1m, change_ytd, updated_at
	FROM market.stocks
`

// StockRepository implements contracts.StockRepository on PostgreSQL
// ⭐ SSOT: 종목 레코드 저장소는 여기서만
type StockRepository struct {
	pool   Pool
	cache  *redis.Cache
	logger *logger.Logger
}

// NewStockRepository creates a new stock repository. cache may be nil.
func NewStockRepository(pool Pool, cache *redis.Cache, log *logger.Logger) *StockRepository {
	return &StockRepository{
		pool:   pool,
		cache:  cache,
		logger: log.WithField("module", "store"),
	}
}

// EnsureSchema creates the schema and table when missing
func (r *StockRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Commit upserts all records in one transaction. Any failure rolls back every row.
func (r *StockRepository) Commit(ctx context.Context, records []contracts.StockRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(upsertStockSQL, upsertArgs(rec)...)
		}

		results := tx.SendBatch(ctx, batch)
		for _, rec := range records {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("upsert %s: %w", rec.Symbol, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return err
	}

	for _, rec := range records {
		r.invalidate(ctx, rec.Symbol)
	}

	r.logger.WithField("records", len(records)).Info("Stock records committed")
	return nil
}

// Upsert writes a single record in its own statement
func (r *StockRepository) Upsert(ctx context.Context, record contracts.StockRecord) error {
	if _, err := r.pool.Exec(ctx, upsertStockSQL, upsertArgs(record)...); err != nil {
		return fmt.Errorf("upsert %s: %w", record.Symbol, err)
	}

	r.invalidate(ctx, record.Symbol)
	return nil
}

// List returns every record ordered by symbol
func (r *StockRepository) List(ctx context.Context) ([]contracts.StockRecord, error) {
	rows, err := r.pool.Query(ctx, selectStockColumns+` ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	records := make([]contracts.StockRecord, 0)
	for rows.Next() {
		var rec contracts.StockRecord
		if err := scanStock(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one record, served from cache when available
func (r *StockRepository) Get(ctx context.Context, symbol string) (*contracts.StockRecord, error) {
	if r.cache == nil {
		return r.get(ctx, symbol)
	}

	var rec contracts.StockRecord
	err := r.cache.GetOrSet(ctx, redis.StockRecordKey(symbol), &rec, redis.TTLMedium, func() (interface{}, error) {
		return r.get(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *StockRepository) get(ctx context.Context, symbol string) (*contracts.StockRecord, error) {
	var rec contracts.StockRecord
	err := scanStock(r.pool.QueryRow(ctx, selectStockColumns+` WHERE symbol = $1`, symbol), &rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrStockNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get stock %s: %w", symbol, err)
	}
	return &rec, nil
}

func (r *StockRepository) invalidate(ctx context.Context, symbol string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, redis.StockRecordKey(symbol)); err != nil {
		r.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to invalidate cached stock record")
	}
}

func upsertArgs(rec contracts.StockRecord) []any {
	return []any{
		rec.Symbol, rec.Name, rec.LastPrice,
		rec.ChangeToday, rec.Change1D, rec.Change1W, rec.Change1M, rec.ChangeYTD,
	}
}

func scanStock(row pgx.Row, rec *contracts.StockRecord) error {
	return row.Scan(
		&rec.Symbol, &rec.Name, &rec.LastPrice,
		&rec.ChangeToday, &rec.Change1D, &rec.Change1W, &rec.Change1M, &rec.ChangeYTD,
		&rec.UpdatedAt,
	)
}
