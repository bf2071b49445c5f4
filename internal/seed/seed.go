package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/pricedelta/internal/contracts"
	"github.com/wonny/pricedelta/pkg/logger"
)

//go:embed stocks.yaml
var defaultStocks []byte

// Writer stores one record at a time
type Writer interface {
	Upsert(ctx context.Context, record contracts.StockRecord) error
}

type stockEntry struct {
	Symbol      string  `yaml:"symbol"`
	Name        string  `yaml:"name"`
	LastPrice   float64 `yaml:"last_price"`
	ChangeToday float64 `yaml:"change_today"`
	Change1D    float64 `yaml:"change_1d"`
	Change1W    float64 `yaml:"change_1w"`
	Change1M    float64 `yaml:"change_1m"`
	ChangeYTD   float64 `yaml:"change_ytd"`
}

type seedFile struct {
	Stocks []stockEntry `yaml:"stocks"`
}

// DefaultRecords returns the built-in initial records
func DefaultRecords() ([]contracts.StockRecord, error) {
	return Parse(defaultStocks)
}

// Parse reads seed records from YAML. Symbols are upper-cased and must be unique.
func Parse(data []byte) ([]contracts.StockRecord, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(file.Stocks))
	records := make([]contracts.StockRecord, 0, len(file.Stocks))
	for i, e := range file.Stocks {
		symbol := strings.ToUpper(strings.TrimSpace(e.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("seed entry %d: symbol is required", i)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("seed entry %d: duplicate symbol %s", i, symbol)
		}
		seen[symbol] = true

		name := e.Name
		if name == "" {
			name = symbol
		}

		records = append(records, contracts.StockRecord{
			Symbol:      symbol,
			Name:        name,
			LastPrice:   e.LastPrice,
			ChangeToday: e.ChangeToday,
			Change1D:    e.Change1D,
			Change1W:    e.Change1W,
			Change1M:    e.Change1M,
			ChangeYTD:   e.ChangeYTD,
		})
	}
	return records, nil
}

// Seeder writes initial records one by one
// ⭐ SSOT: 초기 데이터 적재는 여기서만
type Seeder struct {
	writer Writer
	logger *logger.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(writer Writer, log *logger.Logger) *Seeder {
	return &Seeder{
		writer: writer,
		logger: log.WithField("module", "seed"),
	}
}

// Run writes every record. A failing record is logged and skipped.
func (s *Seeder) Run(ctx context.Context, records []contracts.StockRecord) (written, failed int) {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.logger.WithError(err).Warn("Seeding interrupted")
			failed += len(records) - written - failed
			return written, failed
		}

		if err := s.writer.Upsert(ctx, rec); err != nil {
			s.logger.WithError(err).WithField("symbol", rec.Symbol).Error("Failed to seed stock")
			failed++
			continue
		}

		s.logger.WithField("symbol", rec.Symbol).Info("Seeded stock")
		written++
	}

	s.logger.WithFields(map[string]interface{}{
		"written": written,
		"failed":  failed,
	}).Info("Seeding complete")

	return written, failed
}
