package pricing

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrEmptySeries is returned when a series has no observations
	ErrEmptySeries = errors.New("price series has no observations")

	// ErrDuplicateDate is returned when two observations share a calendar date
	ErrDuplicateDate = errors.New("duplicate observation date")
)

// DateLayout is the wire format of a trading date
const DateLayout = "2006-01-02"

// Observation is one instrument's open/close for a single trading day
type Observation struct {
	Date  time.Time
	Open  float64
	Close float64
}

// PriceSeries holds the observations of one instrument, most recent first
// ⭐ SSOT: 정렬은 생성 시 한 번만
type PriceSeries struct {
	symbol       string
	name         string
	observations []Observation
}

// NewPriceSeries sorts observations by date descending.
// An empty series is allowed here; Compare rejects it.
func NewPriceSeries(symbol string, observations []Observation) (*PriceSeries, error) {
	sorted := make([]Observation, len(observations))
	copy(sorted, observations)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	for i := 1; i < len(sorted); i++ {
		if sameDay(sorted[i-1].Date, sorted[i].Date) {
			return nil, fmt.Errorf("%s: %w: %s", symbol, ErrDuplicateDate, sorted[i].Date.Format(DateLayout))
		}
	}

	return &PriceSeries{symbol: symbol, observations: sorted}, nil
}

// Symbol returns the instrument the series belongs to
func (s *PriceSeries) Symbol() string {
	return s.symbol
}

// Name returns the display name, defaulting to the symbol
func (s *PriceSeries) Name() string {
	if s.name == "" {
		return s.symbol
	}
	return s.name
}

// WithName returns a copy of the series carrying a display name
func (s *PriceSeries) WithName(name string) *PriceSeries {
	named := *s
	named.name = name
	return &named
}

// Len returns the number of observations
func (s *PriceSeries) Len() int {
	return len(s.observations)
}

// At returns the i-th most recent observation (0 = latest)
func (s *PriceSeries) At(i int) Observation {
	return s.observations[i]
}

// Latest returns the most recent observation
func (s *PriceSeries) Latest() (Observation, bool) {
	if len(s.observations) == 0 {
		return Observation{}, false
	}
	return s.observations[0], true
}

// Observations returns a copy of the observations, most recent first
func (s *PriceSeries) Observations() []Observation {
	out := make([]Observation, len(s.observations))
	copy(out, s.observations)
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
