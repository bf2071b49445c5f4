package pricing

import (
	"fmt"
	"time"
)

// Weekly lookback scan bounds
const (
	weekMinGapDays     = 7
	weekScanCandidates = 5
)

// ReferencePrices holds the unrounded close selected for each lookback horizon
type ReferencePrices struct {
	OneDayAgo   float64 `json:"one_day_ago"`
	OneWeekAgo  float64 `json:"one_week_ago"`
	OneMonthAgo float64 `json:"one_month_ago"`
	YearStart   float64 `json:"year_start"`
}

// ReferenceDates holds the trading date behind each reference price.
// A zero date means the horizon fell back to the current price.
type ReferenceDates struct {
	OneDayAgo   time.Time `json:"one_day_ago"`
	OneWeekAgo  time.Time `json:"one_week_ago"`
	OneMonthAgo time.Time `json:"one_month_ago"`
	YearStart   time.Time `json:"year_start"`
}

// Changes holds percentage changes rounded to two decimal places
type Changes struct {
	Today      float64 `json:"today"`
	OneDay     float64 `json:"one_day"`
	OneWeek    float64 `json:"one_week"`
	OneMonth   float64 `json:"one_month"`
	YearToDate float64 `json:"year_to_date"`
}

// LookbackResult is the outcome of comparing the latest price to its horizons
type LookbackResult struct {
	Symbol         string          `json:"symbol"`
	AsOf           time.Time       `json:"as_of"`
	CurrentPrice   float64         `json:"current_price"`
	TodayOpenPrice float64         `json:"today_open_price"`
	References     ReferencePrices `json:"references"`
	ReferenceDates ReferenceDates  `json:"reference_dates"`
	Changes        Changes         `json:"changes"`
}

// Compare derives reference prices and percentage changes for every lookback
// horizon. Each horizon is a single descending scan over the series.
func Compare(series *PriceSeries) (LookbackResult, error) {
	if series == nil || series.Len() == 0 {
		symbol := ""
		if series != nil {
			symbol = series.Symbol()
		}
		return LookbackResult{}, fmt.Errorf("compare %s: %w", symbol, ErrEmptySeries)
	}

	obs := series.observations
	latest := obs[0]
	current := latest.Close

	var refs ReferencePrices
	var dates ReferenceDates

	refs.OneDayAgo, dates.OneDayAgo = current, time.Time{}
	if len(obs) > 1 {
		refs.OneDayAgo, dates.OneDayAgo = obs[1].Close, obs[1].Date
	}

	refs.OneWeekAgo, dates.OneWeekAgo = pick(current, findWeekAgo(obs))
	refs.OneMonthAgo, dates.OneMonthAgo = pick(current, findMonthAgo(obs))
	refs.YearStart, dates.YearStart = pick(current, findYearStart(obs))

	return LookbackResult{
		Symbol:         series.Symbol(),
		AsOf:           latest.Date,
		CurrentPrice:   current,
		TodayOpenPrice: latest.Open,
		References:     refs,
		ReferenceDates: dates,
		Changes: Changes{
			Today:      Round2(SafeChangePercent(current, latest.Open)),
			OneDay:     Round2(SafeChangePercent(current, refs.OneDayAgo)),
			OneWeek:    Round2(SafeChangePercent(current, refs.OneWeekAgo)),
			OneMonth:   Round2(SafeChangePercent(current, refs.OneMonthAgo)),
			YearToDate: Round2(SafeChangePercent(current, refs.YearStart)),
		},
	}, nil
}

func pick(fallback float64, o *Observation) (float64, time.Time) {
	if o == nil {
		return fallback, time.Time{}
	}
	return o.Close, o.Date
}

// findWeekAgo returns the first of the five most recent observations that is at
// least a week older than the latest one. Gaps only grow down the series, so the
// first hit is the closest.
func findWeekAgo(obs []Observation) *Observation {
	d0 := obs[0].Date
	for i := 0; i < len(obs) && i < weekScanCandidates; i++ {
		if calendarDaysBetween(obs[i].Date, d0) >= weekMinGapDays {
			return &obs[i]
		}
	}
	return nil
}

// findMonthAgo returns the latest observation on or before one calendar month
// before the latest observation
func findMonthAgo(obs []Observation) *Observation {
	monthAgo := subtractMonth(obs[0].Date)
	for i := range obs {
		if !dateOf(obs[i].Date).After(monthAgo) {
			return &obs[i]
		}
	}
	return nil
}

// findYearStart returns the earliest observation in the latest observation's
// calendar year
func findYearStart(obs []Observation) *Observation {
	yearStart := time.Date(obs[0].Date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	var found *Observation
	for i := range obs {
		if dateOf(obs[i].Date).Before(yearStart) {
			break
		}
		found = &obs[i]
	}
	return found
}

// dateOf drops the clock and zone, keeping the calendar date as seen in t's location
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// calendarDaysBetween counts whole calendar days from earlier to later
func calendarDaysBetween(earlier, later time.Time) int {
	return int(dateOf(later).Sub(dateOf(earlier)).Hours() / 24)
}

// subtractMonth moves one calendar month back, clamping to the last day of the
// target month (Mar 31 -> Feb 29)
func subtractMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m-1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}
