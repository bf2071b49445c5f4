package alphavantage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/pricedelta/internal/pricing"
)

// DailyResponse mirrors the TIME_SERIES_DAILY payload.
// Prices arrive as strings or numbers; decimal accepts both.
type DailyResponse struct {
	MetaData     map[string]string   `json:"Meta Data,omitempty"`
	TimeSeries   map[string]DailyBar `json:"Time Series (Daily),omitempty"`
	Note         string              `json:"Note,omitempty"`
	Information  string              `json:"Information,omitempty"`
	ErrorMessage string              `json:"Error Message,omitempty"`
}

// DailyBar is one dated entry of the daily series
type DailyBar struct {
	Open   decimal.NullDecimal `json:"1. open"`
	High   decimal.NullDecimal `json:"2. high"`
	Low    decimal.NullDecimal `json:"3. low"`
	Close  decimal.NullDecimal `json:"4. close"`
	Volume decimal.NullDecimal `json:"5. volume"`
}

// DecodeDaily decodes a raw payload and surfaces provider notices as errors
func DecodeDaily(symbol string, raw []byte) (*DailyResponse, error) {
	var resp DailyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fetchErr(symbol, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}

	switch {
	case resp.Note != "":
		return nil, fetchErr(symbol, fmt.Errorf("%w: %s", ErrRateLimited, resp.Note))
	case resp.Information != "":
		return nil, fetchErr(symbol, fmt.Errorf("%w: %s", ErrRateLimited, resp.Information))
	case resp.ErrorMessage != "":
		return nil, fetchErr(symbol, fmt.Errorf("%w: %s", ErrProviderError, resp.ErrorMessage))
	}

	return &resp, nil
}

// DisplayName derives the record name from the "2. Symbol" metadata entry
func (r *DailyResponse) DisplayName(fallback string) string {
	if r == nil {
		return fallback
	}
	if fields := strings.Fields(r.MetaData["2. Symbol"]); len(fields) > 0 {
		return fields[0]
	}
	return fallback
}

// ParseDailySeries converts the payload into a typed series.
// Dates are anchored in loc; an empty block yields an empty series.
// ⭐ SSOT: 원시 가격 문자열은 여기서만 파싱
func ParseDailySeries(symbol string, resp *DailyResponse, loc *time.Location) (*pricing.PriceSeries, error) {
	if resp == nil || resp.TimeSeries == nil {
		return nil, fetchErr(symbol, ErrMissingSeries)
	}
	if loc == nil {
		loc = time.UTC
	}

	observations := make([]pricing.Observation, 0, len(resp.TimeSeries))
	for dateStr, bar := range resp.TimeSeries {
		date, err := time.ParseInLocation(pricing.DateLayout, dateStr, loc)
		if err != nil {
			return nil, fetchErr(symbol, fmt.Errorf("%w: bad date %q", ErrMalformedPayload, dateStr))
		}
		if !bar.Open.Valid || !bar.Close.Valid {
			return nil, fetchErr(symbol, fmt.Errorf("%w: %s lacks open/close", ErrMalformedPayload, dateStr))
		}

		observations = append(observations, pricing.Observation{
			Date:  date,
			Open:  bar.Open.Decimal.InexactFloat64(),
			Close: bar.Close.Decimal.InexactFloat64(),
		})
	}

	series, err := pricing.NewPriceSeries(symbol, observations)
	if err != nil {
		return nil, fetchErr(symbol, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}
	return series.WithName(resp.DisplayName(symbol)), nil
}
