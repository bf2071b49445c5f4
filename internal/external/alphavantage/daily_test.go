package alphavantage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pricedelta/internal/pricing"
)

const samplePayload = `{
  "Meta Data": {
    "1. Information": "Daily Prices (open, high, low, close) and Volumes",
    "2. Symbol": "AAPL",
    "3. Last Refreshed": "2024-06-03",
    "4. Output Size": "Full size",
    "5. Time Zone": "US/Eastern"
  },
  "Time Series (Daily)": {
    "2024-06-03": {"1. open": "192.90", "2. high": "194.99", "3. low": "192.52", "4. close": "194.03", "5. volume": "50080539"},
    "2024-05-31": {"1. open": 191.44, "2. high": 192.57, "3. low": 189.91, "4. close": 192.25, "5. volume": 75158277},
    "2024-05-30": {"1. open": "190.76", "2. high": "192.18", "3. low": "190.63", "4. close": "191.29", "5. volume": "49947941"}
  }
}`

func TestDecodeDaily(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "valid payload", body: samplePayload},
		{name: "rate limit note", body: `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, wantErr: ErrRateLimited},
		{name: "information notice", body: `{"Information": "We have detected your API key and our standard API rate limit is 25 requests per day."}`, wantErr: ErrRateLimited},
		{name: "error message", body: `{"Error Message": "Invalid API call. Please retry or visit the documentation."}`, wantErr: ErrProviderError},
		{name: "not json", body: `<html>oops</html>`, wantErr: ErrMalformedPayload},
		{name: "garbage price", body: `{"Time Series (Daily)": {"2024-06-03": {"1. open": "abc", "4. close": "1"}}}`, wantErr: ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeDaily("AAPL", []byte(tt.body))
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotNil(t, resp)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, "AAPL", fetchErr.Symbol)
		})
	}
}

func TestParseDailySeries(t *testing.T) {
	resp, err := DecodeDaily("AAPL", []byte(samplePayload))
	require.NoError(t, err)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	series, err := ParseDailySeries("AAPL", resp, ny)
	require.NoError(t, err)

	require.Equal(t, 3, series.Len())
	assert.Equal(t, "AAPL", series.Name())

	latest := series.At(0)
	assert.Equal(t, "2024-06-03", latest.Date.Format(pricing.DateLayout))
	assert.Equal(t, ny, latest.Date.Location())
	assert.InDelta(t, 192.90, latest.Open, 1e-9)
	assert.InDelta(t, 194.03, latest.Close, 1e-9)

	// numeric (unquoted) prices parse the same as strings
	assert.InDelta(t, 192.25, series.At(1).Close, 1e-9)
	assert.Equal(t, "2024-05-30", series.At(2).Date.Format(pricing.DateLayout))
}

func TestParseDailySeries_MissingBlock(t *testing.T) {
	resp, err := DecodeDaily("IBM", []byte(`{"Meta Data": {"2. Symbol": "IBM"}}`))
	require.NoError(t, err)

	_, err = ParseDailySeries("IBM", resp, time.UTC)
	assert.ErrorIs(t, err, ErrMissingSeries)
}

func TestParseDailySeries_EmptyBlockYieldsEmptySeries(t *testing.T) {
	resp, err := DecodeDaily("IBM", []byte(`{"Time Series (Daily)": {}}`))
	require.NoError(t, err)

	series, err := ParseDailySeries("IBM", resp, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, series.Len())

	_, err = pricing.Compare(series)
	assert.ErrorIs(t, err, pricing.ErrEmptySeries)
}

func TestParseDailySeries_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad date key", `{"Time Series (Daily)": {"06/03/2024": {"1. open": "1", "4. close": "2"}}}`},
		{"missing close", `{"Time Series (Daily)": {"2024-06-03": {"1. open": "1"}}}`},
		{"null open", `{"Time Series (Daily)": {"2024-06-03": {"1. open": null, "4. close": "2"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeDaily("IBM", []byte(tt.body))
			require.NoError(t, err)

			_, err = ParseDailySeries("IBM", resp, time.UTC)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
		want string
	}{
		{"plain symbol", map[string]string{"2. Symbol": "AAPL"}, "AAPL"},
		{"symbol with suffix", map[string]string{"2. Symbol": "BRK.B Class B"}, "BRK.B"},
		{"missing metadata", nil, "FALLBACK"},
		{"blank symbol", map[string]string{"2. Symbol": "  "}, "FALLBACK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &DailyResponse{MetaData: tt.meta}
			assert.Equal(t, tt.want, resp.DisplayName("FALLBACK"))
		})
	}
}
