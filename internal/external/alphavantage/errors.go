package alphavantage

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned before any request when no key is configured
	ErrMissingAPIKey = errors.New("alpha vantage API key is not set")

	// ErrRateLimited is returned when the provider answers with a "Note" or "Information" notice
	ErrRateLimited = errors.New("alpha vantage rate limit or usage notice")

	// ErrProviderError is returned when the provider answers with an "Error Message"
	ErrProviderError = errors.New("alpha vantage API error")

	// ErrMalformedPayload is returned when the payload cannot be decoded or converted
	ErrMalformedPayload = errors.New("malformed alpha vantage payload")

	// ErrMissingSeries is returned when the payload has no daily time series block
	ErrMissingSeries = errors.New(`"Time Series (Daily)" data missing`)

	// ErrUnexpectedStatus is returned for non-200 responses
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// FetchError reports why one instrument's series could not be obtained.
// It is fatal to that instrument only.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchErr(symbol string, err error) error {
	return &FetchError{Symbol: symbol, Err: err}
}
