package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Field keys of one day in the provider's daily series.
const (
	FieldOpen   = "1. open"
	FieldHigh   = "2. high"
	FieldLow    = "3. low"
	FieldClose  = "4. close"
	FieldVolume = "5. volume"
)

// RawDay is the untyped field set of one day. Values are kept raw so that
// unexpected extra fields or types never fail the whole envelope.
type RawDay map[string]json.RawMessage

// RawPayload is the provider's daily time series before normalization.
// TimeSeries is nil when the response had no series key at all and an
// empty, non-nil map when the key was present without entries.
type RawPayload struct {
	Symbol     string
	TimeSeries map[string]RawDay
	// Note carries the provider's informational text (throttling notices,
	// error messages) when it sent one.
	Note string
}

// HasSeries reports whether the series key was present.
func (p *RawPayload) HasSeries() bool { return p != nil && p.TimeSeries != nil }

// Fetcher issues exactly one request for a symbol's daily series.
//
//go:generate mockgen -package=pipeline -destination=../pipeline/mock_fetcher_test.go -source=provider.go Fetcher
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*RawPayload, error)
}

// ErrInvalidSymbolOrLimit is returned for a well-formed response that has no
// daily series. The provider does not tell unknown symbols apart from a
// throttled key.
var ErrInvalidSymbolOrLimit = errors.New("invalid symbol or API limit reached")

// TransportError is a network, HTTP status or envelope decoding failure.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status code %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
