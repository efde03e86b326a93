package alphavantageadapter

import (
	"context"
	"encoding/json"
	"errors"

	"stockchart/internal/provider"
	"stockchart/internal/provider/alphavantage"
)

// Config controls the adapter.
type Config struct {
	Name string // display name, default: AlphaVantage
}

// Adapter exposes the Alpha Vantage client as a provider.Fetcher and maps its
// failures onto the provider error taxonomy.
type Adapter struct {
	cfg    Config
	client *alphavantage.APIClient
}

func New(cfg Config, client *alphavantage.APIClient) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Fetch performs one TIME_SERIES_DAILY request. Empty bodies and responses
// without a series key become provider.ErrInvalidSymbolOrLimit; everything
// else that goes wrong is a *provider.TransportError.
func (a *Adapter) Fetch(ctx context.Context, symbol string) (*provider.RawPayload, error) {
	res, err := a.client.GetTimeSeriesDaily(ctx, symbol)
	if err != nil {
		if errors.Is(err, alphavantage.ErrEmptyResponse) {
			return nil, provider.ErrInvalidSymbolOrLimit
		}
		te := &provider.TransportError{Op: a.cfg.Name + " TIME_SERIES_DAILY " + symbol, Err: err}
		var se *alphavantage.StatusError
		if errors.As(err, &se) {
			te.StatusCode = se.StatusCode
		}
		return nil, te
	}

	if res.Series == nil {
		return nil, provider.ErrInvalidSymbolOrLimit
	}

	out := &provider.RawPayload{
		Symbol:     symbol,
		TimeSeries: make(map[string]provider.RawDay, len(res.Series)),
		Note:       res.Note,
	}
	for date, raw := range res.Series {
		var day provider.RawDay
		// A day that is not an object keeps a nil field set; the pipeline
		// drops it as a malformed record.
		if err := json.Unmarshal(raw, &day); err != nil {
			day = nil
		}
		out.TimeSeries[date] = day
	}
	return out, nil
}
