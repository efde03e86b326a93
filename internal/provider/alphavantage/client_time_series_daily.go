package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
)

// seriesKey is the top-level key of the daily series in the response body.
const seriesKey = "Time Series (Daily)"

// maxBodyBytes caps how much of a response is read. A full-history daily
// series for a long-listed symbol is a few MB.
const maxBodyBytes = 32 << 20

// ErrEmptyResponse is returned when the provider answered with no body.
// Alpha Vantage does this on some throttled requests.
var ErrEmptyResponse = errors.New("empty response body")

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Body)
}

// TimeSeriesDaily is the decoded TIME_SERIES_DAILY response.
type TimeSeriesDaily struct {
	// Series maps an ISO date to that day's undecoded field object. It is
	// nil when the response did not contain the series key.
	Series map[string]json.RawMessage
	// Note is the provider's "Note", "Information" or "Error Message"
	// text, whichever was present.
	Note string
}

// GetTimeSeriesDaily retrieves the daily series of symbol.
func (c *APIClient) GetTimeSeriesDaily(ctx context.Context, symbol string, opts ...APIClientOption) (*TimeSeriesDaily, error) {
	var override = &APIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	query.Set("function", "TIME_SERIES_DAILY")
	query.Set("symbol", symbol)

	url := fmt.Sprintf("%s/query?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(b)}
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, ErrEmptyResponse
	}

	// {
	//   "Meta Data": { ... },
	//   "Time Series (Daily)": {
	//     "2024-01-02": {
	//       "1. open": "10.0000",
	//       "2. high": "12.0000",
	//       "3. low": "9.0000",
	//       "4. close": "11.0000",
	//       "5. volume": "1000"
	//     }
	//   }
	// }
	var body map[string]json.RawMessage
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, fmt.Errorf("decoding time series response: %w", err)
	}

	out := &TimeSeriesDaily{Note: note(body)}
	raw, ok := body[seriesKey]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return out, nil
	}
	series := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", seriesKey, err)
	}
	out.Series = series
	return out, nil
}

// note returns the first informational message found in body.
func note(body map[string]json.RawMessage) string {
	for _, key := range []string{"Error Message", "Note", "Information"} {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
