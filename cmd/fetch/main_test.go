package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"stockchart/internal/config"
	"stockchart/internal/quote"
)

func newProvider(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" || r.URL.Query().Get("function") != "TIME_SERIES_DAILY" || r.URL.Query().Get("apikey") != "demo" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(endpoint string) config.Config {
	cfg := config.Default()
	cfg.AlphaVantage.APIKey = "demo"
	cfg.AlphaVantage.Endpoint = endpoint
	cfg.AlphaVantage.RequestTimeoutSec = 2
	return cfg
}

func TestRun_SingleRecord(t *testing.T) {
	ts := newProvider(t, `{
		"Meta Data": {"2. Symbol": "IBM"},
		"Time Series (Daily)": {
			"2024-01-02": {"1. open":"10","2. high":"12","3. low":"9","4. close":"11","5. volume":"1000"},
			"2023-11-01": {"1. open":"1","2. high":"1","3. low":"1","4. close":"1","5. volume":"1"}
		}
	}`)

	state, err := run(testConfig(ts.URL), "ibm", 30, "2024-01-10")
	require.NoError(t, err)
	require.Equal(t, quote.StatusReady, state.Status)
	require.Equal(t, "IBM", state.Symbol)
	require.Equal(t, quote.RecordSequence{{
		Date: quote.NewDate(2024, 1, 2), Open: 10, High: 12, Low: 9, Close: 11, Volume: 1000,
	}}, state.Records)
}

func TestRun_RateLimitNote(t *testing.T) {
	ts := newProvider(t, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`)

	state, err := run(testConfig(ts.URL), "IBM", 30, "2024-01-10")
	require.NoError(t, err)
	require.Equal(t, quote.StatusFailed, state.Status)
	require.Equal(t, quote.InvalidSymbolOrLimit, state.Error)
}

func TestRun_Errors(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")

	_, err := run(cfg, "IBM", 30, "01/10/2024")
	require.Error(t, err)

	_, err = run(cfg, "IBM", -1, "")
	require.Error(t, err)

	cfg.AlphaVantage.APIKey = ""
	_, err = run(cfg, "IBM", 30, "")
	require.Error(t, err)
}
