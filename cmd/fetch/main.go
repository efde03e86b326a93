// Command fetch runs one refresh and prints the resulting state as JSON.
// It exits with status 1 when the refresh failed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"stockchart/internal/config"
	"stockchart/internal/httpx"
	"stockchart/internal/logger"
	"stockchart/internal/pipeline"
	"stockchart/internal/provider/alphavantage"
	"stockchart/internal/provider/alphavantageadapter"
	"stockchart/internal/quote"
	"stockchart/internal/view"
)

func main() {
	var (
		symbol     string
		window     int
		configPath string
		today      string
	)
	flag.StringVar(&symbol, "symbol", "", "ticker symbol (default: view.default_symbol)")
	flag.IntVar(&window, "window", 0, "trailing window in days (default: view.default_window_days)")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json or config.yaml (optional)")
	flag.StringVar(&today, "today", "", "pin today's date, YYYY-MM-DD (default: the current date)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger.Init(cfg.Server.Env)
	defer logger.Sync()

	state, err := run(cfg, symbol, window, today)
	if err != nil {
		logger.Sync()
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(2)
	}
	if state.Status == quote.StatusFailed {
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, symbol string, window int, today string) (quote.FetchState, error) {
	if cfg.AlphaVantage.APIKey == "" {
		return quote.FetchState{}, fmt.Errorf("ALPHAVANTAGE_API_KEY is not set")
	}
	if symbol == "" {
		symbol = cfg.View.DefaultSymbol
	}
	if window == 0 {
		window = cfg.View.DefaultWindowDays
	}

	opts := []pipeline.Option{
		pipeline.WithLocation(cfg.View.Location()),
		pipeline.WithLogger(logger.Named("pipeline")),
	}
	if today != "" {
		d, err := quote.ParseDate(today)
		if err != nil {
			return quote.FetchState{}, fmt.Errorf("-today: %w", err)
		}
		opts = append(opts,
			pipeline.WithLocation(time.UTC),
			pipeline.WithClock(func() time.Time { return d.Time() }),
		)
	}

	httpClient := httpx.New(time.Duration(cfg.AlphaVantage.RequestTimeoutSec) * time.Second)
	avClient, err := alphavantage.NewAPIClient(
		cfg.AlphaVantage.APIKey,
		alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
		alphavantage.WithHTTPClient(httpClient),
	)
	if err != nil {
		return quote.FetchState{}, fmt.Errorf("alphavantage client: %w", err)
	}

	p := pipeline.New(alphavantageadapter.New(alphavantageadapter.Config{}, avClient), opts...)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.AlphaVantage.RequestTimeoutSec+5)*time.Second)
	defer cancel()
	if err := p.Refresh(ctx, view.NormalizeSymbol(symbol), window); err != nil {
		return quote.FetchState{}, err
	}
	return p.State(), nil
}
