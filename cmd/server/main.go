package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"stockchart/internal/chart"
	"stockchart/internal/config"
	"stockchart/internal/httpx"
	"stockchart/internal/logger"
	"stockchart/internal/pipeline"
	"stockchart/internal/provider/alphavantage"
	"stockchart/internal/provider/alphavantageadapter"
	"stockchart/internal/server"
	"stockchart/internal/view"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.json or config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Server.Env)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.Get()
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpClient := httpx.New(time.Duration(cfg.AlphaVantage.RequestTimeoutSec) * time.Second)
	avClient, err := alphavantage.NewAPIClient(
		cfg.AlphaVantage.APIKey,
		alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
		alphavantage.WithHTTPClient(httpClient),
	)
	if err != nil {
		return fmt.Errorf("alphavantage client: %w", err)
	}
	fetcher := alphavantageadapter.New(alphavantageadapter.Config{}, avClient)

	p := pipeline.New(fetcher,
		pipeline.WithLocation(cfg.View.Location()),
		pipeline.WithLogger(log.Named("pipeline")),
	)
	ctrl, err := view.New(p, view.Defaults{
		Symbol:     cfg.View.DefaultSymbol,
		WindowDays: cfg.View.DefaultWindowDays,
		ChartKind:  chart.Kind(cfg.View.DefaultChart),
	}, log.Named("view"))
	if err != nil {
		return fmt.Errorf("view controller: %w", err)
	}

	hub := server.NewHub(ctrl.Snapshot, log.Named("ws"))
	srv := server.New(ctrl, hub, log.Named("http"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	states, unsubscribe := p.Subscribe()
	defer unsubscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, ":"+cfg.Server.Port, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	})
	g.Go(func() error { return hub.Run(ctx, states) })
	g.Go(func() error { return ctrl.Start(ctx) })

	log.Infow("stockchart started",
		"port", cfg.Server.Port,
		"provider", fetcher.Name(),
		"symbol", cfg.View.DefaultSymbol,
		"window_days", cfg.View.DefaultWindowDays,
	)
	return g.Wait()
}
