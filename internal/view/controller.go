// Package view holds the presentation state around the pipeline: the symbol
// being typed, the chart kind, the trailing window and the theme.
//
// Only Start and Search fetch. Changing the window re-filters the history
// already fetched; changing the symbol text, chart kind or theme never
// touches the fetch state.
package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"stockchart/internal/chart"
	"stockchart/internal/logger"
	"stockchart/internal/quote"
)

// Pipeline is the part of the quote pipeline the controller drives.
type Pipeline interface {
	Refresh(ctx context.Context, symbol string, windowDays int) error
	Refilter(windowDays int) (bool, error)
	State() quote.FetchState
}

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// WindowChoices are the trailing windows a user can pick.
var WindowChoices = []int{7, 30, 90}

var (
	ErrInvalidWindow    = errors.New("window must be one of 7, 30 or 90 days")
	ErrInvalidChartKind = errors.New("chart kind must be line, area or bar")
)

type Defaults struct {
	Symbol     string
	WindowDays int
	ChartKind  chart.Kind
}

// Snapshot is the view state plus the fetch state it renders.
type Snapshot struct {
	Symbol     string           `json:"symbol"`
	ChartKind  chart.Kind       `json:"chart_kind"`
	WindowDays int              `json:"window_days"`
	Theme      Theme            `json:"theme"`
	Fetch      quote.FetchState `json:"fetch"`
}

type Controller struct {
	pipeline Pipeline
	defaults Defaults
	log      *zap.SugaredLogger

	mu         sync.RWMutex
	symbol     string
	chartKind  chart.Kind
	windowDays int
	theme      Theme
}

// New returns a controller in its initial state. Zero defaults fall back to
// line and 30 days; an out-of-range default is an error.
func New(p Pipeline, d Defaults, log *zap.SugaredLogger) (*Controller, error) {
	if d.WindowDays == 0 {
		d.WindowDays = 30
	}
	if d.ChartKind == "" {
		d.ChartKind = chart.Line
	}
	if !validWindow(d.WindowDays) {
		return nil, fmt.Errorf("default window: %w", ErrInvalidWindow)
	}
	if !d.ChartKind.Valid() {
		return nil, fmt.Errorf("default chart %q: %w", d.ChartKind, ErrInvalidChartKind)
	}
	d.Symbol = NormalizeSymbol(d.Symbol)

	return &Controller{
		pipeline:   p,
		defaults:   d,
		log:        logger.OrNop(log),
		symbol:     d.Symbol,
		chartKind:  d.ChartKind,
		windowDays: d.WindowDays,
		theme:      Light,
	}, nil
}

// NormalizeSymbol trims and uppercases symbol text.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Start runs the implicit first refresh for the default symbol and window.
func (c *Controller) Start(ctx context.Context) error {
	c.log.Infow("initial refresh", "symbol", c.defaults.Symbol, "window_days", c.defaults.WindowDays)
	return c.refresh(ctx, c.defaults.Symbol, c.defaults.WindowDays)
}

// SetSymbol stores the symbol text without fetching and returns it normalized.
func (c *Controller) SetSymbol(text string) string {
	s := NormalizeSymbol(text)
	c.mu.Lock()
	c.symbol = s
	c.mu.Unlock()
	return s
}

// Search refreshes the current symbol over the current window. It blocks
// until the fetch settles.
func (c *Controller) Search(ctx context.Context) error {
	c.mu.RLock()
	symbol, w := c.symbol, c.windowDays
	c.mu.RUnlock()

	c.log.Infow("search", "symbol", symbol, "window_days", w)
	return c.refresh(ctx, symbol, w)
}

// refresh fetches over w. A window picked while the fetch was in flight found
// nothing to re-filter, so it is applied once the fetch settles.
func (c *Controller) refresh(ctx context.Context, symbol string, w int) error {
	if err := c.pipeline.Refresh(ctx, symbol, w); err != nil {
		return err
	}

	c.mu.RLock()
	current := c.windowDays
	c.mu.RUnlock()
	if current == w {
		return nil
	}
	refiltered, err := c.pipeline.Refilter(current)
	if err != nil {
		return fmt.Errorf("refilter: %w", err)
	}
	c.log.Debugw("window changed during refresh", "requested", w, "window_days", current, "refiltered", refiltered)
	return nil
}

func (c *Controller) SetChartKind(kind chart.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%q: %w", kind, ErrInvalidChartKind)
	}
	c.mu.Lock()
	c.chartKind = kind
	c.mu.Unlock()
	return nil
}

// SetWindowDays stores the window for the next search and re-filters the
// history from the last successful fetch. It never fetches.
func (c *Controller) SetWindowDays(days int) error {
	if !validWindow(days) {
		return fmt.Errorf("%d: %w", days, ErrInvalidWindow)
	}
	c.mu.Lock()
	c.windowDays = days
	c.mu.Unlock()

	refiltered, err := c.pipeline.Refilter(days)
	if err != nil {
		return fmt.Errorf("refilter: %w", err)
	}
	c.log.Debugw("window changed", "window_days", days, "refiltered", refiltered)
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (c *Controller) ToggleTheme() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.theme == Light {
		c.theme = Dark
	} else {
		c.theme = Light
	}
	return c.theme
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	s := Snapshot{
		Symbol:     c.symbol,
		ChartKind:  c.chartKind,
		WindowDays: c.windowDays,
		Theme:      c.theme,
	}
	c.mu.RUnlock()
	s.Fetch = c.pipeline.State()
	return s
}

func validWindow(days int) bool {
	return slices.Contains(WindowChoices, days)
}
