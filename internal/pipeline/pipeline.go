// Package pipeline turns a provider's daily series into the published
// FetchState the presentation layer renders.
//
// Every Refresh publishes Loading at once and then exactly one outcome:
// Failed(FetchFailed), Failed(InvalidSymbolOrLimit) or Ready(records).
// Each Refresh takes a new generation; an outcome that settles after a newer
// Refresh started is discarded, so a slow early request can never overwrite
// the result of a later one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockchart/internal/logger"
	"stockchart/internal/provider"
	"stockchart/internal/quote"
)

// ErrInvalidWindow is returned for a non-positive window.
var ErrInvalidWindow = errors.New("window must be a positive number of days")

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the source of "now". Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLocation sets the zone whose calendar defines "today". Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) { p.loc = loc }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Pipeline) { p.log = l }
}

type Pipeline struct {
	fetcher provider.Fetcher
	now     func() time.Time
	loc     *time.Location
	log     *zap.SugaredLogger

	mu    sync.Mutex
	gen   uint64
	state quote.FetchState
	// full is the unfiltered history behind state when state is ready.
	full    quote.RecordSequence
	subs    map[uint64]chan quote.FetchState
	nextSub uint64
}

func New(f provider.Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: f,
		now:     time.Now,
		loc:     time.Local,
		state:   quote.Idle(),
		subs:    make(map[uint64]chan quote.FetchState),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	p.log = logger.OrNop(p.log)
	return p
}

// Refresh fetches symbol and publishes the records of the trailing
// windowDays. It blocks until the fetch settles; run it on its own goroutine
// to keep a caller responsive. All fetch and parse failures are published as
// Failed states; the only returned error is ErrInvalidWindow, in which case
// nothing is fetched or published.
func (p *Pipeline) Refresh(ctx context.Context, symbol string, windowDays int) error {
	if windowDays <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWindow, windowDays)
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.full = nil
	p.publishLocked(quote.Loading(symbol, windowDays, gen, p.now()))
	p.mu.Unlock()

	payload, err := p.fetch(ctx, symbol)
	next, full := p.resolve(symbol, windowDays, gen, payload, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		p.log.Debugw("discarding stale refresh result",
			"symbol", symbol,
			"generation", gen,
			"latest_generation", p.gen,
			"status", next.Status.String(),
		)
		return nil
	}
	p.full = full
	p.publishLocked(next)
	return nil
}

// Refilter re-applies a trailing window to the history retained from the
// last successful refresh, without a network call. It reports whether a new
// state was published; nothing happens unless the current state is ready.
func (p *Pipeline) Refilter(windowDays int) (bool, error) {
	if windowDays <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidWindow, windowDays)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Status != quote.StatusReady || p.full == nil {
		return false, nil
	}
	seq := Filter(p.full, p.today(), windowDays)
	p.publishLocked(quote.Ready(p.state.Symbol, windowDays, p.state.Generation, p.now(), seq))
	return true, nil
}

// State returns the current published state. Its Records are shared and
// must not be modified.
func (p *Pipeline) State() quote.FetchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe returns a channel that receives the current state immediately
// and every later publication. A reader that falls behind only misses
// intermediate states; the newest one is always delivered. Call cancel to
// stop receiving; it closes the channel.
func (p *Pipeline) Subscribe() (<-chan quote.FetchState, func()) {
	ch := make(chan quote.FetchState, 1)

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	ch <- p.state
	p.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// publishLocked replaces the state and notifies subscribers. p.mu must be held.
func (p *Pipeline) publishLocked(s quote.FetchState) {
	p.state = s
	for _, ch := range p.subs {
		// Drop the unread older state, if any, so the send never blocks.
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (p *Pipeline) today() quote.Date {
	return quote.DateOf(p.now().In(p.loc))
}

// fetch calls the fetcher and turns a panic into an error so that nothing
// escapes the pipeline boundary.
func (p *Pipeline) fetch(ctx context.Context, symbol string) (payload *provider.RawPayload, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			payload = nil
			err = &provider.TransportError{Op: "fetch " + symbol, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	return p.fetcher.Fetch(ctx, symbol)
}

func (p *Pipeline) resolve(symbol string, windowDays int, gen uint64, payload *provider.RawPayload, err error) (quote.FetchState, quote.RecordSequence) {
	if err != nil {
		kind := quote.FetchFailed
		if errors.Is(err, provider.ErrInvalidSymbolOrLimit) {
			kind = quote.InvalidSymbolOrLimit
		}
		p.log.Warnw("refresh failed",
			"symbol", symbol,
			"generation", gen,
			"kind", kind.String(),
			"error", err.Error(),
		)
		return quote.Failed(symbol, windowDays, gen, p.now(), kind), nil
	}
	if !payload.HasSeries() {
		p.log.Warnw("response has no daily series",
			"symbol", symbol,
			"generation", gen,
		)
		return quote.Failed(symbol, windowDays, gen, p.now(), quote.InvalidSymbolOrLimit), nil
	}

	full, bad := Normalize(payload.TimeSeries)
	for _, m := range bad {
		p.log.Warnw("dropping malformed record",
			"symbol", symbol,
			"date", m.Date,
			"field", m.Field,
			"error", m.Err.Error(),
		)
	}

	seq := Filter(full, p.today(), windowDays)
	p.log.Infow("refresh complete",
		"symbol", symbol,
		"generation", gen,
		"window_days", windowDays,
		"history", len(full),
		"records", len(seq),
		"dropped", len(bad),
	)
	return quote.Ready(symbol, windowDays, gen, p.now(), seq), full
}
