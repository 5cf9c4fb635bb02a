// Package poller drives the periodic snapshot fetch.
//
// One cycle runs immediately when Run starts and then once per interval.
// Cycles are independent: each gets its own goroutine, so a slow request
// never delays the next tick. Results are delivered in completion order and
// the consumer treats the last one to arrive as current.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"trafficdash/snapshot"

	"github.com/benbjohnson/clock"
)

// Result is the outcome of one poll cycle.
type Result struct {
	Seq      uint64
	Started  time.Time
	At       time.Time
	Snapshot snapshot.Snapshot
	Err      error // non-nil means the cycle failed and Snapshot is empty
}

// Duration is the time the cycle spent in flight.
func (r Result) Duration() time.Duration { return r.At.Sub(r.Started) }

// Config is the runtime config the poller needs.
type Config struct {
	Interval time.Duration
	// RequestTimeout bounds one request; zero leaves it to the transport.
	RequestTimeout time.Duration
	Clock          clock.Clock
}

// Poller is a clock-driven fetch loop.
type Poller struct {
	cfg     Config
	fetcher Fetcher
	clock   clock.Clock
	seq     atomic.Uint64
	wg      sync.WaitGroup
}

// New creates a poller with immutable config.
func New(cfg Config, fetcher Fetcher) (*Poller, error) {
	if fetcher == nil {
		return nil, errors.New("poller: fetcher required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.RequestTimeout < 0 {
		return nil, errors.New("poller: request timeout must be >= 0")
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Poller{cfg: cfg, fetcher: fetcher, clock: clk}, nil
}

// PollOnce performs exactly one cycle.
func (p *Poller) PollOnce(ctx context.Context) Result {
	res := Result{
		Seq:     p.seq.Add(1),
		Started: p.clock.Now(),
	}
	reqCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}
	snap, err := p.fetcher.Fetch(reqCtx)
	res.At = p.clock.Now()
	if err != nil {
		res.Err = err
		return res
	}
	res.Snapshot = snap
	return res
}

// Run fires one cycle now and one per interval until ctx is done, emitting
// each Result on out. It returns after in-flight cycles have finished or
// given up on delivery.
func (p *Poller) Run(ctx context.Context, out chan<- Result) {
	ticker := p.clock.Ticker(p.cfg.Interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.launch(ctx, out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.launch(ctx, out)
		}
	}
}

func (p *Poller) launch(ctx context.Context, out chan<- Result) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		res := p.PollOnce(ctx)
		select {
		case out <- res:
		case <-ctx.Done():
		}
	}()
}
