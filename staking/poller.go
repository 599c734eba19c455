package staking

import (
	"context"
	"time"
)

// Poller keeps the engine reconciled on a fixed interval
// ------------------------------------------------------
type Poller struct {
	engine   *Engine
	clock    Clock
	interval time.Duration
	notifier Notifier
}

// NewPoller constructs a Poller.
// By default, it uses a real clock and a 30s interval.
func NewPoller(engine *Engine, opts ...Option) *Poller {
	o := newOptions(opts)
	return &Poller{
		engine:   engine,
		clock:    o.clock,
		interval: o.pollInterval,
		notifier: o.notifier,
	}
}

// Start reconciles once, then on every interval until ctx is cancelled.
// The returned channel is closed once polling has stopped.
//
// Example:
//
//	done := poller.Start(ctx)
//	defer func() {
//	  cancel()    // 1. Request shutdown
//	  <-done      // 2. Wait for complete shutdown
//	}()
func (p *Poller) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.run(ctx)
	}()
	return done
}

// run polls until ctx is cancelled. Failures are reported by the engine and
// retried on the next tick.
func (p *Poller) run(ctx context.Context) {
	p.notifier.Notify(PollingStarted{Interval: p.interval})
	_ = p.engine.UpdateDelegates(ctx)

	for {
		select {
		case <-ctx.Done():
			p.notifier.Notify(PollingShutdown{Reason: ctx.Err()})
			return
		case <-p.clock.After(p.interval):
			_ = p.engine.UpdateDelegates(ctx)
		}
	}
}

// Reconnected tells the engine the transport came back
func (p *Poller) Reconnected(ctx context.Context) error {
	return p.engine.Reconnected(ctx)
}
