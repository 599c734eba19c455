package staking

import (
	"log/slog"
	"time"

	"github.com/screwyprof/stakecart/pkg/clock"
)

// Option configures an Engine, Coordinator or Poller. Each component reads
// only the settings it uses.
// ------------------------------------------------
type Option func(*options)

type options struct {
	clock          Clock
	notifier       Notifier
	logger         *slog.Logger
	recorder       Recorder
	cart           *Cart
	reconcileDelay time.Duration
	pollInterval   time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		clock:          clock.SystemClock{},
		notifier:       nopNotifier{},
		logger:         slog.Default(),
		reconcileDelay: DefaultReconcileDelay,
		pollInterval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithNotifier sets where events are reported
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder persists every applied reconciliation (Engine only)
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithCart makes the Engine use an existing cart
func WithCart(c *Cart) Option {
	return func(o *options) { o.cart = c }
}

// WithReconcileDelay sets how long the Coordinator waits before reconciling
// after a submission
func WithReconcileDelay(d time.Duration) Option {
	return func(o *options) { o.reconcileDelay = d }
}

// WithPollInterval sets the Poller interval
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}
