package staking

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Event represents something the surrounding UI layer may want to report
// ----------------------------------------------------------------------
type Event any

type Reconciled struct {
	Account    string
	Committed  int
	Unbonding  int
	CartAdded  int
	Duration   time.Duration
	Generation uint64
}

// ReconcileDiscarded is emitted when a result arrives for an account that is
// no longer active.
type ReconcileDiscarded struct {
	Account string
	Active  string
}

type ReconcileFailed struct {
	Account string
	Title   string
	Err     error
}

type CandidateMissing struct {
	Account   string
	Validator ValidatorID
}

type RecordFailed struct {
	Account string
	Err     error
}

type SubmissionSucceeded struct {
	Kind         TxKind
	BalanceDelta decimal.Decimal
	ReconcileIn  time.Duration
}

type SubmissionFailed struct {
	Kind  TxKind
	Title string
	Err   error
}

type UnbondingCompleted struct {
	Validator ValidatorID
	Balance   Coin
	Message   string
}

type PollingStarted struct {
	Interval time.Duration
}

type PollingShutdown struct {
	Reason error
}

// Notifier receives events
// ------------------------
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ev Event)

// Notify implements Notifier
func (f NotifierFunc) Notify(ev Event) { f(ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// Feed is a Notifier backed by a channel, meant to be drained by NewSubscriber.
// Events published after Close are dropped.
type Feed struct {
	mu     sync.RWMutex
	events chan Event
	closed bool
}

// NewFeed creates a feed buffering up to size events
func NewFeed(size int) *Feed {
	return &Feed{events: make(chan Event, size)}
}

// Notify publishes ev. It blocks while the buffer is full.
func (f *Feed) Notify(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	f.events <- ev
}

// Events returns the channel to subscribe to
func (f *Feed) Events() <-chan Event {
	return f.events
}

// Close stops the feed and closes the events channel
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.events)
}
