package staking_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecart/pkg/logger"
	"github.com/screwyprof/stakecart/staking"
)

var errTransport = errors.New("connection reset by peer")

// Domain builders
// ---------------

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// candidate builds a validator whose operator and owner address are the same
// and whose tokens match its shares one to one.
func candidate(id string) staking.Candidate {
	return staking.Candidate{
		ID:              staking.ValidatorID(id),
		Owner:           id,
		Moniker:         "moniker-" + id,
		Tokens:          dec("1000"),
		DelegatorShares: dec("1000"),
	}
}

func delegation(validator, shares string) staking.RemoteDelegation {
	return staking.RemoteDelegation{ValidatorAddress: staking.ValidatorID(validator), Shares: dec(shares)}
}

func unbonding(validator, amount string) staking.RemoteUnbonding {
	return staking.RemoteUnbonding{
		ValidatorAddress: staking.ValidatorID(validator),
		Balance:          staking.Coin{Amount: dec(amount), Denom: "atom"},
		MinTime:          time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
	}
}

func delegator(delegations []staking.RemoteDelegation, unbondings ...staking.RemoteUnbonding) staking.Delegator {
	return staking.Delegator{Delegations: delegations, UnbondingDelegations: unbondings}
}

func candidates(ids ...string) staking.CandidateProvider {
	list := make([]staking.Candidate, 0, len(ids))
	for _, id := range ids {
		list = append(list, candidate(id))
	}
	return staking.CandidateProviderFunc(func(context.Context) ([]staking.Candidate, error) {
		return list, nil
	})
}

func failingCandidates() staking.CandidateProvider {
	return staking.CandidateProviderFunc(func(context.Context) ([]staking.Candidate, error) {
		return nil, errTransport
	})
}

func quietLogger() *slog.Logger {
	return logger.Discard()
}

// engineFor wires an engine with a fake clock and a capturing notifier
func engineFor(ledger *fakeLedger, provider staking.CandidateProvider, opts ...staking.Option) (*staking.Engine, *captureNotifier, *fakeClock) {
	clock := newFakeClock()
	notifier := &captureNotifier{}
	base := []staking.Option{
		staking.WithClock(clock),
		staking.WithNotifier(notifier),
		staking.WithLogger(quietLogger()),
	}
	engine := staking.NewEngine(ledger, provider, append(base, opts...)...)
	return engine, notifier, clock
}

// reconciledEngine returns an engine for "alice" already reconciled against ledger
func reconciledEngine(t *testing.T, ledger *fakeLedger, provider staking.CandidateProvider) (*staking.Engine, *captureNotifier, *fakeClock) {
	t.Helper()
	engine, notifier, clock := engineFor(ledger, provider)
	engine.SetAccount("alice")
	require.NoError(t, engine.UpdateDelegates(t.Context()))
	return engine, notifier, clock
}

// Fakes
// -----

// fakeLedger serves delegator snapshots per account
type fakeLedger struct {
	mu         sync.Mutex
	delegators map[string]staking.Delegator
	validators []staking.Candidate
	err        error
	calls      int

	// when set, Delegator signals entered and waits for release
	entered chan string
	release chan struct{}
}

func ledgerWith(account string, d staking.Delegator) *fakeLedger {
	return &fakeLedger{delegators: map[string]staking.Delegator{account: d}}
}

func failingLedger() *fakeLedger {
	return &fakeLedger{err: errTransport}
}

func (l *fakeLedger) set(account string, d staking.Delegator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.delegators == nil {
		l.delegators = make(map[string]staking.Delegator)
	}
	l.delegators[account] = d
}

func (l *fakeLedger) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *fakeLedger) blocking() *fakeLedger {
	l.entered = make(chan string, 1)
	l.release = make(chan struct{})
	return l
}

func (l *fakeLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *fakeLedger) Delegator(ctx context.Context, address string) (staking.Delegator, error) {
	if l.entered != nil {
		l.entered <- address
		select {
		case <-l.release:
		case <-ctx.Done():
			return staking.Delegator{}, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return staking.Delegator{}, l.err
	}
	return l.delegators[address], nil
}

func (l *fakeLedger) DelegatorValidators(_ context.Context, _ string) ([]staking.Candidate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.validators, nil
}

// plainFetcher hides DelegatorValidators
type plainFetcher struct {
	staking.Fetcher
}

// fakeSender records submitted transactions
type fakeSender struct {
	mu     sync.Mutex
	err    error
	txs    []staking.Tx
	onSend func()
}

func (s *fakeSender) Send(_ context.Context, tx staking.Tx) error {
	if s.onSend != nil {
		s.onSend()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.txs = append(s.txs, tx)
	return nil
}

func (s *fakeSender) sent() []staking.Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]staking.Tx(nil), s.txs...)
}

// fakeRecorder captures journaled snapshots
type fakeRecorder struct {
	mu        sync.Mutex
	err       error
	snapshots []staking.Snapshot
}

func (r *fakeRecorder) Record(_ context.Context, s staking.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.snapshots = append(r.snapshots, s)
	return nil
}

// captureNotifier keeps every event in order
type captureNotifier struct {
	mu     sync.Mutex
	events []staking.Event
}

func (n *captureNotifier) Notify(ev staking.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func eventsOf[T any](n *captureNotifier) []T {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []T
	for _, ev := range n.events {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

// fakeClock is a manually advanced clock. AfterFunc callbacks run on the
// goroutine calling Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	tick   chan time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	fn      func()
	settled bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		tick: make(chan time.Time),
	}
}

func (c *fakeClock) After(_ time.Duration) <-chan time.Time {
	return c.tick
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, timer)

	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if timer.settled {
			return false
		}
		timer.settled = true
		return true
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.settled && !timer.at.After(c.now) {
			timer.settled = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	for _, timer := range due {
		timer.fn()
	}
}

// Assertions
// ----------

func assertCommitted(t *testing.T, engine *staking.Engine, want map[string]string) {
	t.Helper()
	got := engine.Committed()
	require.Len(t, got, len(want))
	for id, amount := range want {
		v, ok := got[staking.ValidatorID(id)]
		require.True(t, ok, "expected committed delegation to %s", id)
		assert.True(t, dec(amount).Equal(v), "committed to %s: want %s, got %s", id, amount, v)
	}
}

func assertNoZeroEntries(t *testing.T, engine *staking.Engine) {
	t.Helper()
	for id, v := range engine.Committed() {
		assert.True(t, v.IsPositive(), "committed %s holds %s", id, v)
	}
	for id, u := range engine.Unbonding() {
		assert.True(t, u.Balance.Amount.IsPositive(), "unbonding %s holds %s", id, u.Balance.Amount)
	}
}

func assertCartHas(t *testing.T, engine *staking.Engine, ids ...string) {
	t.Helper()
	entries := engine.Cart().Entries()
	got := make([]string, 0, len(entries))
	for _, entry := range entries {
		got = append(got, string(entry.ID))
	}
	assert.ElementsMatch(t, ids, got)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
