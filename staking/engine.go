package staking

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/shopspring/decimal"
)

// Failure titles reported to the UI layer
const (
	titleCandidatesFailed   = "Error fetching validators"
	titleDelegationsFailed  = "Error fetching your delegations"
	titleMyValidatorsFailed = "Error fetching all your bonded validators"
)

// token identifies the account and generation a fetch was started for.
// Any SetAccount or Reset bumps the generation and invalidates older tokens.
type token struct {
	account    string
	generation uint64
}

// Engine reconciles the committed and unbonding delegations of the active
// account, and the cart, against full snapshots fetched from the ledger.
// --------------------------------------------------------------------------
type Engine struct {
	fetcher    Fetcher
	candidates CandidateProvider
	clock      Clock
	notifier   Notifier
	log        *slog.Logger
	recorder   Recorder
	cart       *Cart

	mu           sync.Mutex
	account      string
	generation   uint64
	inflight     int
	loadedOnce   bool
	committed    map[ValidatorID]decimal.Decimal
	unbonding    map[ValidatorID]UnbondingDelegation
	myValidators []Candidate
}

// NewEngine constructs an Engine with its remote collaborators and options
func NewEngine(fetcher Fetcher, candidates CandidateProvider, opts ...Option) *Engine {
	o := newOptions(opts)
	cart := o.cart
	if cart == nil {
		cart = NewCart()
	}
	return &Engine{
		fetcher:    fetcher,
		candidates: candidates,
		clock:      o.clock,
		notifier:   o.notifier,
		log:        o.logger,
		recorder:   o.recorder,
		cart:       cart,
		committed:  make(map[ValidatorID]decimal.Decimal),
		unbonding:  make(map[ValidatorID]UnbondingDelegation),
	}
}

// Session
// -------

// SetAccount activates account (empty on sign-out) and resets all state.
// Fetches still in flight for the previous account are discarded on arrival.
func (e *Engine) SetAccount(account string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.account = account
	e.resetLocked()
}

// Reset empties the cart, committed and unbonding delegations. The active
// account stays, but fetches already in flight are discarded.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.generation++
	e.inflight = 0
	e.loadedOnce = false
	e.committed = make(map[ValidatorID]decimal.Decimal)
	e.unbonding = make(map[ValidatorID]UnbondingDelegation)
	e.myValidators = nil
	e.cart.Clear()
}

// Account returns the active account
func (e *Engine) Account() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account
}

// Reconciliation
// --------------

// Reconcile replaces the local view of account with the ledger's snapshot.
// A nil candidates slice is fetched from the CandidateProvider first.
// If the active account changed while fetching, the result is dropped and
// Reconcile returns nil.
func (e *Engine) Reconcile(ctx context.Context, account string, candidates []Candidate) error {
	if account == "" {
		return ErrNoAccount
	}

	start := e.clock.Now()
	tok := e.begin(account)

	if candidates == nil {
		var err error
		candidates, err = e.candidates.Candidates(ctx)
		if err != nil {
			return e.fail(ctx, tok, titleCandidatesFailed, fmt.Errorf("%w: %w", ErrCandidatesFailed, err))
		}
	}

	delegator, err := e.fetcher.Delegator(ctx, account)
	if err != nil {
		return e.fail(ctx, tok, titleDelegationsFailed, fmt.Errorf("%w: %w", ErrFetchFailed, err))
	}

	e.mu.Lock()
	if !e.isCurrentLocked(tok) {
		active := e.account
		e.endLocked(tok)
		e.mu.Unlock()
		e.discard(ctx, tok, active)
		return nil
	}
	missing, added := e.applyLocked(delegator, candidates)
	e.endLocked(tok)
	e.loadedOnce = true
	snapshot := e.snapshotLocked(tok)
	e.mu.Unlock()

	for _, id := range missing {
		e.log.WarnContext(ctx, "Delegated validator not found among candidates",
			slog.String("account", account),
			slog.String("validator", string(id)),
		)
		e.notifier.Notify(CandidateMissing{Account: account, Validator: id})
	}

	e.record(ctx, snapshot)

	duration := e.clock.Now().Sub(start)
	e.log.InfoContext(ctx, "Delegations reconciled",
		slog.String("account", account),
		slog.Int("committed", len(snapshot.Committed)),
		slog.Int("unbonding", len(snapshot.Unbonding)),
		slog.Duration("duration", duration),
	)
	e.notifier.Notify(Reconciled{
		Account:    account,
		Committed:  len(snapshot.Committed),
		Unbonding:  len(snapshot.Unbonding),
		CartAdded:  added,
		Duration:   duration,
		Generation: tok.generation,
	})
	return nil
}

// UpdateDelegates refreshes the candidate list and reconciles the active account
func (e *Engine) UpdateDelegates(ctx context.Context) error {
	return e.Reconcile(ctx, e.Account(), nil)
}

// Reconnected re-issues a reconciliation if one was in flight when the
// transport dropped.
func (e *Engine) Reconnected(ctx context.Context) error {
	e.mu.Lock()
	loading := e.inflight > 0
	account := e.account
	e.mu.Unlock()

	if !loading {
		return nil
	}
	e.log.InfoContext(ctx, "Reconnected while loading, reconciling again", slog.String("account", account))
	return e.Reconcile(ctx, account, nil)
}

// LoadDelegatorValidators fetches the validators the active account is bonded to
func (e *Engine) LoadDelegatorValidators(ctx context.Context) error {
	fetcher, ok := e.fetcher.(DelegatorValidatorsFetcher)
	if !ok {
		return fmt.Errorf("%w: delegator validators", ErrUnsupported)
	}

	account := e.Account()
	if account == "" {
		return ErrNoAccount
	}
	tok := e.begin(account)

	validators, err := fetcher.DelegatorValidators(ctx, account)
	if err != nil {
		return e.fail(ctx, tok, titleMyValidatorsFailed, fmt.Errorf("%w: %w", ErrFetchFailed, err))
	}

	e.mu.Lock()
	if !e.isCurrentLocked(tok) {
		active := e.account
		e.endLocked(tok)
		e.mu.Unlock()
		e.discard(ctx, tok, active)
		return nil
	}
	e.myValidators = validators
	e.endLocked(tok)
	e.mu.Unlock()
	return nil
}

// applyLocked writes the snapshot into the committed and unbonding maps,
// prunes what the ledger no longer reports and makes sure every positive
// delegation has a cart entry. It returns the validators that could not be
// matched to a candidate and the number of cart entries added.
func (e *Engine) applyLocked(d Delegator, candidates []Candidate) ([]ValidatorID, int) {
	var missing []ValidatorID
	added := 0

	reported := make(map[ValidatorID]struct{}, len(d.Delegations))
	for _, rd := range d.Delegations {
		reported[rd.ValidatorAddress] = struct{}{}
		e.setCommittedLocked(rd.ValidatorAddress, rd.Shares)

		if !rd.Shares.IsPositive() {
			continue
		}
		candidate, ok := findCandidate(candidates, rd.ValidatorAddress)
		if !ok {
			missing = append(missing, rd.ValidatorAddress)
			continue
		}
		if e.cart.Add(candidate) {
			added++
		}
	}
	for id := range e.committed {
		if _, ok := reported[id]; !ok {
			e.setCommittedLocked(id, decimal.Zero)
		}
	}

	reported = make(map[ValidatorID]struct{}, len(d.UnbondingDelegations))
	for _, ru := range d.UnbondingDelegations {
		reported[ru.ValidatorAddress] = struct{}{}
		e.setUnbondingLocked(ru.ValidatorAddress, UnbondingDelegation{
			MinTime: ru.MinTime,
			Balance: ru.Balance,
		})
	}
	for id := range e.unbonding {
		if _, ok := reported[id]; !ok {
			e.setUnbondingLocked(id, UnbondingDelegation{Balance: Coin{Amount: decimal.Zero}})
		}
	}

	return missing, added
}

// setCommittedLocked stores value, removing the key for anything not positive
func (e *Engine) setCommittedLocked(id ValidatorID, value decimal.Decimal) {
	if !value.IsPositive() {
		delete(e.committed, id)
		return
	}
	e.committed[id] = value
}

// setUnbondingLocked stores u, removing the key when the balance is zero
func (e *Engine) setUnbondingLocked(id ValidatorID, u UnbondingDelegation) {
	if !u.Balance.Amount.IsPositive() {
		delete(e.unbonding, id)
		return
	}
	e.unbonding[id] = u
}

func findCandidate(candidates []Candidate, addr ValidatorID) (Candidate, bool) {
	for _, c := range candidates {
		if c.matches(addr) {
			return c, true
		}
	}
	return Candidate{}, false
}

// Tokens and loading bookkeeping
// ------------------------------

// begin marks a fetch for account as in flight and returns its token
func (e *Engine) begin(account string) token {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight++
	return token{account: account, generation: e.generation}
}

// current returns a token for the active account without marking anything in flight
func (e *Engine) current() token {
	e.mu.Lock()
	defer e.mu.Unlock()
	return token{account: e.account, generation: e.generation}
}

func (e *Engine) isCurrentLocked(tok token) bool {
	return tok.generation == e.generation && tok.account == e.account
}

// endLocked clears the in-flight mark of tok. Marks from an older generation
// were already dropped by the reset, so the loading flag of newer fetches is
// left alone.
func (e *Engine) endLocked(tok token) {
	if tok.generation == e.generation && e.inflight > 0 {
		e.inflight--
	}
}

func (e *Engine) fail(ctx context.Context, tok token, title string, err error) error {
	e.mu.Lock()
	current := e.isCurrentLocked(tok)
	active := e.account
	e.endLocked(tok)
	e.mu.Unlock()

	if !current {
		e.discard(ctx, tok, active)
		return nil
	}

	e.log.ErrorContext(ctx, title, slog.String("account", tok.account), slog.Any("error", err))
	e.notifier.Notify(ReconcileFailed{Account: tok.account, Title: title, Err: err})
	return err
}

func (e *Engine) discard(ctx context.Context, tok token, active string) {
	e.log.InfoContext(ctx, "Discarding result for inactive account",
		slog.String("account", tok.account),
		slog.String("active", active),
	)
	e.notifier.Notify(ReconcileDiscarded{Account: tok.account, Active: active})
}

func (e *Engine) snapshotLocked(tok token) Snapshot {
	return Snapshot{
		Account:    tok.account,
		Generation: tok.generation,
		At:         e.clock.Now(),
		Committed:  maps.Clone(e.committed),
		Unbonding:  maps.Clone(e.unbonding),
	}
}

func (e *Engine) record(ctx context.Context, s Snapshot) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, s); err != nil {
		e.log.ErrorContext(ctx, "Failed to record reconciliation", slog.String("account", s.Account), slog.Any("error", err))
		e.notifier.Notify(RecordFailed{Account: s.Account, Err: err})
	}
}

// Optimistic updates used by the Coordinator
// ------------------------------------------

// addToBalance applies delta to the total balance if tok is still current
func (e *Engine) addToBalance(tok token, delta decimal.Decimal) (decimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isCurrentLocked(tok) {
		return decimal.Zero, false
	}
	return e.cart.AddToTotalBalance(delta), true
}

// clearUnbonding zeroes the unbonding entry of id if tok is still current
func (e *Engine) clearUnbonding(tok token, id ValidatorID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isCurrentLocked(tok) {
		return false
	}
	e.setUnbondingLocked(id, UnbondingDelegation{Balance: Coin{Amount: decimal.Zero}})
	return true
}

// Read access
// -----------

// Cart returns the cart store
func (e *Engine) Cart() *Cart {
	return e.cart
}

// Committed returns a copy of the committed delegations
func (e *Engine) Committed() map[ValidatorID]decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.committed)
}

// CommittedAmount returns the committed shares for id, zero when absent
func (e *Engine) CommittedAmount(id ValidatorID) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.committed[id]; ok {
		return v
	}
	return decimal.Zero
}

// Unbonding returns a copy of the unbonding delegations
func (e *Engine) Unbonding() map[ValidatorID]UnbondingDelegation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.unbonding)
}

// UnbondingEntry returns the unbonding delegation for id
func (e *Engine) UnbondingEntry(id ValidatorID) (UnbondingDelegation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.unbonding[id]
	return u, ok
}

// DelegatorValidators returns the validators loaded by LoadDelegatorValidators
func (e *Engine) DelegatorValidators() []Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Candidate(nil), e.myValidators...)
}

// Loading reports whether a fetch for the active account is in flight
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight > 0
}

// LoadedOnce reports whether a reconciliation has completed since the last reset
func (e *Engine) LoadedOnce() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadedOnce
}

// State returns a consistent copy of everything the engine tracks
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Account:      e.account,
		Loading:      e.inflight > 0,
		LoadedOnce:   e.loadedOnce,
		TotalBalance: e.cart.TotalBalance(),
		Cart:         e.cart.Entries(),
		Committed:    maps.Clone(e.committed),
		Unbonding:    maps.Clone(e.unbonding),
	}
}
