// Package staking keeps a local view of an account's delegations and
// unbonding requests in line with the remote ledger, while letting cart edits
// and submitted transactions show up before the ledger confirms them.
package staking

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors for failure cases
var (
	ErrNotFound         = errors.New("not found")
	ErrNoAccount        = errors.New("no active account")
	ErrFetchFailed      = errors.New("delegator fetch failed")
	ErrCandidatesFailed = errors.New("candidates fetch failed")
	ErrSubmitFailed     = errors.New("transaction submission failed")
	ErrUnsupported      = errors.New("operation not supported by fetcher")
)

// Default configuration values
const (
	DefaultReconcileDelay = 5 * time.Second
	DefaultPollInterval   = 30 * time.Second
)

// ValidatorID identifies a validator by its operator address
type ValidatorID string

// Candidate is a validator that can receive delegations
type Candidate struct {
	ID              ValidatorID
	Owner           string
	Moniker         string
	Tokens          decimal.Decimal
	DelegatorShares decimal.Decimal
	Commission      decimal.Decimal
}

// matches reports whether the candidate is the validator known remotely as addr.
// The ledger reports the owner address; the id is accepted as a fallback.
func (c Candidate) matches(addr ValidatorID) bool {
	if c.Owner != "" {
		return c.Owner == string(addr)
	}
	return c.ID == addr
}

// Coin is an amount of a single denomination
type Coin struct {
	Amount decimal.Decimal
	Denom  string
}

// UnbondingDelegation is an undelegation waiting for MinTime to pass
type UnbondingDelegation struct {
	MinTime time.Time
	Balance Coin
}

// Remote ledger shapes
// --------------------

// RemoteDelegation is a confirmed delegation as reported by the ledger
type RemoteDelegation struct {
	ValidatorAddress ValidatorID
	Shares           decimal.Decimal
}

// RemoteUnbonding is a pending unbonding entry as reported by the ledger
type RemoteUnbonding struct {
	ValidatorAddress ValidatorID
	Balance          Coin
	MinTime          time.Time
}

// Delegator is the ledger's complete snapshot for one account
type Delegator struct {
	Delegations          []RemoteDelegation
	UnbondingDelegations []RemoteUnbonding
}

// External collaborators
// ----------------------

// Fetcher returns the confirmed delegation state of an account
type Fetcher interface {
	Delegator(ctx context.Context, address string) (Delegator, error)
}

// DelegatorValidatorsFetcher is implemented by fetchers that can list the
// validators an account is bonded to.
type DelegatorValidatorsFetcher interface {
	DelegatorValidators(ctx context.Context, address string) ([]Candidate, error)
}

// CandidateProvider supplies the known delegation targets
type CandidateProvider interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}

// CandidateProviderFunc adapts a function to CandidateProvider
type CandidateProviderFunc func(ctx context.Context) ([]Candidate, error)

// Candidates implements CandidateProvider
func (f CandidateProviderFunc) Candidates(ctx context.Context) ([]Candidate, error) {
	return f(ctx)
}

// TxSender submits a transaction to the ledger. The returned error carries a
// human-readable message.
type TxSender interface {
	Send(ctx context.Context, tx Tx) error
}

// TokenCalculator converts a committed share amount into tokens
type TokenCalculator interface {
	TokensFor(c Candidate, shares decimal.Decimal) decimal.Decimal
}

// Recorder persists applied reconciliations
type Recorder interface {
	Record(ctx context.Context, s Snapshot) error
}

// Clock abstracts time for production and testing
// ------------------------------------------------
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// Transactions
// ------------

// TxKind is the staking message a submission carries
type TxKind string

const (
	KindDelegation           TxKind = "delegation"
	KindBeginUnbonding       TxKind = "begin_unbonding"
	KindCompleteUnbonding    TxKind = "complete_unbonding"
	KindBeginRedelegation    TxKind = "begin_redelegation"
	KindCompleteRedelegation TxKind = "complete_redelegation"
)

// TxTypeUpdateDelegations is the transaction type understood by the pipeline
const TxTypeUpdateDelegations = "updateDelegations"

// DelegationLine asks to set the delegation to a validator to Amount tokens
type DelegationLine struct {
	ValidatorAddress ValidatorID
	Amount           Coin
}

// UnbondingLine asks to unbond Shares from a validator
type UnbondingLine struct {
	ValidatorAddress ValidatorID
	Shares           decimal.Decimal
}

// RedelegationLine moves Shares from one validator to another
type RedelegationLine struct {
	SrcValidatorAddress ValidatorID
	DstValidatorAddress ValidatorID
	Shares              decimal.Decimal
}

// CompleteUnbondingLine releases a matured unbonding entry
type CompleteUnbondingLine struct {
	DelegatorAddress string
	ValidatorAddress ValidatorID
}

// StakeTx is the caller-built payload of a delegation change
type StakeTx struct {
	Delegations        []DelegationLine
	BeginUnbondings    []UnbondingLine
	BeginRedelegations []RedelegationLine
	CompleteUnbondings []CompleteUnbondingLine
}

// Tx is what gets handed to the TxSender
type Tx struct {
	Type string
	To   string
	StakeTx
}

// Read models
// -----------

// Snapshot is the state applied by one reconciliation
type Snapshot struct {
	Account    string
	Generation uint64
	At         time.Time
	Committed  map[ValidatorID]decimal.Decimal
	Unbonding  map[ValidatorID]UnbondingDelegation
}

// State is a consistent copy of everything the engine tracks, for display
type State struct {
	Account      string
	Loading      bool
	LoadedOnce   bool
	TotalBalance decimal.Decimal
	Cart         []CartEntry
	Committed    map[ValidatorID]decimal.Decimal
	Unbonding    map[ValidatorID]UnbondingDelegation
}
