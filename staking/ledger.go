package staking

import (
	"context"

	"github.com/screwyprof/stakecart/pkg/lcd"
)

// LCDClient fetches staking data from a light client daemon
// ----------------------------------------------------------
type LCDClient interface {
	GetDelegator(ctx context.Context, address string) (lcd.Delegator, error)
	GetValidators(ctx context.Context) ([]lcd.Validator, error)
	GetDelegatorValidators(ctx context.Context, address string) ([]lcd.Validator, error)
}

// Ledger adapts an LCDClient to Fetcher, DelegatorValidatorsFetcher and
// CandidateProvider.
type Ledger struct {
	client LCDClient
}

// NewLedger wraps client
func NewLedger(client LCDClient) *Ledger {
	return &Ledger{client: client}
}

// Delegator implements Fetcher
func (l *Ledger) Delegator(ctx context.Context, address string) (Delegator, error) {
	resp, err := l.client.GetDelegator(ctx, address)
	if err != nil {
		return Delegator{}, err
	}

	d := Delegator{
		Delegations:          make([]RemoteDelegation, 0, len(resp.Delegations)),
		UnbondingDelegations: make([]RemoteUnbonding, 0, len(resp.UnbondingDelegations)),
	}
	for _, rd := range resp.Delegations {
		d.Delegations = append(d.Delegations, RemoteDelegation{
			ValidatorAddress: ValidatorID(rd.ValidatorAddr),
			Shares:           rd.Shares,
		})
	}
	for _, ru := range resp.UnbondingDelegations {
		d.UnbondingDelegations = append(d.UnbondingDelegations, RemoteUnbonding{
			ValidatorAddress: ValidatorID(ru.ValidatorAddr),
			Balance:          Coin{Amount: ru.Balance.Amount, Denom: ru.Balance.Denom},
			MinTime:          ru.MinTime,
		})
	}
	return d, nil
}

// DelegatorValidators implements DelegatorValidatorsFetcher
func (l *Ledger) DelegatorValidators(ctx context.Context, address string) ([]Candidate, error) {
	validators, err := l.client.GetDelegatorValidators(ctx, address)
	if err != nil {
		return nil, err
	}
	return toCandidates(validators), nil
}

// Candidates implements CandidateProvider
func (l *Ledger) Candidates(ctx context.Context) ([]Candidate, error) {
	validators, err := l.client.GetValidators(ctx)
	if err != nil {
		return nil, err
	}
	return toCandidates(validators), nil
}

func toCandidates(validators []lcd.Validator) []Candidate {
	candidates := make([]Candidate, 0, len(validators))
	for _, v := range validators {
		candidates = append(candidates, Candidate{
			ID:              ValidatorID(v.OperatorAddress),
			Owner:           v.Owner,
			Moniker:         v.Description.Moniker,
			Tokens:          v.Tokens,
			DelegatorShares: v.DelegatorShares,
			Commission:      v.Commission.Rate,
		})
	}
	return candidates
}
