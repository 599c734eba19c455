package bind

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/web/api"
)

// History limits
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// Sentinel errors for request binding
var (
	ErrInvalidLimit = errors.New("invalid limit parameter")

	ErrLimitNotNumeric  = errors.New("limit must be numeric")
	ErrLimitOutOfBounds = fmt.Errorf("limit must be between 1 and %d", MaxHistoryLimit)
)

// GetHistoryRequest binds HTTP request to HistoryRequest with defaults
func GetHistoryRequest(r *http.Request) (api.HistoryRequest, error) {
	req := api.HistoryRequest{
		Limit: DefaultHistoryLimit,
	}

	query := r.URL.Query()
	req.Account = query.Get("account")

	if limitParam := query.Get("limit"); limitParam != "" {
		limit, err := parseLimit(limitParam)
		if err != nil {
			return req, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
		}
		req.Limit = limit
	}

	return req, nil
}

func parseLimit(limitParam string) (int, error) {
	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		return 0, ErrLimitNotNumeric
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return 0, ErrLimitOutOfBounds
	}
	return limit, nil
}

// GetStateResponse binds the engine state to API response format.
// Committed and unbonding entries are ordered by validator.
func GetStateResponse(state staking.State) api.StateResponse {
	cart := make([]api.CartEntry, len(state.Cart))
	for i, entry := range state.Cart {
		cart[i] = api.CartEntry{
			Validator: string(entry.ID),
			Moniker:   entry.Delegate.Moniker,
			Amount:    entry.Amount.String(),
		}
	}

	return api.StateResponse{
		Account:      state.Account,
		Loading:      state.Loading,
		LoadedOnce:   state.LoadedOnce,
		TotalBalance: state.TotalBalance.String(),
		Cart:         cart,
		Committed:    delegations(state.Committed),
		Unbonding:    unbondings(state.Unbonding),
	}
}

// GetHistoryResponse binds journaled snapshots to API response format
func GetHistoryResponse(account string, snapshots []staking.Snapshot) api.HistoryResponse {
	data := make([]api.Snapshot, len(snapshots))
	for i, s := range snapshots {
		data[i] = api.Snapshot{
			Generation: s.Generation,
			RecordedAt: s.At.UTC().Format(time.RFC3339),
			Committed:  delegations(s.Committed),
			Unbonding:  unbondings(s.Unbonding),
		}
	}

	return api.HistoryResponse{
		Account: account,
		Data:    data,
	}
}

func delegations(committed map[staking.ValidatorID]decimal.Decimal) []api.Delegation {
	out := make([]api.Delegation, 0, len(committed))
	for _, id := range sortedIDs(committed) {
		out = append(out, api.Delegation{
			Validator: string(id),
			Shares:    committed[id].String(),
		})
	}
	return out
}

func unbondings(unbonding map[staking.ValidatorID]staking.UnbondingDelegation) []api.Unbonding {
	out := make([]api.Unbonding, 0, len(unbonding))
	for _, id := range sortedIDs(unbonding) {
		u := unbonding[id]
		out = append(out, api.Unbonding{
			Validator: string(id),
			Amount:    u.Balance.Amount.String(),
			Denom:     u.Balance.Denom,
			MinTime:   u.MinTime.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func sortedIDs[V any](m map[staking.ValidatorID]V) []staking.ValidatorID {
	ids := make([]staking.ValidatorID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
