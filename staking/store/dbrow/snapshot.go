package dbrow

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/screwyprof/stakecart/staking"
)

// ErrInvalidNumeric is returned for NULL, NaN or infinite NUMERIC values
var ErrInvalidNumeric = errors.New("invalid numeric value")

// Reconciliation represents a journal header row
type Reconciliation struct {
	ID         int64     `db:"id"`
	Account    string    `db:"account"`
	Generation int64     `db:"generation"`
	RecordedAt time.Time `db:"recorded_at"`
}

// Delegation represents a committed delegation as stored in the database
type Delegation struct {
	ReconciliationID int64          `db:"reconciliation_id"`
	Validator        string         `db:"validator"`
	Shares           pgtype.Numeric `db:"shares"`
}

// Unbonding represents an unbonding entry as stored in the database
type Unbonding struct {
	ReconciliationID int64          `db:"reconciliation_id"`
	Validator        string         `db:"validator"`
	Amount           pgtype.Numeric `db:"amount"`
	Denom            string         `db:"denom"`
	MinTime          time.Time      `db:"min_time"`
}

// DelegationsToRows converts committed delegations to [][]any for pgx.CopyFromRows, ordered by validator
func DelegationsToRows(reconciliationID int64, committed map[staking.ValidatorID]decimal.Decimal) [][]any {
	rows := make([][]any, 0, len(committed))
	for _, id := range sortedKeys(committed) {
		rows = append(rows, []any{reconciliationID, string(id), Numeric(committed[id])})
	}
	return rows
}

// UnbondingsToRows converts unbonding delegations to [][]any for pgx.CopyFromRows, ordered by validator
func UnbondingsToRows(reconciliationID int64, unbonding map[staking.ValidatorID]staking.UnbondingDelegation) [][]any {
	rows := make([][]any, 0, len(unbonding))
	for _, id := range sortedKeys(unbonding) {
		u := unbonding[id]
		rows = append(rows, []any{reconciliationID, string(id), Numeric(u.Balance.Amount), u.Balance.Denom, u.MinTime})
	}
	return rows
}

// Numeric converts d without loss of precision
func Numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// Decimal converts a finite, non-NULL NUMERIC
func Decimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Zero, ErrInvalidNumeric
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

// ToSnapshot assembles a domain snapshot from its rows
func ToSnapshot(r Reconciliation, delegations []Delegation, unbondings []Unbonding) (staking.Snapshot, error) {
	s := staking.Snapshot{
		Account:    r.Account,
		Generation: uint64(r.Generation),
		At:         r.RecordedAt,
		Committed:  make(map[staking.ValidatorID]decimal.Decimal, len(delegations)),
		Unbonding:  make(map[staking.ValidatorID]staking.UnbondingDelegation, len(unbondings)),
	}

	for _, d := range delegations {
		shares, err := Decimal(d.Shares)
		if err != nil {
			return staking.Snapshot{}, fmt.Errorf("delegation %s: %w", d.Validator, err)
		}
		s.Committed[staking.ValidatorID(d.Validator)] = shares
	}

	for _, u := range unbondings {
		amount, err := Decimal(u.Amount)
		if err != nil {
			return staking.Snapshot{}, fmt.Errorf("unbonding %s: %w", u.Validator, err)
		}
		s.Unbonding[staking.ValidatorID(u.Validator)] = staking.UnbondingDelegation{
			MinTime: u.MinTime,
			Balance: staking.Coin{Amount: amount, Denom: u.Denom},
		}
	}

	return s, nil
}

func sortedKeys[V any](m map[staking.ValidatorID]V) []staking.ValidatorID {
	keys := make([]staking.ValidatorID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
