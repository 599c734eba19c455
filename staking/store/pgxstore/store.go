package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/staking/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrInsertFailed      = errors.New("insert operation failed")
	ErrCopyFailed        = errors.New("bulk copy operation failed")
	ErrQueryFailed       = errors.New("journal query failed")
)

// Journal implements staking.Recorder using pgx and reads the recorded history back
type Journal struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL journal with an existing connection pool
// Returns the journal and a closer function
func New(pool *pgxpool.Pool) (*Journal, func()) {
	journal := &Journal{pool: pool}
	closer := func() {
		pool.Close()
	}
	return journal, closer
}

// Record stores s in one transaction: a header row, then its delegations and
// unbonding entries via CopyFrom.
func (j *Journal) Record(ctx context.Context, s staking.Snapshot) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if commit succeeds

	var id int64
	err = tx.QueryRow(ctx, insertReconciliationSQL, s.Account, int64(s.Generation), s.At).Scan(&id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}

	if len(s.Committed) > 0 {
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"reconciled_delegations"},
			[]string{"reconciliation_id", "validator", "shares"},
			pgx.CopyFromRows(dbrow.DelegationsToRows(id, s.Committed)),
		)
		if err != nil {
			return fmt.Errorf("%w: delegations: %w", ErrCopyFailed, err)
		}
	}

	if len(s.Unbonding) > 0 {
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"reconciled_unbondings"},
			[]string{"reconciliation_id", "validator", "amount", "denom", "min_time"},
			pgx.CopyFromRows(dbrow.UnbondingsToRows(id, s.Unbonding)),
		)
		if err != nil {
			return fmt.Errorf("%w: unbondings: %w", ErrCopyFailed, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	return nil
}

// History returns up to limit snapshots recorded for account, most recent first
func (j *Journal) History(ctx context.Context, account string, limit int) ([]staking.Snapshot, error) {
	query, args := NewHistoryQuery().ForAccount(account, limit).Build()

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	headers, err := pgx.CollectRows(rows, pgx.RowToStructByName[dbrow.Reconciliation])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	if len(headers) == 0 {
		return []staking.Snapshot{}, nil
	}

	ids := make([]int64, 0, len(headers))
	for _, h := range headers {
		ids = append(ids, h.ID)
	}

	delegations, err := collect[dbrow.Delegation](ctx, j.pool, delegationsForSQL, ids)
	if err != nil {
		return nil, err
	}
	unbondings, err := collect[dbrow.Unbonding](ctx, j.pool, unbondingsForSQL, ids)
	if err != nil {
		return nil, err
	}

	delegationsByID := groupBy(delegations, func(d dbrow.Delegation) int64 { return d.ReconciliationID })
	unbondingsByID := groupBy(unbondings, func(u dbrow.Unbonding) int64 { return u.ReconciliationID })

	snapshots := make([]staking.Snapshot, 0, len(headers))
	for _, h := range headers {
		s, err := dbrow.ToSnapshot(h, delegationsByID[h.ID], unbondingsByID[h.ID])
		if err != nil {
			return nil, fmt.Errorf("%w: reconciliation %d: %w", ErrQueryFailed, h.ID, err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, query string, ids []int64) ([]T, error) {
	rows, err := pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return items, nil
}

func groupBy[T any](items []T, key func(T) int64) map[int64][]T {
	grouped := make(map[int64][]T)
	for _, item := range items {
		k := key(item)
		grouped[k] = append(grouped[k], item)
	}
	return grouped
}
