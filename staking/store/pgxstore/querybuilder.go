package pgxstore

import (
	"fmt"
)

// SQL queries
const (
	baseHistoryQuery = "SELECT id, account, generation, recorded_at FROM reconciliations"

	insertReconciliationSQL = `
		INSERT INTO reconciliations (account, generation, recorded_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	delegationsForSQL = `
		SELECT reconciliation_id, validator, shares
		FROM reconciled_delegations
		WHERE reconciliation_id = ANY($1)
		ORDER BY reconciliation_id, validator`

	unbondingsForSQL = `
		SELECT reconciliation_id, validator, amount, denom, min_time
		FROM reconciled_unbondings
		WHERE reconciliation_id = ANY($1)
		ORDER BY reconciliation_id, validator`
)

// HistoryQueryBuilder provides a domain-specific language for building journal queries
type HistoryQueryBuilder struct {
	sql  string
	args []any
}

// NewHistoryQuery creates a new journal query builder
func NewHistoryQuery() *HistoryQueryBuilder {
	return &HistoryQueryBuilder{
		sql: baseHistoryQuery,
	}
}

// ForAccount restricts the query to one account's latest limit reconciliations
func (q *HistoryQueryBuilder) ForAccount(account string, limit int) *HistoryQueryBuilder {
	return q.
		filterByAccount(account).
		orderByRecordedDesc().
		limit(limit)
}

func (q *HistoryQueryBuilder) filterByAccount(account string) *HistoryQueryBuilder {
	q.addWhereCondition("account = $%d", account)
	return q
}

// orderByRecordedDesc puts the most recent reconciliation first; id breaks ties
func (q *HistoryQueryBuilder) orderByRecordedDesc() *HistoryQueryBuilder {
	q.sql += " ORDER BY recorded_at DESC, id DESC"
	return q
}

func (q *HistoryQueryBuilder) limit(n int) *HistoryQueryBuilder {
	if n > 0 {
		q.addParameter("LIMIT $%d", n)
	}
	return q
}

// Build returns the final SQL query and arguments
func (q *HistoryQueryBuilder) Build() (string, []any) {
	return q.sql, q.args
}

// addWhereCondition adds a WHERE condition, handling AND logic automatically
func (q *HistoryQueryBuilder) addWhereCondition(sqlClause string, value any) {
	placeholder := q.nextPlaceholder()

	if len(q.args) > 0 {
		q.sql += " AND " + fmt.Sprintf(sqlClause, placeholder)
	} else {
		q.sql += " WHERE " + fmt.Sprintf(sqlClause, placeholder)
	}

	q.args = append(q.args, value)
}

func (q *HistoryQueryBuilder) addParameter(sqlClause string, value any) {
	placeholder := q.nextPlaceholder()
	q.sql += " " + fmt.Sprintf(sqlClause, placeholder)
	q.args = append(q.args, value)
}

// nextPlaceholder returns the next PostgreSQL placeholder ($1, $2, etc.)
func (q *HistoryQueryBuilder) nextPlaceholder() int {
	return len(q.args) + 1
}
