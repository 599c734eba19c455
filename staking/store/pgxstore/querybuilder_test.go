package pgxstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/screwyprof/stakecart/staking/store/pgxstore"
)

func TestHistoryQueryBuilder(t *testing.T) {
	t.Parallel()

	t.Run("it selects the latest reconciliations of an account", func(t *testing.T) {
		t.Parallel()

		// Act
		query, args := pgxstore.NewHistoryQuery().ForAccount("alice", 10).Build()

		// Assert
		assert.Equal(t,
			"SELECT id, account, generation, recorded_at FROM reconciliations WHERE account = $1 ORDER BY recorded_at DESC, id DESC LIMIT $2",
			query)
		assert.Equal(t, []any{"alice", 10}, args)
	})

	t.Run("it omits the limit when not positive", func(t *testing.T) {
		t.Parallel()

		// Act
		query, args := pgxstore.NewHistoryQuery().ForAccount("alice", 0).Build()

		// Assert
		assert.NotContains(t, query, "LIMIT")
		assert.Equal(t, []any{"alice"}, args)
	})
}
