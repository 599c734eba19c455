package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecart/staking"
	"github.com/screwyprof/stakecart/web/api"
	"github.com/screwyprof/stakecart/web/handler"
)

var errJournalDown = errors.New("journal down")

func TestStakingGetState(t *testing.T) {
	t.Parallel()

	t.Run("it renders the engine state with entries ordered by validator", func(t *testing.T) {
		t.Parallel()

		// Arrange
		reader := stateReader{state: staking.State{
			Account:      "alice",
			LoadedOnce:   true,
			TotalBalance: decimal.RequireFromString("97.5"),
			Cart: []staking.CartEntry{
				{ID: "v1", Delegate: staking.Candidate{ID: "v1", Moniker: "one"}, Amount: decimal.RequireFromString("3")},
			},
			Committed: map[staking.ValidatorID]decimal.Decimal{
				"v2": decimal.RequireFromString("2"),
				"v1": decimal.RequireFromString("1.5"),
			},
			Unbonding: map[staking.ValidatorID]staking.UnbondingDelegation{
				"v3": {
					MinTime: time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
					Balance: staking.Coin{Amount: decimal.RequireFromString("10"), Denom: "atom"},
				},
			},
		}}
		mux := http.NewServeMux()
		handler.NewStakingGetState(reader).AddRoutes(mux)

		// Act
		rec := serve(mux, "/delegations")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

		resp := decode[api.StateResponse](t, rec)
		assert.Equal(t, "alice", resp.Account)
		assert.True(t, resp.LoadedOnce)
		assert.False(t, resp.Loading)
		assert.Equal(t, "97.5", resp.TotalBalance)
		assert.Equal(t, []api.CartEntry{{Validator: "v1", Moniker: "one", Amount: "3"}}, resp.Cart)
		assert.Equal(t, []api.Delegation{{Validator: "v1", Shares: "1.5"}, {Validator: "v2", Shares: "2"}}, resp.Committed)
		assert.Equal(t, []api.Unbonding{{Validator: "v3", Amount: "10", Denom: "atom", MinTime: "2024-01-22T00:00:00Z"}}, resp.Unbonding)
	})

	t.Run("it renders empty collections as empty arrays", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := http.NewServeMux()
		handler.NewStakingGetState(stateReader{}).AddRoutes(mux)

		// Act
		rec := serve(mux, "/delegations")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"account": "",
			"loading": false,
			"loaded_once": false,
			"total_balance": "0",
			"cart": [],
			"committed": [],
			"unbonding": []
		}`, rec.Body.String())
	})
}

func TestStakingGetHistory(t *testing.T) {
	t.Parallel()

	t.Run("it returns journaled snapshots for the active account", func(t *testing.T) {
		t.Parallel()

		// Arrange
		finder := &historyFinder{snapshots: []staking.Snapshot{{
			Account:    "alice",
			Generation: 2,
			At:         time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC),
			Committed:  map[staking.ValidatorID]decimal.Decimal{"v1": decimal.RequireFromString("4")},
		}}}
		mux := http.NewServeMux()
		handler.NewStakingGetHistory(finder, accountReader("alice")).AddRoutes(mux)

		// Act
		rec := serve(mux, "/delegations/history")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", finder.account)
		assert.Equal(t, 10, finder.limit)

		resp := decode[api.HistoryResponse](t, rec)
		assert.Equal(t, "alice", resp.Account)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, uint64(2), resp.Data[0].Generation)
		assert.Equal(t, "2024-01-01T00:01:00Z", resp.Data[0].RecordedAt)
		assert.Equal(t, []api.Delegation{{Validator: "v1", Shares: "4"}}, resp.Data[0].Committed)
		assert.Empty(t, resp.Data[0].Unbonding)
	})

	t.Run("it honours the account and limit query parameters", func(t *testing.T) {
		t.Parallel()

		// Arrange
		finder := &historyFinder{}
		mux := http.NewServeMux()
		handler.NewStakingGetHistory(finder, accountReader("alice")).AddRoutes(mux)

		// Act
		rec := serve(mux, "/delegations/history?account=bob&limit=3")

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bob", finder.account)
		assert.Equal(t, 3, finder.limit)
		assert.JSONEq(t, `{"account": "bob", "data": []}`, rec.Body.String())
	})

	t.Run("it rejects an invalid limit", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			query   string
			message string
		}{
			{"non-numeric", "limit=abc", "invalid limit parameter: limit must be numeric"},
			{"zero", "limit=0", "invalid limit parameter: limit must be between 1 and 100"},
			{"too large", "limit=101", "invalid limit parameter: limit must be between 1 and 100"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// Arrange
				finder := &historyFinder{}
				mux := http.NewServeMux()
				handler.NewStakingGetHistory(finder, accountReader("alice")).AddRoutes(mux)

				// Act
				rec := serve(mux, "/delegations/history?"+tt.query)

				// Assert
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.JSONEq(t, `{"code": 400, "message": "`+tt.message+`"}`, rec.Body.String())
				assert.Zero(t, finder.calls)
			})
		}
	})

	t.Run("it requires an account", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := http.NewServeMux()
		handler.NewStakingGetHistory(&historyFinder{}, accountReader("")).AddRoutes(mux)

		// Act
		rec := serve(mux, "/delegations/history")

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"code": 400, "message": "no active account"}`, rec.Body.String())
	})

	t.Run("it answers 404 when the journal is disabled", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := http.NewServeMux()
		handler.NewStakingGetHistory(nil, accountReader("alice")).AddRoutes(mux)

		// Act
		rec := serve(mux, "/delegations/history")

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"code": 404, "message": "reconciliation journal is disabled"}`, rec.Body.String())
	})

	t.Run("it hides journal failures", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := http.NewServeMux()
		handler.NewStakingGetHistory(&historyFinder{err: errJournalDown}, accountReader("alice")).AddRoutes(mux)

		// Act
		rec := serve(mux, "/delegations/history")

		// Assert
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"code": 500, "message": "Internal Server Error"}`, rec.Body.String())
	})
}

type stateReader struct {
	state staking.State
}

func (r stateReader) State() staking.State { return r.state }

type accountReader string

func (a accountReader) Account() string { return string(a) }

type historyFinder struct {
	snapshots []staking.Snapshot
	err       error

	calls   int
	account string
	limit   int
}

func (f *historyFinder) History(_ context.Context, account string, limit int) ([]staking.Snapshot, error) {
	f.calls++
	f.account = account
	f.limit = limit
	return f.snapshots, f.err
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}
