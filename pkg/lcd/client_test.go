package lcd_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecart/pkg/lcd"
)

const delegatorJSON = `{
  "delegations": [
    {"delegator_addr": "cosmos1alice", "validator_addr": "cosmos1owner", "shares": "12.5000000000"}
  ],
  "unbonding_delegations": [
    {
      "delegator_addr": "cosmos1alice",
      "validator_addr": "cosmos1other",
      "balance": {"denom": "steak", "amount": "10"},
      "min_time": "2018-09-21T16:33:48.172452461Z"
    }
  ]
}`

const validatorsJSON = `[
  {
    "operator_address": "cosmosvaloper1op",
    "owner": "cosmos1owner",
    "tokens": "900.0000000000",
    "delegator_shares": "1000.0000000000",
    "description": {"moniker": "sentinel"},
    "commission": {"rate": "0.1"}
  }
]`

func TestClientGetDelegator(t *testing.T) {
	t.Parallel()

	t.Run("it parses delegations and unbonding entries", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := lcdServing(t, "/staking/delegators/cosmos1alice", delegatorJSON)
		client := lcd.NewClient(server.Client(), server.URL)

		// Act
		delegator, err := client.GetDelegator(t.Context(), "cosmos1alice")

		// Assert
		require.NoError(t, err)
		require.Len(t, delegator.Delegations, 1)
		assert.Equal(t, "cosmos1owner", delegator.Delegations[0].ValidatorAddr)
		assertDecimal(t, "12.5", delegator.Delegations[0].Shares)

		require.Len(t, delegator.UnbondingDelegations, 1)
		unbonding := delegator.UnbondingDelegations[0]
		assert.Equal(t, "cosmos1other", unbonding.ValidatorAddr)
		assert.Equal(t, "steak", unbonding.Balance.Denom)
		assertDecimal(t, "10", unbonding.Balance.Amount)
		assert.Equal(t, 2018, unbonding.MinTime.Year())
		assert.Equal(t, time.September, unbonding.MinTime.Month())
	})

	t.Run("it treats missing lists as empty", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := lcdServing(t, "/staking/delegators/cosmos1alice", `{}`)
		client := lcd.NewClient(server.Client(), server.URL+"/")

		// Act
		delegator, err := client.GetDelegator(t.Context(), "cosmos1alice")

		// Assert
		require.NoError(t, err)
		assert.Empty(t, delegator.Delegations)
		assert.Empty(t, delegator.UnbondingDelegations)
	})

	t.Run("it fails on a non-200 response", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := lcdFailing(t, http.StatusBadGateway)
		client := lcd.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.GetDelegator(t.Context(), "cosmos1alice")

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("it fails on malformed JSON", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := lcdServing(t, "/staking/delegators/cosmos1alice", `{"delegations": [{"shares": "abc"}]}`)
		client := lcd.NewClient(server.Client(), server.URL)

		// Act
		_, err := client.GetDelegator(t.Context(), "cosmos1alice")

		// Assert
		require.ErrorContains(t, err, "decoding response")
	})
}

func TestClientGetValidators(t *testing.T) {
	t.Parallel()

	t.Run("it parses the validator list", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := lcdServing(t, "/staking/validators", validatorsJSON)
		client := lcd.NewClient(server.Client(), server.URL)

		// Act
		validators, err := client.GetValidators(t.Context())

		// Assert
		require.NoError(t, err)
		require.Len(t, validators, 1)
		v := validators[0]
		assert.Equal(t, "cosmosvaloper1op", v.OperatorAddress)
		assert.Equal(t, "cosmos1owner", v.Owner)
		assert.Equal(t, "sentinel", v.Description.Moniker)
		assertDecimal(t, "900", v.Tokens)
		assertDecimal(t, "1000", v.DelegatorShares)
		assertDecimal(t, "0.1", v.Commission.Rate)
	})

	t.Run("it lists the validators of a delegator", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := lcdServing(t, "/staking/delegators/cosmos1alice/validators", validatorsJSON)
		client := lcd.NewClient(server.Client(), server.URL)

		// Act
		validators, err := client.GetDelegatorValidators(t.Context(), "cosmos1alice")

		// Assert
		require.NoError(t, err)
		assert.Len(t, validators, 1)
	})
}

// lcdServing serves body on path and 404 elsewhere
func lcdServing(t *testing.T, path, body string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(body))
		assert.NoError(t, err)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func lcdFailing(t *testing.T, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", status)
	}))
	t.Cleanup(server.Close)
	return server
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
