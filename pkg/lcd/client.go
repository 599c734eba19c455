// Package lcd is a client for the staking endpoints of a Cosmos SDK light
// client daemon (LCD) REST API.
package lcd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client represents an LCD API client
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new LCD API client with custom HTTP client and base URL
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Coin is an amount of one denomination
type Coin struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

// Delegation is a bonded delegation of a delegator
type Delegation struct {
	DelegatorAddr string          `json:"delegator_addr"`
	ValidatorAddr string          `json:"validator_addr"`
	Shares        decimal.Decimal `json:"shares"`
}

// UnbondingDelegation is an unbonding entry of a delegator
type UnbondingDelegation struct {
	DelegatorAddr string    `json:"delegator_addr"`
	ValidatorAddr string    `json:"validator_addr"`
	Balance       Coin      `json:"balance"`
	MinTime       time.Time `json:"min_time"`
}

// Delegator is the staking summary of one address
type Delegator struct {
	Delegations          []Delegation          `json:"delegations"`
	UnbondingDelegations []UnbondingDelegation `json:"unbonding_delegations"`
}

// Validator is a validator as listed by the staking module
type Validator struct {
	OperatorAddress string          `json:"operator_address"`
	Owner           string          `json:"owner"`
	Tokens          decimal.Decimal `json:"tokens"`
	DelegatorShares decimal.Decimal `json:"delegator_shares"`
	Description     struct {
		Moniker string `json:"moniker"`
	} `json:"description"`
	Commission struct {
		Rate decimal.Decimal `json:"rate"`
	} `json:"commission"`
}

// GetDelegator retrieves the delegations and unbonding entries of address
func (c *Client) GetDelegator(ctx context.Context, address string) (Delegator, error) {
	var delegator Delegator
	err := c.get(ctx, "/staking/delegators/"+url.PathEscape(address), &delegator)
	return delegator, err
}

// GetValidators retrieves all validators
func (c *Client) GetValidators(ctx context.Context) ([]Validator, error) {
	var validators []Validator
	err := c.get(ctx, "/staking/validators", &validators)
	return validators, err
}

// GetDelegatorValidators retrieves the validators address is bonded to
func (c *Client) GetDelegatorValidators(ctx context.Context, address string) ([]Validator, error) {
	var validators []Validator
	err := c.get(ctx, "/staking/delegators/"+url.PathEscape(address)+"/validators", &validators)
	return validators, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
