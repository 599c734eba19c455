package staking

import "github.com/shopspring/decimal"

// ShareRate converts shares to tokens at the validator's current exchange
// rate: shares * tokens / delegator_shares. A validator without issued shares
// converts one to one.
type ShareRate struct{}

// TokensFor implements TokenCalculator
func (ShareRate) TokensFor(c Candidate, shares decimal.Decimal) decimal.Decimal {
	if c.DelegatorShares.IsZero() {
		return shares
	}
	return shares.Mul(c.Tokens).Div(c.DelegatorShares)
}

// TokenCalculatorFunc adapts a function to TokenCalculator
type TokenCalculatorFunc func(c Candidate, shares decimal.Decimal) decimal.Decimal

// TokensFor implements TokenCalculator
func (f TokenCalculatorFunc) TokensFor(c Candidate, shares decimal.Decimal) decimal.Decimal {
	return f(c, shares)
}
