package staking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const titleEndUnbondingFailed = "Ending undelegation failed"

// Coordinator submits delegation changes, applies their optimistic effect and
// schedules the reconciliation that replaces it with confirmed state.
// --------------------------------------------------------------------------
type Coordinator struct {
	engine    *Engine
	sender    TxSender
	tokens    TokenCalculator
	scheduler *Scheduler
	delay     time.Duration
	notifier  Notifier
	log       *slog.Logger
}

// NewCoordinator constructs a Coordinator.
// By default, it uses a real clock and reconciles 5s after a submission.
func NewCoordinator(engine *Engine, sender TxSender, tokens TokenCalculator, opts ...Option) *Coordinator {
	o := newOptions(opts)
	return &Coordinator{
		engine:    engine,
		sender:    sender,
		tokens:    tokens,
		scheduler: NewScheduler(o.clock),
		delay:     o.reconcileDelay,
		notifier:  o.notifier,
		log:       o.logger,
	}
}

// SubmitDelegationChange sends tx for the active account. A KindDelegation
// submission shifts the total balance by the difference between the tokens
// currently committed to each validator and the requested amounts. On success
// a reconciliation is scheduled; the returned Task can cancel it.
// On failure nothing is mutated and nothing is scheduled.
func (c *Coordinator) SubmitDelegationChange(ctx context.Context, kind TxKind, tx StakeTx) (*Task, error) {
	tok := c.engine.current()
	if tok.account == "" {
		return nil, ErrNoAccount
	}

	err := c.sender.Send(ctx, Tx{Type: TxTypeUpdateDelegations, To: tok.account, StakeTx: tx})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		c.log.ErrorContext(ctx, "Submitting delegation change failed",
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		c.notifier.Notify(SubmissionFailed{Kind: kind, Title: "Submitting " + string(kind) + " failed", Err: err})
		return nil, err
	}

	delta := decimal.Zero
	if kind == KindDelegation {
		delta = c.balanceDelta(ctx, tx.Delegations)
		if balance, ok := c.engine.addToBalance(tok, delta); ok {
			c.log.InfoContext(ctx, "Optimistic balance applied",
				slog.String("account", tok.account),
				slog.String("delta", delta.String()),
				slog.String("balance", balance.String()),
			)
		}
	}

	task := c.scheduler.Schedule(c.delay, func() {
		// The submitting request may be gone by now.
		_ = c.engine.UpdateDelegates(context.WithoutCancel(ctx))
	})

	c.notifier.Notify(SubmissionSucceeded{Kind: kind, BalanceDelta: delta, ReconcileIn: c.delay})
	return task, nil
}

// balanceDelta sums, over all lines, the tokens committed to the validator
// minus the requested amount.
func (c *Coordinator) balanceDelta(ctx context.Context, lines []DelegationLine) decimal.Decimal {
	delta := decimal.Zero
	for _, line := range lines {
		entry, ok := c.engine.Cart().Find(line.ValidatorAddress)
		if !ok {
			c.log.WarnContext(ctx, "No cart entry for submitted delegation",
				slog.String("validator", string(line.ValidatorAddress)),
			)
			continue
		}
		committed := c.engine.CommittedAmount(line.ValidatorAddress)
		delta = delta.Add(c.tokens.TokensFor(entry.Delegate, committed).Sub(line.Amount.Amount))
	}
	return delta
}

// EndUnbonding completes the unbonding entry of validator. On success the
// entry is removed right away and the released coin is returned.
func (c *Coordinator) EndUnbonding(ctx context.Context, validator ValidatorID) (Coin, error) {
	tok := c.engine.current()
	if tok.account == "" {
		return Coin{}, ErrNoAccount
	}

	entry, ok := c.engine.UnbondingEntry(validator)
	if !ok {
		return Coin{}, fmt.Errorf("%w: unbonding delegation %s", ErrNotFound, validator)
	}

	err := c.sender.Send(ctx, Tx{
		Type: TxTypeUpdateDelegations,
		To:   tok.account,
		StakeTx: StakeTx{
			CompleteUnbondings: []CompleteUnbondingLine{{
				DelegatorAddress: tok.account,
				ValidatorAddress: validator,
			}},
		},
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		c.log.ErrorContext(ctx, titleEndUnbondingFailed,
			slog.String("validator", string(validator)),
			slog.Any("error", err),
		)
		c.notifier.Notify(SubmissionFailed{Kind: KindCompleteUnbonding, Title: titleEndUnbondingFailed, Err: err})
		return Coin{}, err
	}

	c.engine.clearUnbonding(tok, validator)

	released := entry.Balance
	message := fmt.Sprintf("You successfully undelegated %s %ss from %s", released.Amount, released.Denom, validator)
	c.log.InfoContext(ctx, "Ending undelegation successful",
		slog.String("validator", string(validator)),
		slog.String("amount", released.Amount.String()),
		slog.String("denom", released.Denom),
	)
	c.notifier.Notify(UnbondingCompleted{Validator: validator, Balance: released, Message: message})
	return released, nil
}
