package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrOverdrawnHold     = errors.New("payout exceeds held amount")
	ErrUndisbursed       = errors.New("held funds not fully disbursed")
	ErrTxClosed          = errors.New("payment transaction already closed")
)

var (
	_ domain.PaymentGateway = (*MemoryBank)(nil)
	_ domain.PaymentTx      = (*memoryTx)(nil)
)

// MemoryBank keeps account balances in process; use for local runs and tests.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[domain.Account]decimal.Decimal
	logger   *logger.Logger
}

func NewMemoryBank(logger *logger.Logger) *MemoryBank {
	return &MemoryBank{
		balances: make(map[domain.Account]decimal.Decimal),
		logger:   logger,
	}
}

// Deposit credits [account] out of thin air.
func (b *MemoryBank) Deposit(account domain.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = b.balances[account].Add(amount)
	return nil
}

func (b *MemoryBank) BalanceOf(_ context.Context, account domain.Account) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account], nil
}

// Begin debits [amount] from the payer right away; the hold is either paid
// out on Commit or refunded on Rollback.
func (b *MemoryBank) Begin(_ context.Context, payer domain.Account, amount decimal.Decimal) (domain.PaymentTx, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	balance := b.balances[payer]
	if balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, payer, balance, amount)
	}
	b.balances[payer] = balance.Sub(amount)

	tx := &memoryTx{
		id:        uuid.New(),
		bank:      b,
		payer:     payer,
		held:      amount,
		remaining: amount,
	}
	b.logger.Debugf("payment %s: holding %s from %s", tx.id, amount, payer)
	return tx, nil
}

type transfer struct {
	to     domain.Account
	amount decimal.Decimal
}

type memoryTx struct {
	id        uuid.UUID
	bank      *MemoryBank
	payer     domain.Account
	held      decimal.Decimal
	remaining decimal.Decimal
	staged    []transfer
	closed    bool
}

func (tx *memoryTx) Pay(_ context.Context, recipient domain.Account, amount decimal.Decimal) error {
	if tx.closed {
		return ErrTxClosed
	}
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(tx.remaining) {
		return fmt.Errorf("%w: %s of %s left", ErrOverdrawnHold, amount, tx.remaining)
	}
	tx.remaining = tx.remaining.Sub(amount)
	tx.staged = append(tx.staged, transfer{to: recipient, amount: amount})
	return nil
}

func (tx *memoryTx) Commit(_ context.Context) error {
	if tx.closed {
		return ErrTxClosed
	}
	if !tx.remaining.IsZero() {
		return fmt.Errorf("%w: %s left", ErrUndisbursed, tx.remaining)
	}
	tx.bank.mu.Lock()
	defer tx.bank.mu.Unlock()
	for _, t := range tx.staged {
		tx.bank.balances[t.to] = tx.bank.balances[t.to].Add(t.amount)
	}
	tx.closed = true
	tx.bank.logger.Debugf("payment %s: committed %d transfers", tx.id, len(tx.staged))
	return nil
}

// Rollback refunds the hold. Rolling back a closed transaction is a no-op.
func (tx *memoryTx) Rollback(_ context.Context) error {
	if tx.closed {
		return nil
	}
	tx.bank.mu.Lock()
	defer tx.bank.mu.Unlock()
	tx.bank.balances[tx.payer] = tx.bank.balances[tx.payer].Add(tx.held)
	tx.closed = true
	tx.staged = nil
	tx.bank.logger.Debugf("payment %s: refunded %s to %s", tx.id, tx.held, tx.payer)
	return nil
}
