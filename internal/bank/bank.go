// Package bank provides the in-memory ledger that backs entry fees and
// prize payouts. Amounts are in the smallest currency unit.
package bank

import (
	"context"
	"errors"
	"sync"

	"github.com/google/logger"
)

// ErrInsufficientFunds is returned when a withdrawal exceeds the account
// balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger tracks per-account balances.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]uint64)}
}

// Deposit credits an account.
func (l *Ledger) Deposit(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// Withdraw debits an account, failing with ErrInsufficientFunds if the
// balance does not cover the amount.
func (l *Ledger) Withdraw(account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[account] < amount {
		return ErrInsufficientFunds
	}
	l.balances[account] -= amount
	return nil
}

// BalanceOf returns the current balance of an account. Unknown accounts
// have a zero balance.
func (l *Ledger) BalanceOf(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Pay credits the winner's account with the prize. It satisfies the
// raffle engine's payer interface.
func (l *Ledger) Pay(ctx context.Context, to string, amount uint64) error {
	_ = ctx
	l.Deposit(to, amount)
	logger.Infof("paid %d to %s", amount, to)
	return nil
}
