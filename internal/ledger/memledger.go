package ledger

import (
	"context"
	"sync"
)

type balanceKey struct {
	account Account
	asset   Asset
}

// MemLedger is an in-process Ledger backed by a mutex-guarded map. cmd/marketd
// uses it whatever store backend is configured, and every engine test in
// internal/market exercises against it.
type MemLedger struct {
	mu       sync.Mutex
	balances map[balanceKey]uint64
}

// NewMemLedger returns an empty ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{balances: make(map[balanceKey]uint64)}
}

func (l *MemLedger) BalanceOf(_ context.Context, account Account, asset Asset) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{account, asset}], nil
}

// Credit sets up an initial balance directly, used by test fixtures and by
// the vault to fund a user from an external deposit source.
func (l *MemLedger) Credit(account Account, asset Asset, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey{account, asset}] += amount
}

func (l *MemLedger) Transfer(_ context.Context, from, to Account, asset Asset, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fromKey := balanceKey{from, asset}
	if l.balances[fromKey] < amount {
		return ErrInsufficientBalance
	}
	l.balances[fromKey] -= amount
	l.balances[balanceKey{to, asset}] += amount
	return nil
}

func (l *MemLedger) MintYesNo(_ context.Context, to Account, asset Asset, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey{to, asset}] += amount
	return nil
}

func (l *MemLedger) BurnYesNo(_ context.Context, from Account, asset Asset, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := balanceKey{from, asset}
	if l.balances[key] < amount {
		return ErrInsufficientBalance
	}
	l.balances[key] -= amount
	return nil
}

func (l *MemLedger) EnsureAccount(_ context.Context, _ Account, _ Asset) error {
	return nil
}
