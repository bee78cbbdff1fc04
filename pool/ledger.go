// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"
	"math"
	"sync"

	"github.com/luxfi/geth/common"
)

var (
	ErrAccountNotFound = errors.New("token account not found")
	ErrMintMismatch    = errors.New("token account mint mismatch")
	ErrInsufficient    = errors.New("insufficient token balance")
)

// TokenAccount mirrors the host token program's account record: an address
// holding a balance of one mint on behalf of an owner.
type TokenAccount struct {
	Address common.Hash
	Mint    common.Hash
	Owner   common.Hash
	Balance uint64
}

// TokenLedger is the engine's seam to the host token program. Vault funding
// and payouts go through it; the engine never moves balances directly.
type TokenLedger interface {
	// Account resolves a token account by address.
	Account(addr common.Hash) (*TokenAccount, error)

	// Transfer moves amount between two accounts of the same mint with
	// checked arithmetic on both sides.
	Transfer(from, to common.Hash, amount uint64) error
}

// MemoryLedger is an in-process TokenLedger used by tests and local
// embedding. Semantics match the host token program: transfers are atomic,
// mints must agree, balances never wrap.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[common.Hash]*TokenAccount
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[common.Hash]*TokenAccount)}
}

// CreateAccount registers a token account with an opening balance.
func (l *MemoryLedger) CreateAccount(addr, mint, owner common.Hash, balance uint64) *TokenAccount {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := &TokenAccount{Address: addr, Mint: mint, Owner: owner, Balance: balance}
	l.accounts[addr] = acct
	return acct
}

// Account implements TokenLedger.
func (l *MemoryLedger) Account(addr common.Hash) (*TokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

// Transfer implements TokenLedger.
func (l *MemoryLedger) Transfer(from, to common.Hash, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.accounts[from]
	if !ok {
		return ErrAccountNotFound
	}
	dst, ok := l.accounts[to]
	if !ok {
		return ErrAccountNotFound
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if src.Balance < amount {
		return ErrInsufficient
	}
	if dst.Balance > math.MaxUint64-amount {
		return ErrAmountOverflow
	}
	src.Balance -= amount
	dst.Balance += amount
	return nil
}
