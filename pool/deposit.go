// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/luxfi/geth/common"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/groth16"
	"github.com/psolprotocol/psol-engine/poseidon"
)

// Deposit admits a commitment into the pending buffer. Nothing touches the
// tree here: insertion happens later, in a settled batch, so the per-
// transaction cost stays flat regardless of tree depth.
//
// The deposit proof attests knowledge of (secret, nullifier) with
// Poseidon(secret, nullifier, amount, assetID) == commitment; its public
// inputs are [commitment, amount, assetID] in that order.
//
// opaqueMetadata is an encrypted-note blob the engine does not interpret;
// only its public data digest surfaces in the event.
func (p *Pool) Deposit(
	depositorTokenAccount common.Hash,
	amount uint64,
	commitment [32]byte,
	assetID [32]byte,
	proofBytes []byte,
	opaqueMetadata []byte,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pausedAll {
		return ErrPaused
	}
	if p.pausedDeposits {
		return ErrDepositsPaused
	}

	vault, ok := p.vaults[assetID]
	if !ok {
		return ErrUnknownAsset
	}
	if !p.denoms[assetID].permits(amount) {
		return ErrInvalidDenomination
	}
	if !field.IsCanonical(commitment) {
		return field.ErrInvalidScalar
	}
	// Capacity is checked before the token transfer so a full buffer can
	// never strand funds in the vault.
	if p.pending.free() < 1 {
		return ErrPendingBufferFull
	}

	src, err := p.ledger.Account(depositorTokenAccount)
	if err != nil {
		return err
	}
	if src.Mint != vault.Mint {
		return ErrMintMismatch
	}

	vk, err := p.vkFor(groth16.ProofDeposit)
	if err != nil {
		return err
	}
	proof, err := groth16.ParseProof(proofBytes)
	if err != nil {
		return err
	}
	inputs := [][32]byte{commitment, field.FromUint64(amount), assetID}
	if err := groth16.Verify(vk, proof, inputs); err != nil {
		return err
	}

	if err := p.ledger.Transfer(depositorTokenAccount, vault.TokenAccount, amount); err != nil {
		return err
	}
	newBalance, err := checkedAdd(vault.Balance, amount)
	if err != nil {
		// Unwind the host transfer; the vault mirror must never diverge.
		_ = p.ledger.Transfer(vault.TokenAccount, depositorTokenAccount, amount)
		return err
	}
	vault.Balance = newBalance

	if err := p.pending.admit(commitment, p.now()); err != nil {
		// Unreachable after the capacity pre-check, but admission failure
		// must still unwind the transfer.
		_ = p.ledger.Transfer(vault.TokenAccount, depositorTokenAccount, amount)
		vault.Balance -= amount
		return err
	}

	p.stats.DepositsAdmitted++
	p.emit(DepositEvent{
		AssetID:        assetID,
		Amount:         amount,
		PendingCount:   p.pending.count(),
		PublicDataHash: poseidon.PublicDataHash(opaqueMetadata),
	})
	return nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a > ^uint64(0)-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrVaultUnderflow
	}
	return a - b, nil
}
