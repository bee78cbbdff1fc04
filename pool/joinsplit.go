// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math"

	"github.com/luxfi/geth/common"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/groth16"
	"github.com/psolprotocol/psol-engine/poseidon"
)

// JoinSplitRequest carries a 2-in/2-out private transfer. PublicAmount is
// signed: positive shields value in from the funder account, negative
// unshields to the recipient account, zero is a pure private transfer.
type JoinSplitRequest struct {
	Proof             []byte
	MerkleRoot        [32]byte
	AssetID           [32]byte
	NullifierHashes   [2][32]byte
	OutputCommitments [2][32]byte
	PublicAmount      int64
	RelayerFee        uint64

	// FunderTokenAccount funds a positive public amount.
	FunderTokenAccount common.Hash
	// RecipientTokenAccount receives a negative public amount.
	RecipientTokenAccount common.Hash
	// RelayerTokenAccount receives the fee.
	RelayerTokenAccount common.Hash

	RelayerNode *RelayerNode
	PublicData  []byte
}

// JoinSplit verifies a join-split proof, spends both input nullifiers, and
// admits both output commitments to the pending buffer. The outputs become
// spendable only after a later batch settlement inserts them into the tree.
func (p *Pool) JoinSplit(relayer common.Hash, req JoinSplitRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pausedAll {
		return ErrPaused
	}
	if req.PublicAmount < 0 && p.pausedWithdrawals {
		return ErrWithdrawalsPaused
	}
	if req.PublicAmount > 0 && p.pausedDeposits {
		return ErrDepositsPaused
	}

	vault, ok := p.vaults[req.AssetID]
	if !ok {
		return ErrUnknownAsset
	}

	if req.RelayerNode != nil {
		if err := p.checkRelayerNode(req.RelayerNode); err != nil {
			return err
		}
	}

	if !p.tree.IsKnownRoot(req.MerkleRoot) {
		return ErrUnknownRoot
	}

	// Two independent at-most-once checks. Equal inputs are the same note
	// spent twice in one transaction, rejected up front.
	nh0, nh1 := req.NullifierHashes[0], req.NullifierHashes[1]
	if nh0 == nh1 {
		return ErrNullifierAlreadySpent
	}
	for _, nh := range []([32]byte){nh0, nh1} {
		spent, err := p.nullifiers.exists(nh)
		if err != nil {
			return err
		}
		if spent {
			return ErrNullifierAlreadySpent
		}
	}

	for _, c := range req.OutputCommitments {
		if !field.IsCanonical(c) {
			return field.ErrInvalidScalar
		}
	}
	// Both outputs must fit before anything is spent.
	if p.pending.free() < 2 {
		return ErrPendingBufferFull
	}

	vk, err := p.vkFor(groth16.ProofJoinSplit)
	if err != nil {
		return err
	}
	proof, err := groth16.ParseProof(req.Proof)
	if err != nil {
		return err
	}
	inputs := [][32]byte{
		req.MerkleRoot,
		req.AssetID,
		nh0,
		nh1,
		req.OutputCommitments[0],
		req.OutputCommitments[1],
		field.PublicAmountScalar(req.PublicAmount),
		field.PubkeyToScalar(relayer),
		field.FromUint64(req.RelayerFee),
		poseidon.PublicDataHash(req.PublicData),
	}
	if err := groth16.Verify(vk, proof, inputs); err != nil {
		return err
	}

	// Nullifier records exist only after the proof verifies.
	if err := p.nullifiers.create(nh0, p.now()); err != nil {
		return err
	}
	if err := p.nullifiers.create(nh1, p.now()); err != nil {
		_ = p.nullifiers.remove(nh0)
		return err
	}

	if err := p.moveJoinSplitValue(vault, req); err != nil {
		_ = p.nullifiers.remove(nh0)
		_ = p.nullifiers.remove(nh1)
		return err
	}

	now := p.now()
	for _, c := range req.OutputCommitments {
		// Capacity was pre-checked; admission cannot fail here.
		if err := p.pending.admit(c, now); err != nil {
			return err
		}
	}

	p.stats.JoinSplits++
	p.emit(JoinSplitEvent{
		AssetID:           req.AssetID,
		NullifierHashes:   req.NullifierHashes,
		OutputCommitments: req.OutputCommitments,
		PublicAmount:      req.PublicAmount,
		RelayerFee:        req.RelayerFee,
	})
	return nil
}

// moveJoinSplitValue performs the vault-level movement for the signed
// public amount plus the relayer fee, all checked.
func (p *Pool) moveJoinSplitValue(vault *AssetVault, req JoinSplitRequest) error {
	switch {
	case req.PublicAmount > 0:
		in := uint64(req.PublicAmount)
		if err := p.ledger.Transfer(req.FunderTokenAccount, vault.TokenAccount, in); err != nil {
			return err
		}
		newBalance, err := checkedAdd(vault.Balance, in)
		if err != nil {
			_ = p.ledger.Transfer(vault.TokenAccount, req.FunderTokenAccount, in)
			return err
		}
		vault.Balance = newBalance

	case req.PublicAmount < 0:
		if req.PublicAmount == math.MinInt64 {
			return ErrAmountOverflow
		}
		out := uint64(-req.PublicAmount)
		newBalance, err := checkedSub(vault.Balance, out)
		if err != nil {
			return err
		}
		if err := p.ledger.Transfer(vault.TokenAccount, req.RecipientTokenAccount, out); err != nil {
			return err
		}
		vault.Balance = newBalance
	}

	if req.RelayerFee > 0 {
		newBalance, err := checkedSub(vault.Balance, req.RelayerFee)
		if err != nil {
			return p.unwindPublicAmount(vault, req, err)
		}
		if err := p.ledger.Transfer(vault.TokenAccount, req.RelayerTokenAccount, req.RelayerFee); err != nil {
			return p.unwindPublicAmount(vault, req, err)
		}
		vault.Balance = newBalance
	}
	return nil
}

// unwindPublicAmount reverses a completed public-amount leg when the fee
// leg fails, then surfaces the original error.
func (p *Pool) unwindPublicAmount(vault *AssetVault, req JoinSplitRequest, cause error) error {
	switch {
	case req.PublicAmount > 0:
		in := uint64(req.PublicAmount)
		_ = p.ledger.Transfer(vault.TokenAccount, req.FunderTokenAccount, in)
		vault.Balance -= in
	case req.PublicAmount < 0:
		out := uint64(-req.PublicAmount)
		_ = p.ledger.Transfer(req.RecipientTokenAccount, vault.TokenAccount, out)
		vault.Balance += out
	}
	return cause
}
