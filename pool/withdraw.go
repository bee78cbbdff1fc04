// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/groth16"
	"github.com/psolprotocol/psol-engine/poseidon"
)

// WithdrawRequest carries one withdrawal. The caller of Withdraw is the
// relayer; recipient and relayer are both bound into the proof's public
// inputs, so neither can be swapped after proving.
type WithdrawRequest struct {
	Proof         []byte
	MerkleRoot    [32]byte
	NullifierHash [32]byte
	Recipient     common.Hash
	Amount        uint64
	AssetID       [32]byte
	RelayerFee    uint64

	RecipientTokenAccount common.Hash
	RelayerTokenAccount   common.Hash

	// RelayerNode, when non-nil, is the registry entry authorizing the
	// relayer; it must decode for this pool's registry and live at its
	// canonical derived address.
	RelayerNode *RelayerNode

	// PublicData is the optional compliance payload whose digest the proof
	// commits to. Empty means the all-zero digest.
	PublicData []byte
}

// Withdraw verifies a withdrawal proof and pays out from the asset vault.
//
// The step order is load-bearing: the nullifier record is created only
// after the proof verifies, so a forged proof naming a victim's future
// nullifier leaves no residue and cannot block the legitimate spend.
func (p *Pool) Withdraw(relayer common.Hash, req WithdrawRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 1. Pause gates.
	if p.pausedAll {
		return ErrPaused
	}
	if p.pausedWithdrawals {
		return ErrWithdrawalsPaused
	}

	vault, ok := p.vaults[req.AssetID]
	if !ok {
		return ErrUnknownAsset
	}

	// 2. Denomination enforcement.
	if !p.denoms[req.AssetID].permits(req.Amount) {
		return ErrInvalidDenomination
	}

	// 3. The destination account must hold the vault's mint and belong to
	// the address committed in the proof; a relayer cannot redirect funds.
	recipientAcct, err := p.ledger.Account(req.RecipientTokenAccount)
	if err != nil {
		return err
	}
	if recipientAcct.Mint != vault.Mint {
		return ErrMintMismatch
	}
	if recipientAcct.Owner != req.Recipient {
		return ErrRecipientMismatch
	}

	// 4. Optional relayer-registry node check.
	if req.RelayerNode != nil {
		if err := p.checkRelayerNode(req.RelayerNode); err != nil {
			return err
		}
	}

	// 5. Fee ceiling with overflow-proof arithmetic.
	if err := p.checkRelayerFee(req.Amount, req.RelayerFee); err != nil {
		return err
	}

	// 6. Membership anchor.
	if !p.tree.IsKnownRoot(req.MerkleRoot) {
		return ErrUnknownRoot
	}

	// 7. At-most-once spend gate.
	spent, err := p.nullifiers.exists(req.NullifierHash)
	if err != nil {
		return err
	}
	if spent {
		return ErrNullifierAlreadySpent
	}

	// 8. Proof verification over the reconstructed public-input vector.
	vk, err := p.vkFor(groth16.ProofWithdraw)
	if err != nil {
		return err
	}
	proof, err := groth16.ParseProof(req.Proof)
	if err != nil {
		return err
	}
	inputs := [][32]byte{
		req.MerkleRoot,
		req.NullifierHash,
		req.AssetID,
		field.PubkeyToScalar(req.Recipient),
		field.FromUint64(req.Amount),
		field.PubkeyToScalar(relayer),
		field.FromUint64(req.RelayerFee),
		poseidon.PublicDataHash(req.PublicData),
	}
	if err := groth16.Verify(vk, proof, inputs); err != nil {
		return err
	}

	// 9. Only now does the nullifier record exist.
	if err := p.nullifiers.create(req.NullifierHash, p.now()); err != nil {
		return err
	}

	// 10. Vault payouts, all checked; a failed transfer unwinds the spend.
	if err := p.payOut(vault, req.Amount, req.RelayerFee, req.RecipientTokenAccount, req.RelayerTokenAccount); err != nil {
		_ = p.nullifiers.remove(req.NullifierHash)
		return err
	}

	// 11. Event: amounts and the already-public nullifier hash only.
	p.stats.Withdrawals++
	p.emit(WithdrawEvent{
		AssetID:       req.AssetID,
		NullifierHash: req.NullifierHash,
		Amount:        req.Amount,
		RelayerFee:    req.RelayerFee,
	})
	return nil
}

// checkRelayerFee enforces fee <= amount * ceiling / 10000 without any
// intermediate overflow.
func (p *Pool) checkRelayerFee(amount, fee uint64) error {
	limit := new(uint256.Int).Mul(
		uint256.NewInt(amount),
		uint256.NewInt(p.cfg.FeeCeilingBps),
	)
	limit.Div(limit, uint256.NewInt(bpsDenominator))
	if new(uint256.Int).SetUint64(fee).Gt(limit) {
		return ErrInvalidRelayerFee
	}
	return nil
}

// payOut moves amount-fee to the recipient and fee to the relayer, keeping
// the vault mirror balance in lockstep with the token ledger.
func (p *Pool) payOut(vault *AssetVault, amount, fee uint64, recipientTA, relayerTA common.Hash) error {
	newBalance, err := checkedSub(vault.Balance, amount)
	if err != nil {
		return err
	}
	payout, err := checkedSub(amount, fee)
	if err != nil {
		// Ceiling at or below 100% makes fee > amount unreachable, but the
		// subtraction stays checked regardless.
		return ErrInvalidRelayerFee
	}

	if err := p.ledger.Transfer(vault.TokenAccount, recipientTA, payout); err != nil {
		return err
	}
	if fee > 0 {
		if err := p.ledger.Transfer(vault.TokenAccount, relayerTA, fee); err != nil {
			// Unwind the recipient leg before surfacing the failure.
			_ = p.ledger.Transfer(recipientTA, vault.TokenAccount, payout)
			return err
		}
	}
	vault.Balance = newBalance
	return nil
}
