// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/groth16"
	"github.com/psolprotocol/psol-engine/note"
	"github.com/psolprotocol/psol-engine/poseidon"
)

// joinSplitRequest builds a 2-in/2-out request plus matching fixture proof
// over two settled notes.
func (e *testEnv) joinSplitRequest(n0, n1 *note.Note, publicAmount int64, fee uint64) JoinSplitRequest {
	e.t.Helper()

	nh0, err := n0.NullifierHash()
	require.NoError(e.t, err)
	nh1, err := n1.NullifierHash()
	require.NoError(e.t, err)

	out0 := field.FromUint64(700_001)
	out1 := field.FromUint64(700_002)

	root := e.pool.CurrentRoot()
	proof := e.forge(groth16.ProofJoinSplit, [][32]byte{
		root,
		e.assetID,
		nh0,
		nh1,
		out0,
		out1,
		field.PublicAmountScalar(publicAmount),
		field.PubkeyToScalar(testRelayer),
		field.FromUint64(fee),
		poseidon.PublicDataHash(nil),
	})

	return JoinSplitRequest{
		Proof:               proof,
		MerkleRoot:          root,
		AssetID:             e.assetID,
		NullifierHashes:     [2][32]byte{nh0, nh1},
		OutputCommitments:   [2][32]byte{out0, out1},
		PublicAmount:        publicAmount,
		RelayerFee:          fee,
		RelayerTokenAccount: e.relayerTA,
	}
}

// TestJoinSplitConservation is the pure private transfer scenario: two
// inputs, two outputs, zero public amount, a relayer fee paid from the
// vault.
func TestJoinSplitConservation(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	n0 := settledNote(t, e, 40_000)
	n1 := settledNote(t, e, 60_000)

	const fee = uint64(250)
	req := e.joinSplitRequest(n0, n1, 0, fee)

	vaultBefore := e.vaultBalance()
	pendingBefore := e.pool.pending.count()
	require.NoError(t, e.pool.JoinSplit(testRelayer, req))

	require.Equal(t, vaultBefore-fee, e.vaultBalance(), "vault changes by exactly -fee")
	require.Equal(t, fee, e.accountBalance(e.relayerTA))
	require.Equal(t, pendingBefore+2, e.pool.pending.count(), "both outputs await settlement")

	for _, nh := range req.NullifierHashes {
		spent, err := e.pool.IsSpent(nh)
		require.NoError(t, err)
		require.True(t, spent)
	}

	// Either input nullifier is now permanently dead.
	again := e.joinSplitRequest(n0, n1, 0, fee)
	require.ErrorIs(t, e.pool.JoinSplit(testRelayer, again), ErrNullifierAlreadySpent)

	var jsEvents int
	for _, ev := range e.events {
		if _, ok := ev.(JoinSplitEvent); ok {
			jsEvents++
		}
	}
	require.Equal(t, 1, jsEvents)
}

func TestJoinSplitUnshields(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	n0 := settledNote(t, e, 40_000)
	n1 := settledNote(t, e, 60_000)

	recipientTA := e.recipientAccount()
	req := e.joinSplitRequest(n0, n1, -30_000, 0)
	req.RecipientTokenAccount = recipientTA

	require.NoError(t, e.pool.JoinSplit(testRelayer, req))
	require.Equal(t, uint64(70_000), e.vaultBalance())
	require.Equal(t, uint64(30_000), e.accountBalance(recipientTA))
}

func TestJoinSplitShieldsIn(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	n0 := settledNote(t, e, 40_000)
	n1 := settledNote(t, e, 60_000)

	req := e.joinSplitRequest(n0, n1, 25_000, 0)
	req.FunderTokenAccount = e.depositorTA

	funderBefore := e.accountBalance(e.depositorTA)
	require.NoError(t, e.pool.JoinSplit(testRelayer, req))
	require.Equal(t, uint64(125_000), e.vaultBalance())
	require.Equal(t, funderBefore-25_000, e.accountBalance(e.depositorTA))
}

func TestJoinSplitRejectsDuplicateInputs(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	n0 := settledNote(t, e, 40_000)
	n1 := settledNote(t, e, 60_000)

	req := e.joinSplitRequest(n0, n1, 0, 0)
	req.NullifierHashes[1] = req.NullifierHashes[0]
	require.ErrorIs(t, e.pool.JoinSplit(testRelayer, req), ErrNullifierAlreadySpent)

	spent, err := e.pool.IsSpent(req.NullifierHashes[0])
	require.NoError(t, err)
	require.False(t, spent, "rejection leaves both inputs spendable")
}

func TestJoinSplitNeedsTwoFreeSlots(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxPending = 3
	cfg.MaxBatchSize = 3
	e := newTestEnv(t, cfg)

	n0 := settledNote(t, e, 40_000)
	n1 := settledNote(t, e, 60_000)

	// Two fresh admissions leave one free slot; two outputs cannot fit.
	e.deposit(1000, field.FromUint64(111))
	e.deposit(1000, field.FromUint64(112))

	req := e.joinSplitRequest(n0, n1, 0, 0)
	require.ErrorIs(t, e.pool.JoinSplit(testRelayer, req), ErrPendingBufferFull)

	spent, err := e.pool.IsSpent(req.NullifierHashes[0])
	require.NoError(t, err)
	require.False(t, spent)
}

func TestJoinSplitInvalidProofLeavesNoResidue(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	n0 := settledNote(t, e, 40_000)
	n1 := settledNote(t, e, 60_000)

	req := e.joinSplitRequest(n0, n1, 0, 0)
	req.Proof[17] ^= 0x01

	require.ErrorIs(t, e.pool.JoinSplit(testRelayer, req), groth16.ErrInvalidProof)
	for _, nh := range req.NullifierHashes {
		spent, err := e.pool.IsSpent(nh)
		require.NoError(t, err)
		require.False(t, spent)
	}
	require.Equal(t, uint64(100_000), e.vaultBalance())
}

func TestJoinSplitVaultUnderflow(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	n0 := settledNote(t, e, 400)
	n1 := settledNote(t, e, 600)

	recipientTA := e.recipientAccount()
	req := e.joinSplitRequest(n0, n1, -5_000, 0)
	req.RecipientTokenAccount = recipientTA

	require.ErrorIs(t, e.pool.JoinSplit(testRelayer, req), ErrVaultUnderflow)
	for _, nh := range req.NullifierHashes {
		spent, err := e.pool.IsSpent(nh)
		require.NoError(t, err)
		require.False(t, spent, "underflow unwinds the spend records")
	}
	require.Zero(t, e.accountBalance(recipientTA))
}

func TestJoinSplitPauseGates(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	n0 := settledNote(t, e, 40_000)
	n1 := settledNote(t, e, 60_000)

	require.NoError(t, e.pool.PauseWithdrawals(testAdmin))
	req := e.joinSplitRequest(n0, n1, -10_000, 0)
	req.RecipientTokenAccount = e.recipientAccount()
	require.ErrorIs(t, e.pool.JoinSplit(testRelayer, req), ErrWithdrawalsPaused)

	// A pure private transfer is not a withdrawal and still goes through.
	pure := e.joinSplitRequest(n0, n1, 0, 0)
	require.NoError(t, e.pool.JoinSplit(testRelayer, pure))
}
