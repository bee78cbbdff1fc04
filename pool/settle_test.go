// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/groth16"
	"github.com/psolprotocol/psol-engine/merkle"
)

func TestSettleSingleCommitment(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	commitment := field.FromUint64(123456)
	e.deposit(100_000_000, commitment)

	prevRoot := e.pool.CurrentRoot()
	e.settle(1)

	require.Zero(t, e.pool.pending.count())
	require.Equal(t, uint64(1), e.pool.Stats().NextLeafIndex)
	require.True(t, e.pool.IsKnownRoot(prevRoot), "pre-settlement root stays in the ring")
	require.True(t, e.pool.IsKnownRoot(e.pool.CurrentRoot()))

	want, err := merkle.ComputeRoot(testDepth, [][32]byte{commitment})
	require.NoError(t, err)
	require.Equal(t, want, e.pool.CurrentRoot())

	last, ok := e.events[len(e.events)-1].(SettlementEvent)
	require.True(t, ok)
	require.Equal(t, 1, last.BatchSize)
	require.Equal(t, uint64(0), last.StartIndex)
	require.Equal(t, want, last.NewRoot)
}

func TestSettlePartialPrefix(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	for i := uint64(0); i < 5; i++ {
		e.deposit(1000, field.FromUint64(200+i))
	}

	e.settle(3)
	require.Equal(t, 2, e.pool.pending.count(), "only the settled prefix drains")
	require.Equal(t, uint64(3), e.pool.Stats().NextLeafIndex)

	// Remaining entries keep FIFO order.
	require.Equal(t, field.FromUint64(203), e.pool.pending.entries[0].Commitment)
	require.Equal(t, field.FromUint64(204), e.pool.pending.entries[1].Commitment)

	e.settle(2)
	require.Zero(t, e.pool.pending.count())
	require.Equal(t, uint64(5), e.pool.Stats().NextLeafIndex)
}

func TestSettleBatchSizeValidation(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	e.deposit(1000, field.FromUint64(1))

	proof := make([]byte, groth16.ProofSize)
	root := field.FromUint64(2)

	require.ErrorIs(t, e.pool.SettleDepositsBatch(proof, root, 0), ErrInvalidBatch)
	require.ErrorIs(t, e.pool.SettleDepositsBatch(proof, root, -1), ErrInvalidBatch)
	require.ErrorIs(t, e.pool.SettleDepositsBatch(proof, root, 2), ErrInvalidBatch,
		"batch larger than pending count")
	require.ErrorIs(t, e.pool.SettleDepositsBatch(proof, root, e.pool.cfg.MaxBatchSize+1), ErrInvalidBatch)
}

func TestSettleWrongRootRejected(t *testing.T) {
	e := newTestEnv(t, defaultConfig())
	commitment := field.FromUint64(42)
	e.deposit(1000, commitment)

	goodRoot, err := merkle.ComputeRoot(testDepth, [][32]byte{commitment})
	require.NoError(t, err)
	proof := e.forge(groth16.ProofMerkleBatchUpdate, [][32]byte{
		e.pool.CurrentRoot(),
		goodRoot,
		field.FromUint64(0),
		field.FromUint64(1),
		batchCommitmentsHash([][32]byte{commitment}, e.pool.cfg.MaxBatchSize),
	})

	// Submitting a different root than the proof committed to fails, and
	// neither the tree nor the buffer moves.
	wrongRoot := field.FromUint64(777)
	require.ErrorIs(t, e.pool.SettleDepositsBatch(proof, wrongRoot, 1), groth16.ErrInvalidProof)
	require.Equal(t, 1, e.pool.pending.count())
	require.Equal(t, uint64(0), e.pool.Stats().NextLeafIndex)

	// The original pairing still goes through afterwards.
	require.NoError(t, e.pool.SettleDepositsBatch(proof, goodRoot, 1))
	e.settled = [][32]byte{commitment}
}

func TestBatchCommitmentsHash(t *testing.T) {
	const maxBatch = 16
	c0 := field.FromUint64(1)
	c1 := field.FromUint64(2)

	// Zero-filled absent slots: the digest is over exactly maxBatch slots.
	h := sha256.New()
	h.Write(c0[:])
	h.Write(c1[:])
	var zero [32]byte
	for i := 2; i < maxBatch; i++ {
		h.Write(zero[:])
	}
	var want [32]byte
	h.Sum(want[:0])
	want[0] &= 0x1f

	got := batchCommitmentsHash([][32]byte{c0, c1}, maxBatch)
	require.Equal(t, want, got)
	require.True(t, field.IsCanonical(got), "253-bit truncation keeps the digest in-field")

	require.NotEqual(t, got, batchCommitmentsHash([][32]byte{c1, c0}, maxBatch),
		"digest binds commitment order")
	require.NotEqual(t, got, batchCommitmentsHash([][32]byte{c0, c1}, maxBatch+1),
		"digest binds the batch ceiling")
}
