// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/poseidon"
)

func leaf(v uint64) [32]byte {
	return field.FromUint64(v + 1000)
}

func TestNewValidation(t *testing.T) {
	_, err := New(0, 30)
	require.ErrorIs(t, err, ErrInvalidDepth)
	_, err = New(33, 30)
	require.ErrorIs(t, err, ErrInvalidDepth)
	_, err = New(8, 29)
	require.ErrorIs(t, err, ErrSmallHistory)

	tr, err := New(8, 30)
	require.NoError(t, err)
	require.Equal(t, 8, tr.Depth())
	require.Equal(t, uint64(0), tr.NextLeafIndex())
	require.Equal(t, uint64(256), tr.Capacity())
}

func TestEmptyRootMatchesZeroChain(t *testing.T) {
	tr, err := New(6, 30)
	require.NoError(t, err)

	node := [32]byte{}
	for i := 0; i < 6; i++ {
		node, err = poseidon.MerkleParent(node, node)
		require.NoError(t, err)
	}
	require.Equal(t, node, tr.CurrentRoot())
}

// TestAppendMatchesIndependentWitness recomputes the root from scratch
// after every append and compares it to the incremental frontier.
func TestAppendMatchesIndependentWitness(t *testing.T) {
	const depth = 5
	tr, err := New(depth, 30)
	require.NoError(t, err)

	var leaves [][32]byte
	for i := uint64(0); i < 12; i++ {
		idx, err := tr.Append(leaf(i))
		require.NoError(t, err)
		require.Equal(t, i, idx)

		leaves = append(leaves, leaf(i))
		want, err := ComputeRoot(depth, leaves)
		require.NoError(t, err)
		require.Equal(t, want, tr.CurrentRoot(), "leaf %d", i)
	}
	require.Equal(t, uint64(12), tr.NextLeafIndex())
}

func TestAppendRejectsNonCanonical(t *testing.T) {
	tr, err := New(4, 30)
	require.NoError(t, err)

	var bad [32]byte
	field.FrModulus.FillBytes(bad[:])
	_, err = tr.Append(bad)
	require.ErrorIs(t, err, field.ErrInvalidScalar)
}

func TestTreeFull(t *testing.T) {
	tr, err := New(2, 30)
	require.NoError(t, err)

	for i := uint64(0); i < 4; i++ {
		_, err := tr.Append(leaf(i))
		require.NoError(t, err)
	}
	_, err = tr.Append(leaf(99))
	require.ErrorIs(t, err, ErrTreeFull)
}

func TestIsKnownRoot(t *testing.T) {
	tr, err := New(4, 30)
	require.NoError(t, err)

	require.False(t, tr.IsKnownRoot([32]byte{}), "the zero root is never known")
	require.True(t, tr.IsKnownRoot(tr.CurrentRoot()))

	first := tr.CurrentRoot()
	_, err = tr.Append(leaf(1))
	require.NoError(t, err)
	require.True(t, tr.IsKnownRoot(first), "superseded roots stay in the ring")
	require.True(t, tr.IsKnownRoot(tr.CurrentRoot()))
	require.False(t, tr.IsKnownRoot(leaf(77)))
}

func TestRootHistoryWindow(t *testing.T) {
	const history = 30
	tr, err := New(8, history)
	require.NoError(t, err)

	_, err = tr.Append(leaf(0))
	require.NoError(t, err)
	anchor := tr.CurrentRoot()

	// The anchor stays known for exactly `history` further rotations.
	for i := uint64(1); i <= history; i++ {
		_, err = tr.Append(leaf(i))
		require.NoError(t, err)
		require.True(t, tr.IsKnownRoot(anchor), "rotation %d", i)
	}
	_, err = tr.Append(leaf(31))
	require.NoError(t, err)
	require.False(t, tr.IsKnownRoot(anchor), "anchor must expire after the ring wraps")
}

func TestAppendBatch(t *testing.T) {
	const depth = 5
	tr, err := New(depth, 30)
	require.NoError(t, err)

	batch := [][32]byte{leaf(0), leaf(1), leaf(2)}
	newRoot, err := ComputeRoot(depth, batch)
	require.NoError(t, err)

	prev := tr.CurrentRoot()
	require.NoError(t, tr.AppendBatch(newRoot, 0, batch))
	require.Equal(t, uint64(3), tr.NextLeafIndex())
	require.Equal(t, newRoot, tr.CurrentRoot())
	require.True(t, tr.IsKnownRoot(prev))

	// The frontier must stay consistent: a single append after the batch
	// lands where an all-at-once witness says it should.
	_, err = tr.Append(leaf(3))
	require.NoError(t, err)
	want, err := ComputeRoot(depth, [][32]byte{leaf(0), leaf(1), leaf(2), leaf(3)})
	require.NoError(t, err)
	require.Equal(t, want, tr.CurrentRoot())
}

func TestAppendBatchRejections(t *testing.T) {
	tr, err := New(4, 30)
	require.NoError(t, err)

	batch := [][32]byte{leaf(0)}
	root, err := ComputeRoot(4, batch)
	require.NoError(t, err)

	require.ErrorIs(t, tr.AppendBatch(root, 5, batch), ErrIndexMismatch)
	require.ErrorIs(t, tr.AppendBatch([32]byte{}, 0, batch), ErrZeroRoot)
	require.ErrorIs(t, tr.AppendBatch(root, 0, nil), ErrTreeFull)

	// Overflowing the capacity in one batch is rejected up front.
	big := make([][32]byte, 17)
	for i := range big {
		big[i] = leaf(uint64(i))
	}
	require.ErrorIs(t, tr.AppendBatch(root, 0, big), ErrTreeFull)
}

func TestComputeRootEmpty(t *testing.T) {
	tr, err := New(7, 30)
	require.NoError(t, err)

	got, err := ComputeRoot(7, nil)
	require.NoError(t, err)
	require.Equal(t, tr.CurrentRoot(), got)
}
