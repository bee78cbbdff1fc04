// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

// pendingEntry is one admitted-but-unsettled commitment. No depositor,
// amount, or asset identifier is stored here; the buffer carries nothing
// that links a commitment back to its deposit.
type pendingEntry struct {
	Commitment [32]byte
	AdmittedAt int64
}

// pendingBuffer is the bounded FIFO of commitments awaiting batch
// settlement. Appended by deposits and join-split outputs, drained
// prefix-wise by settlement.
type pendingBuffer struct {
	entries  []pendingEntry
	capacity int
}

func newPendingBuffer(capacity int) *pendingBuffer {
	return &pendingBuffer{capacity: capacity}
}

func (b *pendingBuffer) count() int {
	return len(b.entries)
}

func (b *pendingBuffer) free() int {
	return b.capacity - len(b.entries)
}

// admit appends a commitment, failing when the buffer is at capacity.
func (b *pendingBuffer) admit(commitment [32]byte, now int64) error {
	if len(b.entries) >= b.capacity {
		return ErrPendingBufferFull
	}
	b.entries = append(b.entries, pendingEntry{Commitment: commitment, AdmittedAt: now})
	return nil
}

// prefix returns the first k commitments in admission order without
// removing them.
func (b *pendingBuffer) prefix(k int) [][32]byte {
	out := make([][32]byte, k)
	for i := 0; i < k; i++ {
		out[i] = b.entries[i].Commitment
	}
	return out
}

// drop removes the first k entries after a successful settlement.
func (b *pendingBuffer) drop(k int) {
	b.entries = append(b.entries[:0], b.entries[k:]...)
}
