// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/groth16"
)

// SettleDepositsBatch drains a prefix of the pending buffer into the tree
// under a recursive Merkle-update proof. The proof's public inputs, in
// order, are [oldRoot, newRoot, startIndex, batchSize, commitmentsHash]
// where oldRoot and startIndex are the tree's current root and cursor.
//
// Any mismatch between what the prover committed to and the tree's actual
// state surfaces as an invalid proof; the buffer and tree are left
// untouched on every failure path.
func (p *Pool) SettleDepositsBatch(proofBytes []byte, newRoot [32]byte, batchSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pausedAll {
		return ErrPaused
	}
	if batchSize < 1 || batchSize > p.cfg.MaxBatchSize || batchSize > p.pending.count() {
		return ErrInvalidBatch
	}

	vk, err := p.vkFor(groth16.ProofMerkleBatchUpdate)
	if err != nil {
		return err
	}
	proof, err := groth16.ParseProof(proofBytes)
	if err != nil {
		return err
	}

	taken := p.pending.prefix(batchSize)
	startIndex := p.tree.NextLeafIndex()
	inputs := [][32]byte{
		p.tree.CurrentRoot(),
		newRoot,
		field.FromUint64(startIndex),
		field.FromUint64(uint64(batchSize)),
		batchCommitmentsHash(taken, p.cfg.MaxBatchSize),
	}
	if err := groth16.Verify(vk, proof, inputs); err != nil {
		return err
	}

	if err := p.tree.AppendBatch(newRoot, startIndex, taken); err != nil {
		return err
	}
	p.pending.drop(batchSize)

	now := p.now()
	p.stats.BatchesSettled++
	p.stats.CommitmentsSettled += uint64(batchSize)
	p.stats.LastSettlementAt = now
	p.stats.LastSettlementSize = batchSize
	p.journalSettlement(startIndex, batchSize, newRoot, now)

	p.emit(SettlementEvent{
		BatchSize:  batchSize,
		StartIndex: startIndex,
		NewRoot:    newRoot,
		SettledAt:  now,
	})
	return nil
}

// batchCommitmentsHash is the canonical digest binding a batch to its
// settlement proof: SHA256 over exactly maxBatch zero-padded 32-byte slots,
// truncated to 253 bits by masking the top three bits so the result is a
// field element. Prover and verifier must agree on both the width and the
// truncation.
func batchCommitmentsHash(commitments [][32]byte, maxBatch int) [32]byte {
	h := sha256.New()
	for _, c := range commitments {
		h.Write(c[:])
	}
	var zero [32]byte
	for i := len(commitments); i < maxBatch; i++ {
		h.Write(zero[:])
	}
	var out [32]byte
	h.Sum(out[:0])
	out[0] &= 0x1f
	return out
}

// journalSettlement writes one record per settled batch (start index, batch
// size, new root, settlement timestamp) to the host record store, keyed by
// the batch sequence number.
func (p *Pool) journalSettlement(startIndex uint64, batchSize int, newRoot [32]byte, now int64) {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], p.stats.BatchesSettled)
	addr := deriveAddress(p.address, tagSettlement, key[:])

	rec := make([]byte, 8+8+32+8)
	binary.BigEndian.PutUint64(rec[0:8], startIndex)
	binary.BigEndian.PutUint64(rec[8:16], uint64(batchSize))
	copy(rec[16:48], newRoot[:])
	binary.BigEndian.PutUint64(rec[48:56], uint64(now))

	if err := p.records.Put(addr[:], rec); err != nil {
		p.log.Warn("settlement journal write failed", "err", err)
	}
}
