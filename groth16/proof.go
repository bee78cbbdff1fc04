// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package groth16 verifies Groth16 proofs over BN254 against verification
// keys stored by the pool. Proofs and keys travel in the fixed wire layout
// the host contract defines; all G2 encodings are imaginary-first in both
// directions.
package groth16

import (
	"errors"
)

var (
	ErrInvalidProof           = errors.New("invalid proof")
	ErrInvalidVerificationKey = errors.New("invalid verification key")
)

// ProofSize is the exact wire size of a proof:
// A (64 bytes, G1) || B (128 bytes, G2 imaginary-first) || C (64 bytes, G1).
const ProofSize = 256

// Proof is the 256-byte wire form of a Groth16 proof. Points are decoded,
// and therefore curve-checked, only at verification time.
type Proof [ProofSize]byte

// Proof component offsets in the wire layout.
const (
	proofAOffset = 0
	proofBOffset = 64
	proofCOffset = 192
)

// ParseProof copies a 256-byte wire proof. Any other length is rejected.
func ParseProof(b []byte) (Proof, error) {
	var p Proof
	if len(b) != ProofSize {
		return p, ErrInvalidProof
	}
	copy(p[:], b)
	return p, nil
}

// Bytes returns the wire encoding.
func (p Proof) Bytes() []byte {
	out := make([]byte, ProofSize)
	copy(out, p[:])
	return out
}

func (p Proof) a() []byte { return p[proofAOffset:proofBOffset] }
func (p Proof) b() []byte { return p[proofBOffset:proofCOffset] }
func (p Proof) c() []byte { return p[proofCOffset:ProofSize] }
