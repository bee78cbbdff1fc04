// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package groth16

import (
	"bytes"

	"github.com/psolprotocol/psol-engine/field"
)

// ProofType tags the circuit a verification key belongs to. Each variant
// declares the arity of its public-input vector; the pool serializes inputs
// for that variant in a single fixed order.
type ProofType uint8

const (
	ProofDeposit ProofType = iota
	ProofWithdraw
	ProofJoinSplit
	ProofMerkleBatchUpdate
	ProofMembership
)

// Arity returns the number of public inputs the circuit exposes.
func (t ProofType) Arity() int {
	switch t {
	case ProofDeposit:
		// commitment, amount, assetID
		return 3
	case ProofWithdraw:
		// merkleRoot, nullifierHash, assetID, recipientScalar, amount,
		// relayerScalar, relayerFee, publicDataHash
		return 8
	case ProofJoinSplit:
		// merkleRoot, assetID, nullifierHash0, nullifierHash1,
		// commitment0, commitment1, publicAmount, relayerScalar,
		// relayerFee, publicDataHash
		return 10
	case ProofMerkleBatchUpdate:
		// oldRoot, newRoot, startIndex, batchSize, commitmentsHash
		return 5
	case ProofMembership:
		// merkleRoot, commitment
		return 2
	default:
		return 0
	}
}

func (t ProofType) String() string {
	switch t {
	case ProofDeposit:
		return "deposit"
	case ProofWithdraw:
		return "withdraw"
	case ProofJoinSplit:
		return "join_split"
	case ProofMerkleBatchUpdate:
		return "merkle_batch_update"
	case ProofMembership:
		return "membership"
	default:
		return "unknown"
	}
}

// Valid reports whether t names a known circuit.
func (t ProofType) Valid() bool {
	return t <= ProofMembership
}

// VerificationKey holds the Groth16 verification key in its wire encodings.
// Points stay serialized at rest and are decoded, with on-curve checks, at
// verification time.
type VerificationKey struct {
	Alpha []byte   // G1, 64 bytes
	Beta  []byte   // G2, 128 bytes
	Gamma []byte   // G2, 128 bytes
	Delta []byte   // G2, 128 bytes
	IC    [][]byte // G1 each, length = public-input arity + 1
}

// Arity returns the public-input arity this key verifies.
func (vk *VerificationKey) Arity() int {
	return len(vk.IC) - 1
}

// vkFixedSize is alpha + beta + gamma + delta + the 1-byte IC length.
const vkFixedSize = field.G1Size + 3*field.G2Size + 1

// ParseVerificationKey decodes the wire form
// alpha || beta || gamma || delta || ic-len (1 byte) || IC elements.
// Every point must decode on-curve and be non-identity.
func ParseVerificationKey(b []byte) (*VerificationKey, error) {
	if len(b) < vkFixedSize {
		return nil, ErrInvalidVerificationKey
	}
	icLen := int(b[vkFixedSize-1])
	if icLen < 1 || len(b) != vkFixedSize+icLen*field.G1Size {
		return nil, ErrInvalidVerificationKey
	}

	vk := &VerificationKey{
		Alpha: cloneBytes(b[0:64]),
		Beta:  cloneBytes(b[64:192]),
		Gamma: cloneBytes(b[192:320]),
		Delta: cloneBytes(b[320:448]),
		IC:    make([][]byte, icLen),
	}
	off := vkFixedSize
	for i := 0; i < icLen; i++ {
		vk.IC[i] = cloneBytes(b[off : off+field.G1Size])
		off += field.G1Size
	}
	if err := vk.validate(); err != nil {
		return nil, err
	}
	return vk, nil
}

// Marshal re-emits the wire form.
func (vk *VerificationKey) Marshal() []byte {
	out := make([]byte, 0, vkFixedSize+len(vk.IC)*field.G1Size)
	out = append(out, vk.Alpha...)
	out = append(out, vk.Beta...)
	out = append(out, vk.Gamma...)
	out = append(out, vk.Delta...)
	out = append(out, byte(len(vk.IC)))
	for _, ic := range vk.IC {
		out = append(out, ic...)
	}
	return out
}

// validate checks that every stored point decodes on-curve and is not the
// identity. A key that fails here can never verify anything, so it is
// rejected at registration time rather than at first use.
func (vk *VerificationKey) validate() error {
	if isIdentityEncoding(vk.Alpha) {
		return ErrInvalidVerificationKey
	}
	if _, err := field.ParseG1(vk.Alpha); err != nil {
		return ErrInvalidVerificationKey
	}
	for _, g2 := range [][]byte{vk.Beta, vk.Gamma, vk.Delta} {
		if isIdentityEncoding(g2) {
			return ErrInvalidVerificationKey
		}
		if _, err := field.ParseG2(g2); err != nil {
			return ErrInvalidVerificationKey
		}
	}
	for _, ic := range vk.IC {
		if isIdentityEncoding(ic) {
			return ErrInvalidVerificationKey
		}
		if _, err := field.ParseG1(ic); err != nil {
			return ErrInvalidVerificationKey
		}
	}
	return nil
}

func isIdentityEncoding(b []byte) bool {
	return bytes.Count(b, []byte{0}) == len(b)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
