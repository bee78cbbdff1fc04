// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package groth16

import (
	"github.com/luxfi/crypto/bn256"

	"github.com/psolprotocol/psol-engine/field"
)

// Verify checks proof against vk and the ordered public-input vector.
//
// The check is e(-A, B) · e(alpha, beta) · e(vk_x, gamma) · e(C, delta) == 1
// with vk_x = IC[0] + sum_i input_i · IC[i+1]. Zero inputs contribute
// nothing and are skipped so the scalar multiplier never sees the identity.
//
// Every failure — arity mismatch, non-canonical input, malformed point,
// host pairing error, or a mathematically rejected proof — collapses to
// ErrInvalidProof. Callers cannot tell a transport problem from a forged
// proof, and must not retry.
func Verify(vk *VerificationKey, proof Proof, publicInputs [][32]byte) error {
	if len(publicInputs) != vk.Arity() {
		return ErrInvalidProof
	}
	for _, in := range publicInputs {
		if !field.IsCanonical(in) {
			return ErrInvalidProof
		}
	}

	a, err := field.ParseG1(proof.a())
	if err != nil {
		return ErrInvalidProof
	}
	b, err := field.ParseG2(proof.b())
	if err != nil {
		return ErrInvalidProof
	}
	c, err := field.ParseG1(proof.c())
	if err != nil {
		return ErrInvalidProof
	}

	alpha, err := field.ParseG1(vk.Alpha)
	if err != nil {
		return ErrInvalidProof
	}
	beta, err := field.ParseG2(vk.Beta)
	if err != nil {
		return ErrInvalidProof
	}
	gamma, err := field.ParseG2(vk.Gamma)
	if err != nil {
		return ErrInvalidProof
	}
	delta, err := field.ParseG2(vk.Delta)
	if err != nil {
		return ErrInvalidProof
	}

	vkx, err := field.ParseG1(vk.IC[0])
	if err != nil {
		return ErrInvalidProof
	}
	for i, in := range publicInputs {
		if isZeroScalar(in) {
			continue
		}
		ic, err := field.ParseG1(vk.IC[i+1])
		if err != nil {
			return ErrInvalidProof
		}
		term, err := field.G1ScalarMul(ic, in)
		if err != nil {
			return ErrInvalidProof
		}
		vkx = field.G1Add(vkx, term)
	}

	negA, err := field.G1Neg(a)
	if err != nil {
		return ErrInvalidProof
	}

	ok := field.PairingCheck(
		[]*bn256.G1{negA, alpha, vkx, c},
		[]*bn256.G2{b, beta, gamma, delta},
	)
	if !ok {
		return ErrInvalidProof
	}
	return nil
}

func isZeroScalar(s [32]byte) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}
