// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package poseidon exposes the fixed-arity Poseidon sponge over the BN254
// scalar field that the engine and the proving side share. The parameter set
// is the circom reference set carried by gnark-crypto, so off-chain witnesses
// and on-chain reconstructions agree bit-for-bit.
//
// Every input must be a canonical field encoding; out-of-field bytes are
// rejected, never reduced.
package poseidon

import (
	"crypto/sha256"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon"

	"github.com/psolprotocol/psol-engine/field"
)

// Hash2 hashes two canonical field elements.
func Hash2(a, b [32]byte) ([32]byte, error) {
	return hashN(a, b)
}

// Hash3 hashes three canonical field elements.
func Hash3(a, b, c [32]byte) ([32]byte, error) {
	return hashN(a, b, c)
}

// Hash4 hashes four canonical field elements.
func Hash4(a, b, c, d [32]byte) ([32]byte, error) {
	return hashN(a, b, c, d)
}

func hashN(inputs ...[32]byte) ([32]byte, error) {
	elems := make([]*fr.Element, len(inputs))
	for i, in := range inputs {
		e, err := field.ToElement(in)
		if err != nil {
			return [32]byte{}, err
		}
		elems[i] = &e
	}
	return poseidon.Poseidon(elems...).Bytes(), nil
}

// Commitment computes the note commitment
// Poseidon(secret, nullifier, amount, assetID). This is the leaf form the
// deposit circuit attests to and the only shape the tree ever stores.
func Commitment(secret, nullifier [32]byte, amount uint64, assetID [32]byte) ([32]byte, error) {
	return Hash4(secret, nullifier, field.FromUint64(amount), assetID)
}

// NullifierHash computes Poseidon(Poseidon(nullifier, secret), leafIndex).
// The two-step form is load-bearing: the withdraw circuit computes the inner
// hash before binding the leaf index, and the engine must reproduce exactly
// that composition.
func NullifierHash(nullifier, secret [32]byte, leafIndex uint64) ([32]byte, error) {
	inner, err := Hash2(nullifier, secret)
	if err != nil {
		return [32]byte{}, err
	}
	return Hash2(inner, field.FromUint64(leafIndex))
}

// MerkleParent computes the internal tree node Poseidon(left, right).
func MerkleParent(left, right [32]byte) ([32]byte, error) {
	return Hash2(left, right)
}

// PublicDataHash digests an optional attached payload into a canonical
// field element: the all-zero element when the payload is absent, otherwise
// Poseidon over the two 128-bit halves of the payload's SHA256 digest. The
// prover side must apply the identical convention.
func PublicDataHash(payload []byte) [32]byte {
	if len(payload) == 0 {
		return [32]byte{}
	}
	digest := sha256.Sum256(payload)
	var hi, lo [32]byte
	copy(hi[16:], digest[0:16])
	copy(lo[16:], digest[16:32])
	// Both halves are below 2^128, hence canonical; Hash2 cannot fail.
	out, _ := Hash2(hi, lo)
	return out
}
