// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package field provides the canonical BN254 scalar-field encodings and the
// elliptic-curve group operations the privacy engine contracts against.
// Scalars cross the wire as 32-byte big-endian integers strictly below the
// field order; anything else fails closed.
package field

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	luxcrypto "github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

var (
	ErrInvalidScalar = errors.New("invalid scalar: not a canonical field element")
	ErrInvalidPoint  = errors.New("invalid curve point")
)

// FrModulus is r, the order of the BN254 scalar field.
var FrModulus = fr.Modulus()

// FpModulus is p, the BN254 base-field modulus. Needed for byte-level point
// negation (y -> p - y) without a round-trip through the group library.
var FpModulus = new(big.Int).SetBytes([]byte{
	0x30, 0x64, 0x4e, 0x72, 0xe1, 0x31, 0xa0, 0x29,
	0xb8, 0x50, 0x45, 0xb6, 0x81, 0x81, 0x58, 0x5d,
	0x97, 0x81, 0x6a, 0x91, 0x68, 0x71, 0xca, 0x8d,
	0x3c, 0x20, 0x8c, 0x16, 0xd8, 0x7c, 0xfd, 0x47,
})

// assetIDSeed is the domain-separation prefix for asset-id derivation.
// Both the engine and the SDK derive from this exact string.
const assetIDSeed = "psol:asset_id:v1"

// IsCanonical reports whether b encodes an integer strictly below r.
func IsCanonical(b [32]byte) bool {
	return new(big.Int).SetBytes(b[:]).Cmp(FrModulus) < 0
}

// ToElement decodes a canonical 32-byte big-endian scalar. Non-canonical
// input is rejected, never silently reduced.
func ToElement(b [32]byte) (fr.Element, error) {
	var e fr.Element
	if !IsCanonical(b) {
		return e, ErrInvalidScalar
	}
	e.SetBytes(b[:])
	return e, nil
}

// FromElement encodes a field element as its canonical 32-byte form.
func FromElement(e fr.Element) [32]byte {
	return e.Bytes()
}

// FromUint64 encodes a machine word as a canonical scalar.
func FromUint64(v uint64) [32]byte {
	var e fr.Element
	e.SetUint64(v)
	return e.Bytes()
}

// PubkeyToScalar maps a 32-byte account address into Fr by setting the high
// byte to zero and keeping the first 31 bytes of the address.
//
// The leading zero guarantees canonicality, but two addresses sharing their
// first 31 bytes collapse to the same scalar. The collision probability is
// negligible for honestly generated keys; callers binding value to an
// address through this scalar should be aware of it.
func PubkeyToScalar(pk common.Hash) [32]byte {
	var out [32]byte
	copy(out[1:], pk[:31])
	return out
}

// AssetID derives the canonical 32-byte asset identifier for a mint:
// 0x00 || Keccak256(assetIDSeed || mint)[0..31]. The zero high byte keeps
// the identifier inside Fr so it can appear directly as a public input.
func AssetID(mint common.Hash) [32]byte {
	digest := luxcrypto.Keccak256([]byte(assetIDSeed), mint[:])
	var out [32]byte
	copy(out[1:], digest[:31])
	return out
}

// PublicAmountScalar encodes a signed public amount as a field element using
// the usual circuit convention: non-negative values map to themselves,
// negative values to r - |v|.
func PublicAmountScalar(v int64) [32]byte {
	n := big.NewInt(v)
	if v < 0 {
		n.Add(FrModulus, n)
	}
	var out [32]byte
	n.FillBytes(out[:])
	return out
}
