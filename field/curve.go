// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"math/big"

	"github.com/luxfi/crypto/bn256"
)

// Encoded point sizes. G2 coordinates are Fp2 values serialized
// imaginary-first (x.c1 || x.c0 || y.c1 || y.c0), matching the host pairing
// primitive.
const (
	G1Size = 64
	G2Size = 128
)

// ParseG1 decodes a 64-byte uncompressed G1 point. The underlying library
// performs the on-curve check; any rejection surfaces as ErrInvalidPoint.
func ParseG1(b []byte) (*bn256.G1, error) {
	if len(b) != G1Size {
		return nil, ErrInvalidPoint
	}
	p := new(bn256.G1)
	if _, err := p.Unmarshal(b); err != nil {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// ParseG2 decodes a 128-byte uncompressed G2 point (imaginary-first).
func ParseG2(b []byte) (*bn256.G2, error) {
	if len(b) != G2Size {
		return nil, ErrInvalidPoint
	}
	p := new(bn256.G2)
	if _, err := p.Unmarshal(b); err != nil {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// G1Add returns P + Q.
func G1Add(p, q *bn256.G1) *bn256.G1 {
	r := new(bn256.G1)
	r.Add(p, q)
	return r
}

// G1ScalarMul returns s·P for a canonical scalar. Non-canonical scalars fail
// closed rather than being reduced.
func G1ScalarMul(p *bn256.G1, s [32]byte) (*bn256.G1, error) {
	if !IsCanonical(s) {
		return nil, ErrInvalidScalar
	}
	r := new(bn256.G1)
	r.ScalarMult(p, new(big.Int).SetBytes(s[:]))
	return r, nil
}

// G1Neg returns -P by flipping the y coordinate to p - y at the byte level.
// A zero y round-trips unchanged, so the encoding of the identity survives
// negation.
func G1Neg(p *bn256.G1) (*bn256.G1, error) {
	enc := p.Marshal()
	negateFpCoord(enc[32:64])
	return ParseG1(enc)
}

// G2Neg returns -Q, negating both coefficients of the Fp2 y coordinate.
func G2Neg(q *bn256.G2) (*bn256.G2, error) {
	enc := q.Marshal()
	negateFpCoord(enc[64:96])
	negateFpCoord(enc[96:128])
	return ParseG2(enc)
}

// negateFpCoord replaces a 32-byte base-field coordinate with p - y in
// place, leaving zero untouched.
func negateFpCoord(y []byte) {
	v := new(big.Int).SetBytes(y)
	if v.Sign() == 0 {
		return
	}
	v.Sub(FpModulus, v)
	v.FillBytes(y)
}

// PairingCheck delegates the product-of-pairings check to the host
// precompiled operator: true iff the product of e(a_i, b_i) is one.
func PairingCheck(a []*bn256.G1, b []*bn256.G2) bool {
	return bn256.PairingCheck(a, b)
}
