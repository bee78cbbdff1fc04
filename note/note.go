// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package note holds the client-side note model: the (secret, nullifier,
// amount, assetID) tuple behind a commitment. The engine never sees these
// fields; the package exists so the SDK boundary and the engine share one
// derivation of commitments and nullifier hashes.
package note

import (
	"crypto/rand"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/poseidon"
)

// Note is one shielded UTXO. LeafIndex is set once the commitment settles
// into the tree; the nullifier hash depends on it.
type Note struct {
	Secret    [32]byte
	Nullifier [32]byte
	Amount    uint64
	AssetID   [32]byte
	LeafIndex uint64
}

// New samples fresh secret and nullifier scalars for a note. Randomness
// defaults to crypto/rand when r is nil.
func New(r io.Reader, amount uint64, assetID [32]byte) (*Note, error) {
	if r == nil {
		r = rand.Reader
	}
	secret, err := randomScalar(r)
	if err != nil {
		return nil, err
	}
	nullifier, err := randomScalar(r)
	if err != nil {
		return nil, err
	}
	return &Note{
		Secret:    secret,
		Nullifier: nullifier,
		Amount:    amount,
		AssetID:   assetID,
	}, nil
}

// Commitment derives the tree leaf Poseidon(secret, nullifier, amount,
// assetID) — the exact value the deposit circuit attests to.
func (n *Note) Commitment() ([32]byte, error) {
	return poseidon.Commitment(n.Secret, n.Nullifier, n.Amount, n.AssetID)
}

// NullifierHash derives the spend marker for this note at its settled leaf
// index.
func (n *Note) NullifierHash() ([32]byte, error) {
	return poseidon.NullifierHash(n.Nullifier, n.Secret, n.LeafIndex)
}

// randomScalar samples a uniform canonical field element. Custom readers
// (deterministic test streams) are reduced into the field.
func randomScalar(r io.Reader) ([32]byte, error) {
	var e fr.Element
	if r == rand.Reader {
		if _, err := e.SetRandom(); err != nil {
			return [32]byte{}, err
		}
	} else {
		var buf [32]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return [32]byte{}, err
		}
		e.SetBytes(buf[:])
	}
	out := e.Bytes()
	if !field.IsCanonical(out) {
		return [32]byte{}, field.ErrInvalidScalar
	}
	return out, nil
}
