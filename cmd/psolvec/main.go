// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// psolvec emits the golden-vector table for the cross-boundary encodings:
// Poseidon outputs for the fixed arities, the derived commitment and
// nullifier forms, the zero-subtree chain, and the address/asset scalar
// encodings. The SDK's test suite imports this table; any drift between
// prover-side and engine-side parameters fails both builds.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/luxfi/geth/common"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/poseidon"
)

type vectorFile struct {
	Hash2         []hashVector `json:"hash2"`
	Hash3         []hashVector `json:"hash3"`
	Hash4         []hashVector `json:"hash4"`
	Commitment    []hashVector `json:"commitment"`
	NullifierHash []hashVector `json:"nullifier_hash"`
	ZeroSubtrees  []string     `json:"zero_subtrees"`
	PubkeyScalar  []hashVector `json:"pubkey_scalar"`
	AssetID       []hashVector `json:"asset_id"`
}

type hashVector struct {
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

func main() {
	out := flag.String("out", "poseidon_vectors.json", "output file")
	depth := flag.Int("depth", 20, "zero-subtree chain length")
	flag.Parse()

	file, err := build(*depth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "psolvec: %v\n", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "psolvec: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "psolvec: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

func build(depth int) (*vectorFile, error) {
	file := &vectorFile{}

	// Small scalars exercise the permutation across all fixed arities.
	scalars := make([][32]byte, 8)
	for i := range scalars {
		scalars[i] = field.FromUint64(uint64(i))
	}

	for i := 0; i+1 < len(scalars); i++ {
		out, err := poseidon.Hash2(scalars[i], scalars[i+1])
		if err != nil {
			return nil, err
		}
		file.Hash2 = append(file.Hash2, vec(out, scalars[i], scalars[i+1]))
	}
	for i := 0; i+2 < len(scalars); i++ {
		out, err := poseidon.Hash3(scalars[i], scalars[i+1], scalars[i+2])
		if err != nil {
			return nil, err
		}
		file.Hash3 = append(file.Hash3, vec(out, scalars[i], scalars[i+1], scalars[i+2]))
	}
	for i := 0; i+3 < len(scalars); i++ {
		out, err := poseidon.Hash4(scalars[i], scalars[i+1], scalars[i+2], scalars[i+3])
		if err != nil {
			return nil, err
		}
		file.Hash4 = append(file.Hash4, vec(out, scalars[i], scalars[i+1], scalars[i+2], scalars[i+3]))
	}

	for i := 0; i < 4; i++ {
		secret := field.FromUint64(uint64(1000 + i))
		nullifier := field.FromUint64(uint64(2000 + i))
		assetID := field.AssetID(common.BytesToHash([]byte{byte(i + 1)}))
		amount := uint64(100_000_000 * (i + 1))

		c, err := poseidon.Commitment(secret, nullifier, amount, assetID)
		if err != nil {
			return nil, err
		}
		file.Commitment = append(file.Commitment, vec(c, secret, nullifier, field.FromUint64(amount), assetID))

		nh, err := poseidon.NullifierHash(nullifier, secret, uint64(i))
		if err != nil {
			return nil, err
		}
		file.NullifierHash = append(file.NullifierHash, vec(nh, nullifier, secret, field.FromUint64(uint64(i))))
	}

	zero := [32]byte{}
	file.ZeroSubtrees = append(file.ZeroSubtrees, hexOf(zero))
	node := zero
	for i := 0; i < depth; i++ {
		next, err := poseidon.MerkleParent(node, node)
		if err != nil {
			return nil, err
		}
		file.ZeroSubtrees = append(file.ZeroSubtrees, hexOf(next))
		node = next
	}

	for i := 0; i < 3; i++ {
		pk := common.BytesToHash([]byte{0xaa, byte(i)})
		file.PubkeyScalar = append(file.PubkeyScalar, vec(field.PubkeyToScalar(pk), [32]byte(pk)))
		file.AssetID = append(file.AssetID, vec(field.AssetID(pk), [32]byte(pk)))
	}

	return file, nil
}

func vec(out [32]byte, inputs ...[32]byte) hashVector {
	v := hashVector{Output: hexOf(out)}
	for _, in := range inputs {
		v.Inputs = append(v.Inputs, hexOf(in))
	}
	return v
}

func hexOf(b [32]byte) string {
	return hex.EncodeToString(b[:])
}
