// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"errors"

	"github.com/psolprotocol/psol-engine/poseidon"
)

var ErrInvalidPath = errors.New("merkle path length does not match depth")

// Path is a bottom-up authentication path: the sibling at each level of a
// depth-deep tree.
type Path struct {
	Siblings [][32]byte
	Index    uint64
}

// BuildPath derives the authentication path for the leaf at index in a
// depth-deep tree holding leaves at indices 0..len(leaves)-1 and zeros
// elsewhere. This is off-chain tooling: the membership circuit's witness
// side, and the independent check the engine's tests lean on.
func BuildPath(depth int, leaves [][32]byte, index uint64) (*Path, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, ErrInvalidDepth
	}
	if index >= uint64(1)<<uint(depth) || index >= uint64(len(leaves)) {
		return nil, ErrIndexMismatch
	}

	level := make([][32]byte, len(leaves))
	copy(level, leaves)

	path := &Path{Siblings: make([][32]byte, 0, depth), Index: index}
	zero := [32]byte{}
	pos := index
	for d := 0; d < depth; d++ {
		sibling := zero
		if sib := pos ^ 1; sib < uint64(len(level)) {
			sibling = level[sib]
		}
		path.Siblings = append(path.Siblings, sibling)

		next := make([][32]byte, (len(level)+1)/2)
		for i := range next {
			left, right := zero, zero
			if 2*i < len(level) {
				left = level[2*i]
			}
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			parent, err := poseidon.MerkleParent(left, right)
			if err != nil {
				return nil, err
			}
			next[i] = parent
		}
		level = next
		z, err := poseidon.MerkleParent(zero, zero)
		if err != nil {
			return nil, err
		}
		zero = z
		pos >>= 1
	}
	return path, nil
}

// Verify recomputes the root from a leaf along the path and compares.
func (p *Path) Verify(depth int, leaf, root [32]byte) (bool, error) {
	if len(p.Siblings) != depth {
		return false, ErrInvalidPath
	}

	node := leaf
	pos := p.Index
	for d := 0; d < depth; d++ {
		var err error
		if pos&1 == 0 {
			node, err = poseidon.MerkleParent(node, p.Siblings[d])
		} else {
			node, err = poseidon.MerkleParent(p.Siblings[d], node)
		}
		if err != nil {
			return false, err
		}
		pos >>= 1
	}
	return node == root, nil
}
