// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"github.com/luxfi/geth/common"
)

// RelayerNode is a registry entry authorizing an operator to relay
// withdrawals. The node carries its registry's identity by value and proves
// canonicality by address: a node record is valid only at the address
// derived from (registry, "relayer_node", operator). Both checks are
// necessary — a node valid for a different pool's registry must be
// rejected even if its address derivation is internally consistent.
type RelayerNode struct {
	Address  common.Hash
	Registry common.Hash
	Operator common.Hash
}

// RelayerNodeAddress derives the canonical record address for an operator
// under a registry.
func RelayerNodeAddress(registry, operator common.Hash) common.Hash {
	return deriveAddress(registry, tagRelayerNode, operator[:])
}

// RegisterRelayerNode creates a node record for operator under the pool's
// registry. Admin-gated.
func (p *Pool) RegisterRelayerNode(caller, operator common.Hash) (*RelayerNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.cfg.Admin {
		return nil, ErrUnauthorized
	}
	if p.cfg.RelayerRegistry == (common.Hash{}) {
		return nil, ErrInvalidRelayerNode
	}

	node := &RelayerNode{
		Address:  RelayerNodeAddress(p.cfg.RelayerRegistry, operator),
		Registry: p.cfg.RelayerRegistry,
		Operator: operator,
	}
	p.relayerNodes[node.Address] = node
	p.audit("register_relayer_node", operator.Hex())
	return node, nil
}

// checkRelayerNode validates a caller-supplied node record: the registry
// field must match the pool's registry and the record address must equal
// the canonical derivation.
func (p *Pool) checkRelayerNode(node *RelayerNode) error {
	if p.cfg.RelayerRegistry == (common.Hash{}) {
		return ErrInvalidRelayerNode
	}
	if node.Registry != p.cfg.RelayerRegistry {
		return ErrInvalidRelayerNode
	}
	if node.Address != RelayerNodeAddress(node.Registry, node.Operator) {
		return ErrInvalidRelayerNode
	}
	stored, ok := p.relayerNodes[node.Address]
	if !ok || stored.Operator != node.Operator {
		return ErrInvalidRelayerNode
	}
	return nil
}
