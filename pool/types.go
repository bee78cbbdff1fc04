// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the on-chain privacy engine of the pSOL shielded
// pool: commitment admission and batched settlement into the Merkle tree,
// Groth16-gated withdrawals and join-splits, the nullifier ledger, and the
// per-asset vaults.
package pool

import (
	"errors"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

var (
	ErrPaused                = errors.New("pool is paused")
	ErrDepositsPaused        = errors.New("deposits are paused")
	ErrWithdrawalsPaused     = errors.New("withdrawals are paused")
	ErrNullifierAlreadySpent = errors.New("nullifier already spent")
	ErrUnknownRoot           = errors.New("unknown merkle root")
	ErrInvalidBatch          = errors.New("invalid settlement batch")
	ErrInvalidDenomination   = errors.New("amount not in enforced denomination list")
	ErrInvalidRelayerFee     = errors.New("relayer fee exceeds ceiling")
	ErrRecipientMismatch     = errors.New("token account does not belong to proof recipient")
	ErrInvalidRelayerNode    = errors.New("relayer node failed registry or address check")
	ErrPendingBufferFull     = errors.New("pending buffer is full")
	ErrVaultUnderflow        = errors.New("vault balance insufficient")
	ErrVerificationKeyLocked = errors.New("verification key is locked")
	ErrVerificationKeyUnset  = errors.New("verification key not registered")
	ErrUnknownAsset          = errors.New("asset not registered")
	ErrAssetExists           = errors.New("asset already registered")
	ErrUnauthorized          = errors.New("caller is not the pool administrator")
	ErrUnknownProofType      = errors.New("unknown proof type")
	ErrInvalidConfig         = errors.New("invalid pool configuration")
	ErrAmountOverflow        = errors.New("amount arithmetic overflow")
)

// Record-address entity tags. Deterministic addressing follows the host's
// program-derived-address discipline: derive(pool, tag, identifier).
const (
	tagPool        = "psol:pool:v1"
	tagVault       = "vault"
	tagNullifier   = "nullifier"
	tagSettlement  = "settlement"
	tagRelayerNode = "relayer_node"
)

// bpsDenominator is the basis-point scale for fee ceilings.
const bpsDenominator = 10_000

// Config fixes a pool's shape at creation. Everything here is immutable
// after New; runtime switches (pause flags, denominations, keys) are
// mutated only through the named admin operations.
type Config struct {
	// Admin is the administrator identity gating every admin operation.
	Admin common.Hash

	// TreeDepth is the fixed commitment-tree depth D.
	TreeDepth int

	// RootHistorySize is the ring size H of prior accepted roots (>= 30).
	RootHistorySize int

	// MaxPending bounds the pending buffer (P).
	MaxPending int

	// MaxBatchSize is the settlement batch ceiling B, which also fixes the
	// zero-padded width of the batch commitments hash.
	MaxBatchSize int

	// FeeCeilingBps caps the relayer fee as basis points of the withdrawn
	// amount. At most 10000.
	FeeCeilingBps uint64

	// RelayerRegistry, when non-zero, is the registry whose node records
	// withdrawals may present for the relayer-binding check.
	RelayerRegistry common.Hash
}

func (c Config) validate() error {
	if c.Admin == (common.Hash{}) {
		return ErrInvalidConfig
	}
	if c.MaxPending < 1 || c.MaxBatchSize < 1 || c.MaxBatchSize > c.MaxPending {
		return ErrInvalidConfig
	}
	if c.FeeCeilingBps > bpsDenominator {
		return ErrInvalidConfig
	}
	return nil
}

// AssetVault is the per-mint custody record. One vault per mint per pool;
// the vault exclusively owns its token balance.
type AssetVault struct {
	Address      common.Hash // derived record address
	TokenAccount common.Hash // host token account holding the balance
	Mint         common.Hash
	AssetID      [32]byte
	Balance      uint64

	// Yield-bearing assets carry a performance-fee sketch; yield settlement
	// itself happens outside the engine.
	YieldBearing      bool
	PerformanceFeeBps uint32
}

// Stats counts engine activity. Only counters and timestamps; nothing here
// identifies a depositor or recipient.
type Stats struct {
	DepositsAdmitted   uint64
	BatchesSettled     uint64
	CommitmentsSettled uint64
	Withdrawals        uint64
	JoinSplits         uint64
	LastSettlementAt   int64
	LastSettlementSize int
	PendingCommitments int
	NextLeafIndex      uint64
}

// denomPolicy is the optional per-asset denomination enforcement.
type denomPolicy struct {
	enforce bool
	list    []uint64
	allowed map[uint64]struct{}
}

func (d *denomPolicy) permits(amount uint64) bool {
	if d == nil || !d.enforce {
		return true
	}
	_, ok := d.allowed[amount]
	return ok
}

// deriveAddress computes the deterministic record address for
// (parent, tag, identifier) seeds.
func deriveAddress(parent common.Hash, tag string, id []byte) common.Hash {
	h := blake3.New()
	h.Write(parent[:])
	h.Write([]byte(tag))
	h.Write(id)
	var out common.Hash
	h.Digest().Read(out[:])
	return out
}
