// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/psolprotocol/psol-engine/field"
	"github.com/psolprotocol/psol-engine/groth16"
	"github.com/psolprotocol/psol-engine/merkle"
)

// vkEntry is one registered verification key. Once locked, the key can
// never be replaced.
type vkEntry struct {
	vk     *groth16.VerificationKey
	locked bool
}

// Pool is the privacy engine for one shielded pool. All handlers run to
// completion under the pool lock; the host ledger serializes conflicting
// transactions, so there is no intra-handler suspension to reason about.
type Pool struct {
	mu sync.RWMutex

	cfg     Config
	address common.Hash
	log     log.Logger
	ledger  TokenLedger
	sink    EventSink

	tree    *merkle.Tree
	pending *pendingBuffer

	vaults       map[[32]byte]*AssetVault
	vaultsByMint map[common.Hash][32]byte
	vks          map[groth16.ProofType]*vkEntry
	denoms       map[[32]byte]*denomPolicy
	relayerNodes map[common.Hash]*RelayerNode

	nullifiers *nullifierStore
	records    database.Database

	pausedAll         bool
	pausedDeposits    bool
	pausedWithdrawals bool

	stats Stats

	// now is the admission clock, injectable in tests.
	now func() int64
}

// New initializes a pool: an empty tree of cfg.TreeDepth with a root
// history of cfg.RootHistorySize, an empty pending buffer, and no assets or
// keys. The database holds the pool's persistent records (nullifiers and
// the settlement journal).
func New(cfg Config, ledger TokenLedger, db database.Database, logger log.Logger) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ledger == nil || db == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}

	tree, err := merkle.New(cfg.TreeDepth, cfg.RootHistorySize)
	if err != nil {
		return nil, err
	}

	var seed [16]byte
	binary.BigEndian.PutUint64(seed[0:8], uint64(cfg.TreeDepth))
	binary.BigEndian.PutUint64(seed[8:16], uint64(cfg.RootHistorySize))
	address := deriveAddress(cfg.Admin, tagPool, seed[:])

	p := &Pool{
		cfg:          cfg,
		address:      address,
		log:          logger,
		ledger:       ledger,
		tree:         tree,
		pending:      newPendingBuffer(cfg.MaxPending),
		vaults:       make(map[[32]byte]*AssetVault),
		vaultsByMint: make(map[common.Hash][32]byte),
		vks:          make(map[groth16.ProofType]*vkEntry),
		denoms:       make(map[[32]byte]*denomPolicy),
		relayerNodes: make(map[common.Hash]*RelayerNode),
		nullifiers:   newNullifierStore(db, address),
		records:      db,
		now:          func() int64 { return time.Now().Unix() },
	}
	p.audit("initialize_pool", fmt.Sprintf("depth=%d history=%d", cfg.TreeDepth, cfg.RootHistorySize))
	return p, nil
}

// Address returns the pool's derived record address.
func (p *Pool) Address() common.Hash { return p.address }

// SetEventSink installs the event receiver.
func (p *Pool) SetEventSink(sink EventSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

// CurrentRoot returns the tree's latest accepted root.
func (p *Pool) CurrentRoot() [32]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.CurrentRoot()
}

// IsKnownRoot reports whether root is accepted as a membership anchor.
func (p *Pool) IsKnownRoot(root [32]byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.IsKnownRoot(root)
}

// IsSpent reports whether a nullifier record exists.
func (p *Pool) IsSpent(nullifierHash [32]byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nullifiers.exists(nullifierHash)
}

// Stats returns a snapshot of the engine counters.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.stats
	s.PendingCommitments = p.pending.count()
	s.NextLeafIndex = p.tree.NextLeafIndex()
	return s
}

// Vault returns a copy of the vault record for an asset.
func (p *Pool) Vault(assetID [32]byte) (*AssetVault, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.vaults[assetID]
	if !ok {
		return nil, ErrUnknownAsset
	}
	cp := *v
	return &cp, nil
}

// ---------------------------------------------------------------------------
// Admin operations
// ---------------------------------------------------------------------------

func (p *Pool) requireAdmin(caller common.Hash) error {
	if caller != p.cfg.Admin {
		return ErrUnauthorized
	}
	return nil
}

// RegisterAsset allocates a vault for mint and derives its asset id. One
// vault per mint per pool.
func (p *Pool) RegisterAsset(caller, mint common.Hash) ([32]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireAdmin(caller); err != nil {
		return [32]byte{}, err
	}
	if _, ok := p.vaultsByMint[mint]; ok {
		return [32]byte{}, ErrAssetExists
	}

	assetID := field.AssetID(mint)
	vault := &AssetVault{
		Address:      deriveAddress(p.address, tagVault, assetID[:]),
		TokenAccount: deriveAddress(p.address, tagVault+":token", assetID[:]),
		Mint:         mint,
		AssetID:      assetID,
	}
	p.vaults[assetID] = vault
	p.vaultsByMint[mint] = assetID
	p.audit("register_asset", mint.Hex())
	return assetID, nil
}

// SetYieldBearing flags a vault as yield-bearing with a performance fee.
// Yield settlement itself is outside the engine; the flag and fee ride on
// the vault record for the accounting layer above.
func (p *Pool) SetYieldBearing(caller common.Hash, assetID [32]byte, feeBps uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	if feeBps > bpsDenominator {
		return ErrInvalidConfig
	}
	v, ok := p.vaults[assetID]
	if !ok {
		return ErrUnknownAsset
	}
	v.YieldBearing = true
	v.PerformanceFeeBps = feeBps
	p.audit("set_yield_bearing", fmt.Sprintf("fee_bps=%d", feeBps))
	return nil
}

// SetVerificationKey registers or replaces the key for a proof type. The
// wire layout is alpha || beta || gamma || delta || ic-len || IC. Replacing
// a locked key fails; the IC length must match the proof type's declared
// public-input arity.
func (p *Pool) SetVerificationKey(caller common.Hash, t groth16.ProofType, wire []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	if !t.Valid() {
		return ErrUnknownProofType
	}
	if entry, ok := p.vks[t]; ok && entry.locked {
		return ErrVerificationKeyLocked
	}

	vk, err := groth16.ParseVerificationKey(wire)
	if err != nil {
		return err
	}
	if vk.Arity() != t.Arity() {
		return groth16.ErrInvalidVerificationKey
	}

	p.vks[t] = &vkEntry{vk: vk}
	p.audit("set_verification_key", t.String())
	return nil
}

// LockVerificationKey makes the key for a proof type immutable. Irreversible.
func (p *Pool) LockVerificationKey(caller common.Hash, t groth16.ProofType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	entry, ok := p.vks[t]
	if !ok {
		return ErrVerificationKeyUnset
	}
	entry.locked = true
	p.audit("lock_verification_key", t.String())
	return nil
}

// ConfigureDenominations sets the per-asset denomination list and its
// enforcement flag.
func (p *Pool) ConfigureDenominations(caller common.Hash, assetID [32]byte, list []uint64, enforce bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	if _, ok := p.vaults[assetID]; !ok {
		return ErrUnknownAsset
	}

	allowed := make(map[uint64]struct{}, len(list))
	for _, d := range list {
		allowed[d] = struct{}{}
	}
	p.denoms[assetID] = &denomPolicy{
		enforce: enforce,
		list:    append([]uint64(nil), list...),
		allowed: allowed,
	}
	p.audit("configure_denominations", fmt.Sprintf("count=%d enforce=%t", len(list), enforce))
	return nil
}

// PauseAll halts deposits, settlements, withdrawals, and join-splits.
func (p *Pool) PauseAll(caller common.Hash) error { return p.setPause(caller, "all", true) }

// UnpauseAll clears the global pause.
func (p *Pool) UnpauseAll(caller common.Hash) error { return p.setPause(caller, "all", false) }

// PauseDeposits halts deposits and shielding join-splits. Settlements and
// join-splits with a zero public amount still run.
func (p *Pool) PauseDeposits(caller common.Hash) error { return p.setPause(caller, "deposits", true) }

// UnpauseDeposits re-enables admissions.
func (p *Pool) UnpauseDeposits(caller common.Hash) error {
	return p.setPause(caller, "deposits", false)
}

// PauseWithdrawals halts withdrawals and unshielding join-splits.
func (p *Pool) PauseWithdrawals(caller common.Hash) error {
	return p.setPause(caller, "withdrawals", true)
}

// UnpauseWithdrawals re-enables withdrawals.
func (p *Pool) UnpauseWithdrawals(caller common.Hash) error {
	return p.setPause(caller, "withdrawals", false)
}

func (p *Pool) setPause(caller common.Hash, which string, v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	switch which {
	case "all":
		p.pausedAll = v
	case "deposits":
		p.pausedDeposits = v
	case "withdrawals":
		p.pausedWithdrawals = v
	}
	p.audit("pause", fmt.Sprintf("%s=%t", which, v))
	return nil
}

// ---------------------------------------------------------------------------
// Shared handler plumbing
// ---------------------------------------------------------------------------

// vkFor returns the registered key for a proof type.
func (p *Pool) vkFor(t groth16.ProofType) (*groth16.VerificationKey, error) {
	entry, ok := p.vks[t]
	if !ok {
		return nil, ErrVerificationKeyUnset
	}
	return entry.vk, nil
}

// VerifyMembership checks a read-only membership attestation: the proof
// must show a commitment included under a root the pool still accepts.
// Nothing is mutated; compliance tooling calls this without spending.
func (p *Pool) VerifyMembership(proofBytes []byte, root, commitment [32]byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.tree.IsKnownRoot(root) {
		return ErrUnknownRoot
	}
	vk, err := p.vkFor(groth16.ProofMembership)
	if err != nil {
		return err
	}
	proof, err := groth16.ParseProof(proofBytes)
	if err != nil {
		return err
	}
	return groth16.Verify(vk, proof, [][32]byte{root, commitment})
}
