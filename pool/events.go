// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

// Events carry only non-identifying data: counters, asset identifiers,
// already-public nullifier hashes and commitments. Never raw secrets,
// pre-hash nullifiers, or recipient derivations beyond the public
// recipient scalar the proof itself exposes.

// Event is implemented by every engine event.
type Event interface {
	EventName() string
}

// EventSink receives engine events. Nil sinks are allowed; events are then
// only logged.
type EventSink func(Event)

// DepositEvent is emitted after a commitment is admitted to the pending
// buffer.
type DepositEvent struct {
	AssetID        [32]byte
	Amount         uint64
	PendingCount   int
	PublicDataHash [32]byte
}

func (DepositEvent) EventName() string { return "deposit" }

// SettlementEvent is emitted after a batch is settled into the tree.
type SettlementEvent struct {
	BatchSize  int
	StartIndex uint64
	NewRoot    [32]byte
	SettledAt  int64
}

func (SettlementEvent) EventName() string { return "settle_deposits_batch" }

// WithdrawEvent is emitted after a completed withdrawal.
type WithdrawEvent struct {
	AssetID       [32]byte
	NullifierHash [32]byte
	Amount        uint64
	RelayerFee    uint64
}

func (WithdrawEvent) EventName() string { return "withdraw" }

// JoinSplitEvent is emitted after a completed join-split.
type JoinSplitEvent struct {
	AssetID           [32]byte
	NullifierHashes   [2][32]byte
	OutputCommitments [2][32]byte
	PublicAmount      int64
	RelayerFee        uint64
}

func (JoinSplitEvent) EventName() string { return "join_split" }

// AdminEvent is the audit record for a named admin operation.
type AdminEvent struct {
	Op     string
	Detail string
}

func (AdminEvent) EventName() string { return "admin" }

func (p *Pool) emit(ev Event) {
	p.log.Info("pool event", "pool", p.address, "event", ev.EventName())
	if p.sink != nil {
		p.sink(ev)
	}
}

func (p *Pool) audit(op, detail string) {
	p.log.Info("admin operation", "pool", p.address, "op", op, "detail", detail)
	if p.sink != nil {
		p.sink(AdminEvent{Op: op, Detail: detail})
	}
}
