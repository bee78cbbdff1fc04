// Copyright (C) 2025, pSOL Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"encoding/binary"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

// nullifierRecord is the persistent spend marker. Records live at the
// deterministic address derived from (pool, "nullifier", hash), so creation
// is at-most-once: two transactions racing the same nullifier collide on
// the record and one fails atomically.
//
// Records are created only AFTER proof verification. Creating them earlier
// would let an attacker reserve a victim's future nullifier with a bogus
// proof and permanently block the legitimate spend.
type nullifierRecord struct {
	Pool    common.Hash
	Hash    [32]byte
	SpentAt int64
}

const nullifierRecordSize = 32 + 32 + 8

func (r nullifierRecord) encode() []byte {
	out := make([]byte, nullifierRecordSize)
	copy(out[0:32], r.Pool[:])
	copy(out[32:64], r.Hash[:])
	binary.BigEndian.PutUint64(out[64:72], uint64(r.SpentAt))
	return out
}

func decodeNullifierRecord(b []byte) (nullifierRecord, bool) {
	var r nullifierRecord
	if len(b) != nullifierRecordSize {
		return r, false
	}
	copy(r.Pool[:], b[0:32])
	copy(r.Hash[:], b[32:64])
	r.SpentAt = int64(binary.BigEndian.Uint64(b[64:72]))
	return r, true
}

// nullifierStore keeps spend records in the host record store.
type nullifierStore struct {
	db   database.Database
	pool common.Hash
}

func newNullifierStore(db database.Database, pool common.Hash) *nullifierStore {
	return &nullifierStore{db: db, pool: pool}
}

// address is the deterministic record address for a nullifier hash.
func (s *nullifierStore) address(hash [32]byte) common.Hash {
	return deriveAddress(s.pool, tagNullifier, hash[:])
}

func (s *nullifierStore) exists(hash [32]byte) (bool, error) {
	addr := s.address(hash)
	return s.db.Has(addr[:])
}

// create writes the spend record, failing if one already exists.
func (s *nullifierStore) create(hash [32]byte, now int64) error {
	addr := s.address(hash)
	ok, err := s.db.Has(addr[:])
	if err != nil {
		return err
	}
	if ok {
		return ErrNullifierAlreadySpent
	}
	rec := nullifierRecord{Pool: s.pool, Hash: hash, SpentAt: now}
	return s.db.Put(addr[:], rec.encode())
}

// remove deletes a record created earlier in the same handler, unwinding
// the spend when a later step (a token transfer) fails. It is never called
// outside that rollback path; settled records are permanent.
func (s *nullifierStore) remove(hash [32]byte) error {
	addr := s.address(hash)
	return s.db.Delete(addr[:])
}

// get loads a spend record if present.
func (s *nullifierStore) get(hash [32]byte) (*nullifierRecord, error) {
	addr := s.address(hash)
	b, err := s.db.Get(addr[:])
	if err != nil {
		if err == database.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	rec, ok := decodeNullifierRecord(b)
	if !ok {
		return nil, database.ErrNotFound
	}
	return &rec, nil
}
