// Package kvstore provides EntityStore implementations: a Badger-backed
// store for node operation and an in-memory store with the same
// semantics for tests.
package kvstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/abhim1509/pharmaContract/ledger"
)

// Internal key prefixes. Entity state, history versions, and history
// counters live under disjoint prefixes so a prefix scan over state
// never picks up bookkeeping rows.
const (
	statePrefix   = "s:"
	historyPrefix = "h:"
	counterPrefix = "c:"
)

// BadgerStore opens transactional EntityStore views over a Badger
// database. Badger's optimistic concurrency detects read-set/write-set
// conflicts between concurrent transactions; a conflicting commit
// surfaces as a CONFLICT ContractError.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open Badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Update runs fn in a read-write transaction. The staged write-set
// commits if fn returns nil and is discarded otherwise.
func (s *BadgerStore) Update(fn func(ledger.EntityStore) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		return ledger.NewConflictError(
			"transaction conflict",
			"a dependency was concurrently modified before commit",
		)
	}
	return err
}

// View runs fn in a read-only transaction.
func (s *BadgerStore) View(fn func(ledger.EntityStore) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

// badgerTxn adapts one Badger transaction to the EntityStore boundary.
type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key string) ([]byte, error) {
	item, err := t.txn.Get([]byte(statePrefix + key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ledger.ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Put stores value as the current state of key and appends it as the
// next history version within the same transaction.
func (t *badgerTxn) Put(key string, value []byte) error {
	seq, err := t.versionCount(key)
	if err != nil {
		return err
	}
	if err := t.txn.Set([]byte(statePrefix+key), value); err != nil {
		return err
	}
	if err := t.txn.Set(historyKey(key, seq), value); err != nil {
		return err
	}
	return t.txn.Set([]byte(counterPrefix+key), uint64ToBytes(seq+1))
}

func (t *badgerTxn) ScanByPrefix(prefix string) ([]ledger.KV, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(statePrefix + prefix)

	it := t.txn.NewIterator(opts)
	defer it.Close()

	var entries []ledger.KV
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ledger.KV{
			Key:   string(item.Key())[len(statePrefix):],
			Value: value,
		})
	}
	return entries, nil
}

func (t *badgerTxn) History(key string) ([][]byte, error) {
	count, err := t.versionCount(key)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ledger.ErrKeyNotFound
	}

	versions := make([][]byte, 0, count)
	for seq := uint64(0); seq < count; seq++ {
		item, err := t.txn.Get(historyKey(key, seq))
		if err != nil {
			return nil, fmt.Errorf("reading history version %d of %q: %w", seq, key, err)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		versions = append(versions, value)
	}
	return versions, nil
}

// versionCount reads the number of history versions written under key.
func (t *badgerTxn) versionCount(key string) (uint64, error) {
	item, err := t.txn.Get([]byte(counterPrefix + key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var count uint64
	err = item.Value(func(val []byte) error {
		count = bytesToUint64(val)
		return nil
	})
	return count, err
}

// historyKey addresses one version of a key. The sequence number is
// big-endian so lexicographic key order matches version order.
func historyKey(key string, seq uint64) []byte {
	buf := make([]byte, 0, len(historyPrefix)+len(key)+1+8)
	buf = append(buf, historyPrefix...)
	buf = append(buf, key...)
	buf = append(buf, ':')
	return binary.BigEndian.AppendUint64(buf, seq)
}

func uint64ToBytes(i uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, i)
	return buf
}

func bytesToUint64(buf []byte) uint64 {
	if len(buf) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buf)
}
