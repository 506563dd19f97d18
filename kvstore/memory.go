package kvstore

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/abhim1509/pharmaContract/ledger"
)

// ErrReadOnly is returned when a Put is attempted inside a View.
var ErrReadOnly = errors.New("read-only transaction")

// Memory is an in-memory EntityStore with the same transactional and
// history semantics as the Badger store. It backs tests and keeps them
// hermetic and deterministic.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	history map[string][][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:    make(map[string][]byte),
		history: make(map[string][][]byte),
	}
}

// Update runs fn against a staged view. The write-set is applied to the
// committed state only if fn returns nil, so a failed operation leaves
// no partial writes behind.
func (m *Memory) Update(fn func(ledger.EntityStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := &memoryTxn{store: m}
	if err := fn(txn); err != nil {
		return err
	}
	for _, write := range txn.writes {
		m.data[write.Key] = write.Value
		m.history[write.Key] = append(m.history[write.Key], write.Value)
	}
	return nil
}

// View runs fn against the committed state; writes are rejected.
func (m *Memory) View(fn func(ledger.EntityStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memoryTxn{store: m, readOnly: true})
}

// memoryTxn stages writes over the committed state of a Memory store.
type memoryTxn struct {
	store    *Memory
	writes   []ledger.KV
	readOnly bool
}

func (t *memoryTxn) Get(key string) ([]byte, error) {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if t.writes[i].Key == key {
			return t.writes[i].Value, nil
		}
	}
	value, ok := t.store.data[key]
	if !ok {
		return nil, ledger.ErrKeyNotFound
	}
	return value, nil
}

func (t *memoryTxn) Put(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.writes = append(t.writes, ledger.KV{Key: key, Value: value})
	return nil
}

func (t *memoryTxn) ScanByPrefix(prefix string) ([]ledger.KV, error) {
	merged := make(map[string][]byte)
	for key, value := range t.store.data {
		if strings.HasPrefix(key, prefix) {
			merged[key] = value
		}
	}
	for _, write := range t.writes {
		if strings.HasPrefix(write.Key, prefix) {
			merged[write.Key] = write.Value
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]ledger.KV, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, ledger.KV{Key: key, Value: merged[key]})
	}
	return entries, nil
}

func (t *memoryTxn) History(key string) ([][]byte, error) {
	versions := append([][]byte{}, t.store.history[key]...)
	for _, write := range t.writes {
		if write.Key == key {
			versions = append(versions, write.Value)
		}
	}
	if len(versions) == 0 {
		return nil, ledger.ErrKeyNotFound
	}
	return versions, nil
}
