package ledger

import "errors"

// ErrKeyNotFound is returned by EntityStore implementations when a key
// has never been written. Contract operations translate it into an
// ENTITY_NOT_FOUND ContractError naming the missing entity.
var ErrKeyNotFound = errors.New("key not found")

// KV is a single entry yielded by a prefix scan.
type KV struct {
	Key   string
	Value []byte
}

// EntityStore is the persistence boundary the contract runs against.
// One store handle corresponds to one transaction: every Get and
// ScanByPrefix joins the transaction's read-set, every Put joins its
// write-set, and the transaction either commits as a whole or not at
// all. Conflict detection between concurrent transactions belongs to
// the implementation, not to the contract.
type EntityStore interface {
	// Get returns the current value under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Put stages value under key and appends it to the key's history.
	Put(key string, value []byte) error
	// ScanByPrefix returns every entry whose key starts with prefix,
	// in ascending lexicographic key order.
	ScanByPrefix(prefix string) ([]KV, error)
	// History returns every committed value ever written under key,
	// oldest first, or ErrKeyNotFound if the key was never written.
	History(key string) ([][]byte, error)
}

// CallerIdentity resolves the identity string of the current caller.
// The contract never reads it implicitly; transports resolve it once
// and pass the string into each operation.
type CallerIdentity interface {
	CurrentIdentity() string
}

// StoreOpener runs a function against a transactional EntityStore view.
// Update commits the staged write-set if fn returns nil and discards it
// otherwise; View is read-only.
type StoreOpener interface {
	Update(fn func(EntityStore) error) error
	View(fn func(EntityStore) error) error
}
