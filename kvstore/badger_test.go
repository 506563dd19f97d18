package kvstore

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhim1509/pharmaContract/ledger"
)

func newBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBadgerStore(db)
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	s := newBadgerStore(t)

	err := s.Update(func(es ledger.EntityStore) error {
		return es.Put("a", []byte("1"))
	})
	require.NoError(t, err)

	err = s.View(func(es ledger.EntityStore) error {
		value, err := es.Get("a")
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("1"), value)

		_, err = es.Get("missing")
		assert.ErrorIs(t, err, ledger.ErrKeyNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestBadgerStoreFailedUpdateDiscardsWrites(t *testing.T) {
	s := newBadgerStore(t)
	boom := errors.New("boom")

	err := s.Update(func(es ledger.EntityStore) error {
		if err := es.Put("a", []byte("1")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(func(es ledger.EntityStore) error {
		_, err := es.Get("a")
		assert.ErrorIs(t, err, ledger.ErrKeyNotFound)
		_, err = es.History("a")
		assert.ErrorIs(t, err, ledger.ErrKeyNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestBadgerStoreScanByPrefix(t *testing.T) {
	s := newBadgerStore(t)

	err := s.Update(func(es ledger.EntityStore) error {
		for _, kv := range []ledger.KV{
			{Key: "p\x00b", Value: []byte("2")},
			{Key: "p\x00a", Value: []byte("1")},
			{Key: "q\x00c", Value: []byte("3")},
		} {
			if err := es.Put(kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.View(func(es ledger.EntityStore) error {
		entries, err := es.ScanByPrefix("p\x00")
		if err != nil {
			return err
		}
		require.Len(t, entries, 2)
		assert.Equal(t, "p\x00a", entries[0].Key)
		assert.Equal(t, "p\x00b", entries[1].Key)
		return nil
	})
	require.NoError(t, err)
}

func TestBadgerStoreHistoryOrder(t *testing.T) {
	s := newBadgerStore(t)

	for _, value := range []string{"v1", "v2", "v3"} {
		err := s.Update(func(es ledger.EntityStore) error {
			return es.Put("a", []byte(value))
		})
		require.NoError(t, err)
	}

	err := s.View(func(es ledger.EntityStore) error {
		versions, err := es.History("a")
		if err != nil {
			return err
		}
		require.Len(t, versions, 3)
		assert.Equal(t, []byte("v1"), versions[0])
		assert.Equal(t, []byte("v2"), versions[1])
		assert.Equal(t, []byte("v3"), versions[2])
		return nil
	})
	require.NoError(t, err)
}

// Multiple writes to one key inside a single transaction must each
// land in the history in order.
func TestBadgerStoreHistoryWithinTransaction(t *testing.T) {
	s := newBadgerStore(t)

	err := s.Update(func(es ledger.EntityStore) error {
		if err := es.Put("a", []byte("v1")); err != nil {
			return err
		}
		return es.Put("a", []byte("v2"))
	})
	require.NoError(t, err)

	err = s.View(func(es ledger.EntityStore) error {
		versions, err := es.History("a")
		if err != nil {
			return err
		}
		require.Len(t, versions, 2)
		assert.Equal(t, []byte("v1"), versions[0])
		assert.Equal(t, []byte("v2"), versions[1])
		return nil
	})
	require.NoError(t, err)
}
