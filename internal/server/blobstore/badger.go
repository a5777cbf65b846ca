package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/filex"
)

const badgerPrefix = "blob:"

// BadgerStore keeps blobs in a local badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if needed) a badger database in dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	path, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(id string) []byte {
	return []byte(badgerPrefix + id)
}

func (b *BadgerStore) Put(_ context.Context, id string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(id), data)
	})
}

func (b *BadgerStore) Get(_ context.Context, id string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return out, nil
}

func (b *BadgerStore) Delete(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(id))
	})
}

// Close flushes and closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
