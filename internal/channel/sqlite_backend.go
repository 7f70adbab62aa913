package channel

import (
	"errors"

	"grimm.is/rplinfo/internal/state"
)

// SQLiteBackend keeps records as entries of a state store, one bucket per
// record kind, keyed by channel name. Values are the same text the file
// backend writes.
type SQLiteBackend struct {
	store state.Store
}

// NewSQLiteBackend creates the buckets it needs in store.
func NewSQLiteBackend(store state.Store) (*SQLiteBackend, error) {
	for _, kind := range []Kind{MasterInfo, RelayLogInfo} {
		if err := store.CreateBucket(kind.String()); err != nil && !errors.Is(err, state.ErrBucketExists) {
			return nil, err
		}
	}
	return &SQLiteBackend{store: store}, nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) Read(channel string, kind Kind) ([]byte, error) {
	data, err := b.store.Get(kind.String(), channel)
	if errors.Is(err, state.ErrNotFound) {
		return nil, ErrNotExist
	}
	return data, err
}

// Write relies on the store running each Set in one transaction.
func (b *SQLiteBackend) Write(channel string, kind Kind, data []byte) error {
	return b.store.Set(kind.String(), channel, data)
}

func (b *SQLiteBackend) Remove(channel string, kind Kind) error {
	err := b.store.Delete(kind.String(), channel)
	if errors.Is(err, state.ErrNotFound) {
		return nil
	}
	return err
}

func (b *SQLiteBackend) List() ([]string, error) {
	return b.store.ListKeys(MasterInfo.String())
}
