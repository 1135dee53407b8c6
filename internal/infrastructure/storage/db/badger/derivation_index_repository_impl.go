package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
)

const derivationIndexKey = "last-derived-address-index"

type derivationIndexEntry struct {
	Index int
}

type derivationIndexRepositoryImpl struct {
	db *DbManager
}

// NewDerivationIndexRepositoryImpl returns a badger-backed
// domain.DerivationIndexRepository stored under a single fixed key.
func NewDerivationIndexRepositoryImpl(db *DbManager) domain.DerivationIndexRepository {
	return derivationIndexRepositoryImpl{db: db}
}

func (d derivationIndexRepositoryImpl) Get(ctx context.Context) (int, bool, error) {
	var entry derivationIndexEntry
	if err := d.db.Store.Get(derivationIndexKey, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return entry.Index, true, nil
}

func (d derivationIndexRepositoryImpl) Set(ctx context.Context, index int) error {
	current, ok, err := d.Get(ctx)
	if err != nil {
		return err
	}
	// the cached index never decreases
	if ok && index <= current {
		return nil
	}

	return d.db.Store.Upsert(derivationIndexKey, &derivationIndexEntry{Index: index})
}

func (d derivationIndexRepositoryImpl) Clear(ctx context.Context) error {
	if err := d.db.Store.Delete(derivationIndexKey, derivationIndexEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return err
	}
	return nil
}
