package inmemory

import (
	"context"
	"sync"

	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
)

type pendingTxInmemoryStore struct {
	txsByID map[string]*domain.PendingTransaction
	locker  *sync.Mutex
}

type pendingTxRepositoryImpl struct {
	store *pendingTxInmemoryStore
}

// NewPendingTransactionRepositoryImpl returns a new inmemory
// PendingTransactionRepository implementation, used in demo mode and tests.
func NewPendingTransactionRepositoryImpl() domain.PendingTransactionRepository {
	return &pendingTxRepositoryImpl{
		store: &pendingTxInmemoryStore{
			txsByID: map[string]*domain.PendingTransaction{},
			locker:  &sync.Mutex{},
		},
	}
}

func (r pendingTxRepositoryImpl) GetAll(
	_ context.Context,
) ([]*domain.PendingTransaction, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	txs := make([]*domain.PendingTransaction, 0, len(r.store.txsByID))
	for _, tx := range r.store.txsByID {
		clone := *tx
		txs = append(txs, &clone)
	}
	return txs, nil
}

func (r pendingTxRepositoryImpl) Add(
	_ context.Context, tx *domain.PendingTransaction,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	clone := *tx
	r.store.txsByID[tx.TxID] = &clone
	return nil
}

func (r pendingTxRepositoryImpl) Remove(_ context.Context, txID string) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	delete(r.store.txsByID, txID)
	return nil
}

func (r pendingTxRepositoryImpl) Wipe(_ context.Context) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	r.store.txsByID = map[string]*domain.PendingTransaction{}
	return nil
}
