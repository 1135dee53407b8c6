package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
)

type pendingTxRepositoryImpl struct {
	db *DbManager
}

// NewPendingTransactionRepositoryImpl returns a badger-backed
// domain.PendingTransactionRepository keyed by transaction id.
func NewPendingTransactionRepositoryImpl(db *DbManager) domain.PendingTransactionRepository {
	return pendingTxRepositoryImpl{db: db}
}

func (p pendingTxRepositoryImpl) GetAll(
	ctx context.Context,
) ([]*domain.PendingTransaction, error) {
	var txs []domain.PendingTransaction
	if err := p.db.Store.Find(&txs, nil); err != nil {
		return nil, err
	}

	result := make([]*domain.PendingTransaction, 0, len(txs))
	for i := range txs {
		tx := txs[i]
		result = append(result, &tx)
	}
	return result, nil
}

func (p pendingTxRepositoryImpl) Add(
	ctx context.Context, tx *domain.PendingTransaction,
) error {
	return p.db.Store.Upsert(tx.TxID, tx)
}

func (p pendingTxRepositoryImpl) Remove(ctx context.Context, txID string) error {
	if err := p.db.Store.Delete(txID, domain.PendingTransaction{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return err
	}
	return nil
}

func (p pendingTxRepositoryImpl) Wipe(ctx context.Context) error {
	return p.db.Store.DeleteMatching(domain.PendingTransaction{}, nil)
}
