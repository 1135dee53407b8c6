package inmemory

import (
	"context"
	"sync"

	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
)

type derivationIndexRepositoryImpl struct {
	locker *sync.Mutex
	index  int
	isSet  bool
}

// NewDerivationIndexRepositoryImpl returns a new inmemory
// DerivationIndexRepository implementation.
func NewDerivationIndexRepositoryImpl() domain.DerivationIndexRepository {
	return &derivationIndexRepositoryImpl{locker: &sync.Mutex{}}
}

func (r *derivationIndexRepositoryImpl) Get(_ context.Context) (int, bool, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	return r.index, r.isSet, nil
}

func (r *derivationIndexRepositoryImpl) Set(_ context.Context, index int) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	if r.isSet && index <= r.index {
		return nil
	}
	r.index = index
	r.isSet = true
	return nil
}

func (r *derivationIndexRepositoryImpl) Clear(_ context.Context) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	r.index = 0
	r.isSet = false
	return nil
}
