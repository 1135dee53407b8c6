package application

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/pkg/hdpath"
	"github.com/tickwallet/tickwallet-daemon/pkg/identity"
	"github.com/thanhpk/randstr"
)

type demoAccountService struct {
	basePath hdpath.Path
	seed     string

	addresses []*domain.Address
	selected  int

	lock *sync.RWMutex
}

// NewDemoAccountService returns an AccountService that derives synthetic
// identities without a hardware device, meant for UI development and for
// exercising flows end to end against a real ledger being optional.
// Identities are deterministic for a given seed so that repeated runs show
// the same wallet.
func NewDemoAccountService(basePath, seed string) (AccountService, error) {
	path, err := hdpath.Parse(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base derivation path: %w", err)
	}
	if seed == "" {
		seed = randstr.Hex(16)
	}

	return &demoAccountService{
		basePath:  path,
		seed:      seed,
		addresses: make([]*domain.Address, 0),
		selected:  -1,
		lock:      &sync.RWMutex{},
	}, nil
}

func (s *demoAccountService) DeriveNext(
	_ context.Context, indexOverride *int,
) (*domain.Address, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	next := len(s.addresses)
	if indexOverride != nil {
		if *indexOverride < next {
			return nil, domain.ErrIndexAlreadyUsed
		}
		next = *indexOverride
	}
	if next > domain.MaxAddressIndex {
		return nil, domain.ErrIndexExhausted
	}

	path, err := s.basePath.WithIndex(uint32(next))
	if err != nil {
		return nil, err
	}
	pubKey := sha256.Sum256([]byte(fmt.Sprintf("%s/%d", s.seed, next)))
	id, err := identity.FromPublicKey(pubKey[:])
	if err != nil {
		return nil, err
	}

	addr := domain.NewAddress(id, pubKey[:], path.String(), next)
	s.addresses = append(s.addresses, addr)
	if s.selected < 0 {
		s.selected = 0
	}
	return addr, nil
}

func (s *demoAccountService) Restore(_ context.Context) error {
	return nil
}

func (s *demoAccountService) Select(index int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.addresses) <= 0 {
		return domain.ErrNoAddressesGenerated
	}
	if index < 0 || index >= len(s.addresses) {
		return domain.ErrIndexOutOfRange
	}
	s.selected = index
	return nil
}

func (s *demoAccountService) ClearSelection() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.selected = -1
}

func (s *demoAccountService) SelectedAddress() (*domain.Address, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.selected < 0 || s.selected >= len(s.addresses) {
		return nil, false
	}
	addr := *s.addresses[s.selected]
	return &addr, true
}

func (s *demoAccountService) ListAddresses() []domain.Address {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]domain.Address, 0, len(s.addresses))
	for _, addr := range s.addresses {
		list = append(list, *addr)
	}
	return list
}

func (s *demoAccountService) Reset(_ context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.addresses = make([]*domain.Address, 0)
	s.selected = -1
}

func (s *demoAccountService) setBalances(balancesByIndex map[int]string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i, addr := range s.addresses {
		if balance, ok := balancesByIndex[i]; ok {
			addr.Balance = balance
		}
	}
}
