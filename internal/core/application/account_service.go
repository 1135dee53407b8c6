package application

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/pkg/device"
	"github.com/tickwallet/tickwallet-daemon/pkg/hdpath"
	"github.com/tickwallet/tickwallet-daemon/pkg/identity"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

// AccountService manages the ordered list of hardware-derived addresses
// for the active device session. Derivations must be serialized by the
// caller, the service only guards its internal state.
type AccountService interface {
	// DeriveNext derives the address at the next free index, or at
	// indexOverride when non-nil. The first derived address becomes
	// the selection if none is active.
	DeriveNext(ctx context.Context, indexOverride *int) (*domain.Address, error)
	// Restore rederives every address up to the cached highest index.
	// It is a no-op when addresses are already loaded or the cache is
	// empty.
	Restore(ctx context.Context) error
	Select(index int) error
	ClearSelection()
	SelectedAddress() (*domain.Address, bool)
	ListAddresses() []domain.Address
	// Reset disconnects the device and drops all in-memory addresses.
	// The derivation index cache is deliberately left untouched.
	Reset(ctx context.Context)

	setBalances(balancesByIndex map[int]string)
}

type AccountServiceOpts struct {
	DeviceSvc device.Session
	LedgerSvc ledger.Service
	IndexRepo domain.DerivationIndexRepository
	BasePath  string
}

func (o AccountServiceOpts) validate() error {
	if o.DeviceSvc == nil {
		return fmt.Errorf("missing device session")
	}
	if o.LedgerSvc == nil {
		return fmt.Errorf("missing ledger service")
	}
	if o.IndexRepo == nil {
		return fmt.Errorf("missing derivation index repository")
	}
	if _, err := hdpath.Parse(o.BasePath); err != nil {
		return fmt.Errorf("invalid base derivation path: %w", err)
	}
	return nil
}

type accountService struct {
	deviceSvc device.Session
	ledgerSvc ledger.Service
	indexRepo domain.DerivationIndexRepository
	basePath  hdpath.Path

	addresses []*domain.Address
	selected  int

	lock *sync.RWMutex
}

func NewAccountService(opts AccountServiceOpts) (AccountService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	basePath, _ := hdpath.Parse(opts.BasePath)

	return &accountService{
		deviceSvc: opts.DeviceSvc,
		ledgerSvc: opts.LedgerSvc,
		indexRepo: opts.IndexRepo,
		basePath:  basePath,
		addresses: make([]*domain.Address, 0),
		selected:  -1,
		lock:      &sync.RWMutex{},
	}, nil
}

func (s *accountService) DeriveNext(
	ctx context.Context, indexOverride *int,
) (*domain.Address, error) {
	s.lock.RLock()
	count := len(s.addresses)
	s.lock.RUnlock()

	next := count
	if indexOverride != nil {
		if *indexOverride < count {
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
	pubKey, err := s.deviceSvc.GetPublicKey(path)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	id, err := identity.FromPublicKey(pubKey)
	if err != nil {
		return nil, err
	}

	addr := domain.NewAddress(id, pubKey, path.String(), next)
	if info, err := s.ledgerSvc.GetBalance(id); err != nil {
		log.WithError(err).Debugf(
			"account: failed to fetch balance for fresh address %s", id,
		)
	} else {
		addr.Balance = info.Balance
	}

	s.lock.Lock()
	s.addresses = append(s.addresses, addr)
	if s.selected < 0 {
		s.selected = 0
	}
	s.lock.Unlock()

	// The cache is advanced only once the address is in the list, so a
	// crash mid-derivation never records an index we cannot restore.
	if err := s.indexRepo.Set(ctx, next); err != nil {
		log.WithError(err).Warn("account: failed to persist derivation index")
	}

	return addr, nil
}

func (s *accountService) Restore(ctx context.Context) error {
	s.lock.RLock()
	count := len(s.addresses)
	s.lock.RUnlock()
	if count > 0 {
		return nil
	}

	highest, ok, err := s.indexRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read derivation index cache: %w", err)
	}
	if !ok {
		return nil
	}

	for i := 0; i <= highest; i++ {
		index := i
		if _, err := s.DeriveNext(ctx, &index); err != nil {
			return fmt.Errorf(
				"failed to rederive address at index %d: %w", index, err,
			)
		}
	}
	return nil
}

func (s *accountService) Select(index int) error {
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

func (s *accountService) ClearSelection() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.selected = -1
}

func (s *accountService) SelectedAddress() (*domain.Address, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.selected < 0 || s.selected >= len(s.addresses) {
		return nil, false
	}
	addr := *s.addresses[s.selected]
	return &addr, true
}

func (s *accountService) ListAddresses() []domain.Address {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]domain.Address, 0, len(s.addresses))
	for _, addr := range s.addresses {
		list = append(list, *addr)
	}
	return list
}

func (s *accountService) Reset(ctx context.Context) {
	s.deviceSvc.Disconnect()

	s.lock.Lock()
	defer s.lock.Unlock()

	s.addresses = make([]*domain.Address, 0)
	s.selected = -1
}

func (s *accountService) setBalances(balancesByIndex map[int]string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i, addr := range s.addresses {
		if balance, ok := balancesByIndex[i]; ok {
			addr.Balance = balance
		}
	}
}
