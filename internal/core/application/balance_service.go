package application

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
	"golang.org/x/sync/errgroup"
)

// BalanceService refreshes the balance of every derived address against the
// remote ledger. Refreshes are single-flight: a call made while a previous
// one is still running returns immediately without issuing any request.
type BalanceService interface {
	// RefreshAll fetches all balances concurrently and applies them to
	// the address list in one atomic update. It returns whether a
	// refresh actually ran.
	RefreshAll(ctx context.Context) bool
}

type BalanceServiceOpts struct {
	AccountSvc AccountService
	LedgerSvc  ledger.Service
	// MaxConcurrentRequests bounds the fan-out of a refresh. Defaults
	// to 4 when unset.
	MaxConcurrentRequests int
}

type balanceService struct {
	accountSvc AccountService
	ledgerSvc  ledger.Service
	maxFanOut  int

	refreshing int32
}

func NewBalanceService(opts BalanceServiceOpts) BalanceService {
	maxFanOut := opts.MaxConcurrentRequests
	if maxFanOut <= 0 {
		maxFanOut = 4
	}
	return &balanceService{
		accountSvc: opts.AccountSvc,
		ledgerSvc:  opts.LedgerSvc,
		maxFanOut:  maxFanOut,
	}
}

func (s *balanceService) RefreshAll(ctx context.Context) bool {
	if !atomic.CompareAndSwapInt32(&s.refreshing, 0, 1) {
		log.Debug("balance: refresh skipped, another one is in flight")
		return false
	}
	defer atomic.StoreInt32(&s.refreshing, 0)

	addresses := s.accountSvc.ListAddresses()
	if len(addresses) <= 0 {
		return true
	}

	balancesByIndex := make(map[int]string)
	lock := &sync.Mutex{}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxFanOut)
	for i, addr := range addresses {
		index, id := i, addr.Identity
		eg.Go(func() error {
			info, err := s.ledgerSvc.GetBalance(id)
			if err != nil {
				// The previous balance stays in place, a partial
				// refresh must never zero out what the user sees.
				log.WithError(err).Debugf(
					"balance: failed to refresh %s", id,
				)
				return nil
			}
			lock.Lock()
			balancesByIndex[index] = info.Balance
			lock.Unlock()
			return nil
		})
	}
	eg.Wait()

	s.accountSvc.setBalances(balancesByIndex)
	return true
}
