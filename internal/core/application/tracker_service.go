package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/internal/core/ports"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
	"github.com/tickwallet/tickwallet-daemon/pkg/tickwatcher"
)

// TrackerService keeps every broadcast transaction under watch until the
// ledger confirms it or the polling budget runs out. Entries survive a
// restart through the durable registry and surface their lifecycle to the
// user through keyed notifications.
type TrackerService interface {
	// Add registers a transaction for tracking. The entry always starts
	// pending regardless of the status it carries.
	Add(ctx context.Context, tx *domain.PendingTransaction) error
	// Remove drops an entry along with its notification. Removing an
	// unknown id returns ErrTxNotFound.
	Remove(ctx context.Context, txID string) error
	// Get returns a copy of the tracked entry with the given id.
	Get(txID string) (*domain.PendingTransaction, error)
	// List returns a copy of every tracked entry in insertion order.
	List() []domain.PendingTransaction
	// CurrentTick reports the latest observed network tick, false while
	// none has been seen yet.
	CurrentTick() (uint32, bool)
	// HandleTick runs one polling cycle against the given network tick:
	// each eligible entry is looked up at most once and transitioned
	// according to the outcome.
	HandleTick(ctx context.Context, tick uint32)
	// ResetSession drops every entry, its notifications and the durable
	// registry.
	ResetSession(ctx context.Context) error
	// Observe consumes the tick watcher event stream until a quit event
	// arrives. Meant to be run in its own goroutine.
	Observe(ctx context.Context, eventChan chan tickwatcher.Event)
}

type TrackerServiceOpts struct {
	LedgerSvc ledger.Service
	Repo      domain.PendingTransactionRepository
	Publisher ports.NotificationPublisher
}

func (o TrackerServiceOpts) validate() error {
	if o.LedgerSvc == nil {
		return fmt.Errorf("missing ledger service")
	}
	if o.Repo == nil {
		return fmt.Errorf("missing pending transaction repository")
	}
	if o.Publisher == nil {
		return fmt.Errorf("missing notification publisher")
	}
	return nil
}

type trackerService struct {
	ledgerSvc ledger.Service
	repo      domain.PendingTransactionRepository
	publisher ports.NotificationPublisher

	txs   map[string]*domain.PendingTransaction
	order []string

	currentTick uint32
	tickKnown   bool
	scanning    int32

	lock *sync.RWMutex
}

// NewTrackerService returns a TrackerService preloaded with the entries
// found in the durable registry, so transactions broadcast before a restart
// keep being tracked.
func NewTrackerService(opts TrackerServiceOpts) (TrackerService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	svc := &trackerService{
		ledgerSvc: opts.LedgerSvc,
		repo:      opts.Repo,
		publisher: opts.Publisher,
		txs:       make(map[string]*domain.PendingTransaction),
		order:     make([]string, 0),
		lock:      &sync.RWMutex{},
	}

	persisted, err := opts.Repo.GetAll(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to restore pending transactions: %w", err)
	}
	for _, tx := range persisted {
		svc.txs[tx.TxID] = tx
		svc.order = append(svc.order, tx.TxID)
		svc.publishStatus(tx)
	}
	if len(persisted) > 0 {
		log.Debugf("tracker: restored %d pending transaction(s)", len(persisted))
	}
	return svc, nil
}

func notificationKey(txID string) string {
	return fmt.Sprintf("transaction-%s", txID)
}

func (s *trackerService) Add(
	ctx context.Context, tx *domain.PendingTransaction,
) error {
	tx.Status = domain.StatusPending
	tx.FailedLookups = 0

	s.lock.Lock()
	if _, ok := s.txs[tx.TxID]; !ok {
		s.order = append(s.order, tx.TxID)
	}
	s.txs[tx.TxID] = tx
	s.lock.Unlock()

	if err := s.repo.Add(ctx, tx); err != nil {
		return fmt.Errorf("failed to persist pending transaction: %w", err)
	}
	s.publishStatus(tx)
	return nil
}

func (s *trackerService) Remove(ctx context.Context, txID string) error {
	s.lock.Lock()
	if _, ok := s.txs[txID]; !ok {
		s.lock.Unlock()
		return domain.ErrTxNotFound
	}
	delete(s.txs, txID)
	for i, id := range s.order {
		if id == txID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.lock.Unlock()

	s.publisher.Dismiss(notificationKey(txID))
	return s.repo.Remove(ctx, txID)
}

func (s *trackerService) Get(txID string) (*domain.PendingTransaction, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	tx, ok := s.txs[txID]
	if !ok {
		return nil, domain.ErrTxNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *trackerService) List() []domain.PendingTransaction {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]domain.PendingTransaction, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, *s.txs[id])
	}
	return list
}

func (s *trackerService) CurrentTick() (uint32, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.currentTick, s.tickKnown
}

func (s *trackerService) HandleTick(ctx context.Context, tick uint32) {
	s.lock.Lock()
	s.currentTick = tick
	s.tickKnown = true
	eligible := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if s.txs[id].IsEligibleForLookup(tick) {
			eligible = append(eligible, id)
		}
	}
	s.lock.Unlock()

	if len(eligible) <= 0 {
		return
	}
	// Cycles may outlast the polling interval; overlapping ones are
	// dropped so that no entry is looked up twice for the same tick.
	if !atomic.CompareAndSwapInt32(&s.scanning, 0, 1) {
		log.Debug("tracker: scan skipped, previous cycle still running")
		return
	}
	defer atomic.StoreInt32(&s.scanning, 0)

	for _, txID := range eligible {
		s.lookupOnce(ctx, txID)
	}
}

func (s *trackerService) lookupOnce(ctx context.Context, txID string) {
	detail, err := s.ledgerSvc.GetTransaction(txID)

	s.lock.Lock()
	defer s.lock.Unlock()

	tx, ok := s.txs[txID]
	if !ok || tx.Status.IsTerminal() {
		return
	}

	if err == nil && detail != nil {
		if err := tx.ConfirmSuccess(); err != nil {
			return
		}
		s.evictFromStorage(ctx, txID)
		s.publishStatus(tx)
		return
	}

	// A persistently malformed reply means the network did process
	// something we cannot interpret, which is a different terminal
	// outcome than a transaction that never made it into a tick.
	ambiguous := errors.Is(err, ledger.ErrInvalidResponseShape)
	if ambiguous && tx.FailedLookups >= domain.MaxConsecutiveFailedLookups {
		if err := tx.MarkUnknown(); err != nil {
			return
		}
		s.evictFromStorage(ctx, txID)
		s.publishStatus(tx)
		return
	}

	becameFailed, trErr := tx.RegisterFailedLookup()
	if trErr != nil {
		return
	}
	if becameFailed {
		s.evictFromStorage(ctx, txID)
		s.publishStatus(tx)
	}
}

// evictFromStorage drops a terminal entry from the durable registry while it
// stays visible in memory until the user dismisses it. Callers must hold the
// lock.
func (s *trackerService) evictFromStorage(ctx context.Context, txID string) {
	if err := s.repo.Remove(ctx, txID); err != nil {
		log.WithError(err).Warnf(
			"tracker: failed to evict transaction %s from storage", txID,
		)
	}
}

func (s *trackerService) publishStatus(tx *domain.PendingTransaction) {
	var title, message string
	switch tx.Status {
	case domain.StatusSuccess:
		title = "Transfer confirmed"
		message = fmt.Sprintf(
			"Transaction %s was executed at tick %d.", tx.TxID, tx.Tick,
		)
	case domain.StatusFailed:
		title = "Transfer failed"
		message = fmt.Sprintf(
			"Transaction %s was not found after tick %d passed.",
			tx.TxID, tx.Tick,
		)
	case domain.StatusUnknown:
		title = "Transfer outcome unknown"
		message = fmt.Sprintf(
			"The status of transaction %s could not be determined.", tx.TxID,
		)
	default:
		title = "Transfer pending"
		message = fmt.Sprintf(
			"Transaction %s is waiting for tick %d.", tx.TxID, tx.Tick,
		)
	}

	s.publisher.Push(ports.Notification{
		Key:        notificationKey(tx.TxID),
		Title:      title,
		Message:    message,
		Persistent: true,
	})
}

func (s *trackerService) ResetSession(ctx context.Context) error {
	s.lock.Lock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	s.txs = make(map[string]*domain.PendingTransaction)
	s.order = make([]string, 0)
	s.lock.Unlock()

	for _, txID := range keys {
		s.publisher.Dismiss(notificationKey(txID))
	}
	if err := s.repo.Wipe(ctx); err != nil {
		return fmt.Errorf("failed to wipe pending transactions: %w", err)
	}
	return nil
}

func (s *trackerService) Observe(
	ctx context.Context, eventChan chan tickwatcher.Event,
) {
	for event := range eventChan {
		switch e := event.(type) {
		case tickwatcher.TickEvent:
			s.HandleTick(ctx, e.Tick)
		case tickwatcher.QuitEvent:
			log.Debug("tracker: stopped observing tick events")
			return
		}
	}
}
