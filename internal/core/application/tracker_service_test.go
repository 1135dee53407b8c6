package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/internal/core/ports"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
	"github.com/tickwallet/tickwallet-daemon/pkg/tickwatcher"
)

func newTrackedTx(txID string, tick uint32) *domain.PendingTransaction {
	return domain.NewPendingTransaction(
		txID, "SOURCE", "DEST", 500, tick, tick-10,
	)
}

func newTestTracker(
	t *testing.T,
	ledgerSvc *mockLedgerService,
	repo *mockPendingTxRepository,
	publisher *mockNotificationPublisher,
) TrackerService {
	t.Helper()

	svc, err := NewTrackerService(TrackerServiceOpts{
		LedgerSvc: ledgerSvc,
		Repo:      repo,
		Publisher: publisher,
	})
	require.NoError(t, err)
	return svc
}

func newEmptyRepo() *mockPendingTxRepository {
	repo := &mockPendingTxRepository{}
	repo.On("GetAll", mock.Anything).Return(nil, nil)
	repo.On("Add", mock.Anything, mock.Anything).Return(nil)
	repo.On("Remove", mock.Anything, mock.Anything).Return(nil)
	repo.On("Wipe", mock.Anything).Return(nil)
	return repo
}

func newQuietPublisher() *mockNotificationPublisher {
	publisher := &mockNotificationPublisher{}
	publisher.On("Push", mock.Anything).Return()
	publisher.On("Dismiss", mock.Anything).Return()
	return publisher
}

func TestAddForcesPendingStatusAndNotifies(t *testing.T) {
	repo := newEmptyRepo()
	publisher := &mockNotificationPublisher{}
	publisher.On("Push", mock.MatchedBy(func(n ports.Notification) bool {
		return n.Key == "transaction-TX1" && n.Persistent
	})).Return()

	svc := newTestTracker(t, &mockLedgerService{}, repo, publisher)

	tx := newTrackedTx("TX1", 110)
	tx.Status = domain.StatusFailed
	tx.FailedLookups = 2
	require.NoError(t, svc.Add(context.Background(), tx))

	tracked, err := svc.Get("TX1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, tracked.Status)
	require.Zero(t, tracked.FailedLookups)

	repo.AssertCalled(t, "Add", mock.Anything, mock.Anything)
	publisher.AssertExpectations(t)
}

func TestTrackerRestoresPersistedEntries(t *testing.T) {
	repo := &mockPendingTxRepository{}
	repo.On("GetAll", mock.Anything).Return([]*domain.PendingTransaction{
		newTrackedTx("TX1", 110),
		newTrackedTx("TX2", 120),
	}, nil)

	svc := newTestTracker(t, &mockLedgerService{}, repo, newQuietPublisher())

	list := svc.List()
	require.Len(t, list, 2)
	require.Equal(t, "TX1", list[0].TxID)
	require.Equal(t, "TX2", list[1].TxID)
}

func TestHandleTickSkipsEntriesBeforeTargetTick(t *testing.T) {
	ledgerSvc := &mockLedgerService{}
	svc := newTestTracker(t, ledgerSvc, newEmptyRepo(), newQuietPublisher())

	require.NoError(t, svc.Add(context.Background(), newTrackedTx("TX1", 110)))

	svc.HandleTick(context.Background(), 105)
	ledgerSvc.AssertNotCalled(t, "GetTransaction", mock.Anything)

	tick, known := svc.CurrentTick()
	require.True(t, known)
	require.Equal(t, uint32(105), tick)
}

func TestHandleTickConfirmsSuccessfulTransaction(t *testing.T) {
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetTransaction", "TX1").Return(
		&ledger.TransactionDetail{TxID: "TX1", Amount: 500, Tick: 110}, nil,
	)
	repo := newEmptyRepo()
	publisher := newQuietPublisher()

	svc := newTestTracker(t, ledgerSvc, repo, publisher)
	require.NoError(t, svc.Add(context.Background(), newTrackedTx("TX1", 110)))

	svc.HandleTick(context.Background(), 110)

	tracked, err := svc.Get("TX1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, tracked.Status)

	// Terminal entries leave the durable registry but stay visible.
	repo.AssertCalled(t, "Remove", mock.Anything, "TX1")
	require.Len(t, svc.List(), 1)

	// And they are never looked up again.
	svc.HandleTick(context.Background(), 111)
	ledgerSvc.AssertNumberOfCalls(t, "GetTransaction", 1)
}

func TestHandleTickFailsAfterExhaustedLookupBudget(t *testing.T) {
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetTransaction", "TX1").Return(nil, ledger.ErrTransactionNotFound)
	repo := newEmptyRepo()
	publisher := newQuietPublisher()

	svc := newTestTracker(t, ledgerSvc, repo, publisher)
	require.NoError(t, svc.Add(context.Background(), newTrackedTx("TX1", 110)))

	for i := 0; i < domain.MaxConsecutiveFailedLookups; i++ {
		svc.HandleTick(context.Background(), 110+uint32(i))
		tracked, err := svc.Get("TX1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, tracked.Status)
	}

	// The failure budget is exhausted by the next miss.
	svc.HandleTick(context.Background(), 120)

	tracked, err := svc.Get("TX1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, tracked.Status)
	repo.AssertCalled(t, "Remove", mock.Anything, "TX1")
	require.Len(t, svc.List(), 1)

	svc.HandleTick(context.Background(), 121)
	ledgerSvc.AssertNumberOfCalls(
		t, "GetTransaction", domain.MaxConsecutiveFailedLookups+1,
	)
}

func TestHandleTickMarksUnknownOnPersistentAmbiguity(t *testing.T) {
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetTransaction", "TX1").Return(nil, ledger.ErrInvalidResponseShape)

	svc := newTestTracker(t, ledgerSvc, newEmptyRepo(), newQuietPublisher())
	require.NoError(t, svc.Add(context.Background(), newTrackedTx("TX1", 110)))

	for i := 0; i <= domain.MaxConsecutiveFailedLookups; i++ {
		svc.HandleTick(context.Background(), 110+uint32(i))
	}

	tracked, err := svc.Get("TX1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnknown, tracked.Status)
}

func TestRemoveDismissesNotification(t *testing.T) {
	repo := newEmptyRepo()
	publisher := newQuietPublisher()

	svc := newTestTracker(t, &mockLedgerService{}, repo, publisher)
	require.NoError(t, svc.Add(context.Background(), newTrackedTx("TX1", 110)))

	require.NoError(t, svc.Remove(context.Background(), "TX1"))
	require.Len(t, svc.List(), 0)
	publisher.AssertCalled(t, "Dismiss", "transaction-TX1")

	err := svc.Remove(context.Background(), "TX1")
	require.EqualError(t, err, domain.ErrTxNotFound.Error())
}

func TestResetSessionWipesEverything(t *testing.T) {
	repo := newEmptyRepo()
	publisher := newQuietPublisher()

	svc := newTestTracker(t, &mockLedgerService{}, repo, publisher)
	require.NoError(t, svc.Add(context.Background(), newTrackedTx("TX1", 110)))
	require.NoError(t, svc.Add(context.Background(), newTrackedTx("TX2", 120)))

	require.NoError(t, svc.ResetSession(context.Background()))

	require.Len(t, svc.List(), 0)
	publisher.AssertCalled(t, "Dismiss", "transaction-TX1")
	publisher.AssertCalled(t, "Dismiss", "transaction-TX2")
	repo.AssertCalled(t, "Wipe", mock.Anything)
}

func TestObserveConsumesTickEventsUntilQuit(t *testing.T) {
	svc := newTestTracker(
		t, &mockLedgerService{}, newEmptyRepo(), newQuietPublisher(),
	)

	eventChan := make(chan tickwatcher.Event)
	done := make(chan struct{})
	go func() {
		svc.Observe(context.Background(), eventChan)
		close(done)
	}()

	eventChan <- tickwatcher.TickEvent{Tick: 42}
	eventChan <- tickwatcher.QuitEvent{}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer did not stop on quit event")
	}

	tick, known := svc.CurrentTick()
	require.True(t, known)
	require.Equal(t, uint32(42), tick)
}

func TestBroadcastResultFlowsIntoTracker(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	deviceSvc.On("Sign", mock.Anything).Return([]byte("sig"), nil)
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("BroadcastTransaction", mock.Anything).Return(
		&ledger.BroadcastResult{TransactionID: "TX1"}, nil,
	)

	publisher := &mockNotificationPublisher{}
	publisher.On("Push", mock.MatchedBy(func(n ports.Notification) bool {
		return n.Key == "transaction-TX1"
	})).Return()

	trackerSvc := newTestTracker(t, ledgerSvc, newEmptyRepo(), publisher)
	sendSvc := NewSendService(SendServiceOpts{
		DeviceSvc:   deviceSvc,
		LedgerSvc:   ledgerSvc,
		CurrentTick: knownTick(100),
	})

	_, err := sendSvc.Send(SendOpts{
		From:         testSourceAddress(t),
		DestIdentity: testDestIdentity(t),
		Amount:       500,
		Tick:         110,
		Hooks: SendHooks{
			PostBroadcast: func(result SendResult) {
				tx := domain.NewPendingTransaction(
					result.TxID, result.SourceID, result.DestID,
					result.Amount, result.Tick, result.CreatedAtTick,
				)
				require.NoError(
					t, trackerSvc.Add(context.Background(), tx),
				)
			},
		},
	})
	require.NoError(t, err)

	tracked, err := trackerSvc.Get("TX1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, tracked.Status)
	require.Equal(t, uint32(100), tracked.CreatedAtTick)
	publisher.AssertExpectations(t)
}
