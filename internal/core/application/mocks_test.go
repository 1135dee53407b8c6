package application

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/internal/core/ports"
	"github.com/tickwallet/tickwallet-daemon/pkg/device"
	"github.com/tickwallet/tickwallet-daemon/pkg/hdpath"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

// **** device.Session ****

type mockDeviceSession struct {
	mock.Mock
}

func (m *mockDeviceSession) Connect() (*device.Handle, error) {
	args := m.Called()

	var res *device.Handle
	if a := args.Get(0); a != nil {
		res = a.(*device.Handle)
	}
	return res, args.Error(1)
}

func (m *mockDeviceSession) Disconnect() {
	m.Called()
}

func (m *mockDeviceSession) State() device.State {
	args := m.Called()
	return args.Get(0).(device.State)
}

func (m *mockDeviceSession) GetVersion() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockDeviceSession) GetPublicKey(path hdpath.Path) ([]byte, error) {
	args := m.Called(path)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockDeviceSession) Sign(payload []byte) ([]byte, error) {
	args := m.Called(payload)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

// **** ledger.Service ****

type mockLedgerService struct {
	mock.Mock
}

func (m *mockLedgerService) GetBalance(identity string) (*ledger.BalanceInfo, error) {
	args := m.Called(identity)

	var res *ledger.BalanceInfo
	if a := args.Get(0); a != nil {
		res = a.(*ledger.BalanceInfo)
	}
	return res, args.Error(1)
}

func (m *mockLedgerService) GetLatestTick() (uint32, error) {
	args := m.Called()
	return args.Get(0).(uint32), args.Error(1)
}

func (m *mockLedgerService) GetTransfers(
	identity string, startTick, endTick uint32,
) (*ledger.TransferPage, error) {
	args := m.Called(identity, startTick, endTick)

	var res *ledger.TransferPage
	if a := args.Get(0); a != nil {
		res = a.(*ledger.TransferPage)
	}
	return res, args.Error(1)
}

func (m *mockLedgerService) GetTransaction(txID string) (*ledger.TransactionDetail, error) {
	args := m.Called(txID)

	var res *ledger.TransactionDetail
	if a := args.Get(0); a != nil {
		res = a.(*ledger.TransactionDetail)
	}
	return res, args.Error(1)
}

func (m *mockLedgerService) BroadcastTransaction(encodedTx string) (*ledger.BroadcastResult, error) {
	args := m.Called(encodedTx)

	var res *ledger.BroadcastResult
	if a := args.Get(0); a != nil {
		res = a.(*ledger.BroadcastResult)
	}
	return res, args.Error(1)
}

// **** domain.PendingTransactionRepository ****

type mockPendingTxRepository struct {
	mock.Mock
}

func (m *mockPendingTxRepository) GetAll(ctx context.Context) ([]*domain.PendingTransaction, error) {
	args := m.Called(ctx)

	var res []*domain.PendingTransaction
	if a := args.Get(0); a != nil {
		res = a.([]*domain.PendingTransaction)
	}
	return res, args.Error(1)
}

func (m *mockPendingTxRepository) Add(ctx context.Context, tx *domain.PendingTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockPendingTxRepository) Remove(ctx context.Context, txID string) error {
	args := m.Called(ctx, txID)
	return args.Error(0)
}

func (m *mockPendingTxRepository) Wipe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// **** domain.DerivationIndexRepository ****

type mockDerivationIndexRepository struct {
	mock.Mock
}

func (m *mockDerivationIndexRepository) Get(ctx context.Context) (int, bool, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *mockDerivationIndexRepository) Set(ctx context.Context, index int) error {
	args := m.Called(ctx, index)
	return args.Error(0)
}

func (m *mockDerivationIndexRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// **** ports.NotificationPublisher ****

type mockNotificationPublisher struct {
	mock.Mock
}

func (m *mockNotificationPublisher) Push(n ports.Notification) {
	m.Called(n)
}

func (m *mockNotificationPublisher) Dismiss(key string) {
	m.Called(key)
}

func (m *mockNotificationPublisher) Active() []ports.Notification {
	args := m.Called()

	var res []ports.Notification
	if a := args.Get(0); a != nil {
		res = a.([]ports.Notification)
	}
	return res
}
