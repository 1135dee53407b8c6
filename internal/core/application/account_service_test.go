package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

const testBasePath = "m/44'/83'/0'/0/0"

func makePubKey(seed byte) []byte {
	pubKey := make([]byte, 32)
	for i := range pubKey {
		pubKey[i] = seed
	}
	return pubKey
}

func newTestAccountService(
	t *testing.T,
	deviceSvc *mockDeviceSession,
	ledgerSvc *mockLedgerService,
	indexRepo *mockDerivationIndexRepository,
) AccountService {
	t.Helper()

	svc, err := NewAccountService(AccountServiceOpts{
		DeviceSvc: deviceSvc,
		LedgerSvc: ledgerSvc,
		IndexRepo: indexRepo,
		BasePath:  testBasePath,
	})
	require.NoError(t, err)
	return svc
}

func TestDeriveNextAssignsSequentialIndexes(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(1), nil).Once()
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(2), nil).Once()
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetBalance", mock.Anything).Return(
		&ledger.BalanceInfo{Balance: "150"}, nil,
	)
	indexRepo := &mockDerivationIndexRepository{}
	indexRepo.On("Set", mock.Anything, 0).Return(nil).Once()
	indexRepo.On("Set", mock.Anything, 1).Return(nil).Once()

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	first, err := svc.DeriveNext(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, first.AddressIndex)
	require.Equal(t, "m/44'/83'/0'/0/0", first.DerivationPath)
	require.Equal(t, "150", first.Balance)

	second, err := svc.DeriveNext(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, second.AddressIndex)
	require.Equal(t, "m/44'/83'/0'/0/1", second.DerivationPath)
	require.NotEqual(t, first.Identity, second.Identity)

	selected, ok := svc.SelectedAddress()
	require.True(t, ok)
	require.Equal(t, 0, selected.AddressIndex)

	indexRepo.AssertExpectations(t)
}

func TestDeriveNextFallsBackToZeroBalance(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(1), nil)
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetBalance", mock.Anything).Return(nil, ledger.ErrRequestFailed)
	indexRepo := &mockDerivationIndexRepository{}
	indexRepo.On("Set", mock.Anything, mock.Anything).Return(nil)

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	addr, err := svc.DeriveNext(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "0", addr.Balance)
}

func TestDeriveNextFailsOnUsedIndex(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(1), nil)
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetBalance", mock.Anything).Return(nil, ledger.ErrRequestFailed)
	indexRepo := &mockDerivationIndexRepository{}
	indexRepo.On("Set", mock.Anything, mock.Anything).Return(nil)

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	_, err := svc.DeriveNext(context.Background(), nil)
	require.NoError(t, err)

	used := 0
	_, err = svc.DeriveNext(context.Background(), &used)
	require.EqualError(t, err, domain.ErrIndexAlreadyUsed.Error())
}

func TestDeriveNextFailsWhenIndexSpaceIsExhausted(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	ledgerSvc := &mockLedgerService{}
	indexRepo := &mockDerivationIndexRepository{}

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	tooHigh := domain.MaxAddressIndex + 1
	_, err := svc.DeriveNext(context.Background(), &tooHigh)
	require.EqualError(t, err, domain.ErrIndexExhausted.Error())
	deviceSvc.AssertNotCalled(t, "GetPublicKey", mock.Anything)
}

func TestRestoreRederivesCachedAddresses(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(1), nil).Once()
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(2), nil).Once()
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(3), nil).Once()
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetBalance", mock.Anything).Return(nil, ledger.ErrRequestFailed)
	indexRepo := &mockDerivationIndexRepository{}
	indexRepo.On("Get", mock.Anything).Return(2, true, nil)
	indexRepo.On("Set", mock.Anything, mock.Anything).Return(nil)

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	require.NoError(t, svc.Restore(context.Background()))
	require.Len(t, svc.ListAddresses(), 3)

	// Addresses are already loaded, a second restore must not touch the
	// device again.
	require.NoError(t, svc.Restore(context.Background()))
	deviceSvc.AssertNumberOfCalls(t, "GetPublicKey", 3)
}

func TestRestoreIsNoOpWithoutCache(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	ledgerSvc := &mockLedgerService{}
	indexRepo := &mockDerivationIndexRepository{}
	indexRepo.On("Get", mock.Anything).Return(0, false, nil)

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	require.NoError(t, svc.Restore(context.Background()))
	require.Len(t, svc.ListAddresses(), 0)
	deviceSvc.AssertNotCalled(t, "GetPublicKey", mock.Anything)
}

func TestSelection(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(1), nil).Once()
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(2), nil).Once()
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetBalance", mock.Anything).Return(nil, ledger.ErrRequestFailed)
	indexRepo := &mockDerivationIndexRepository{}
	indexRepo.On("Set", mock.Anything, mock.Anything).Return(nil)

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	err := svc.Select(0)
	require.EqualError(t, err, domain.ErrNoAddressesGenerated.Error())

	_, err = svc.DeriveNext(context.Background(), nil)
	require.NoError(t, err)
	_, err = svc.DeriveNext(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Select(1))
	selected, ok := svc.SelectedAddress()
	require.True(t, ok)
	require.Equal(t, 1, selected.AddressIndex)

	err = svc.Select(5)
	require.EqualError(t, err, domain.ErrIndexOutOfRange.Error())

	svc.ClearSelection()
	_, ok = svc.SelectedAddress()
	require.False(t, ok)
}

func TestResetDisconnectsDeviceAndKeepsIndexCache(t *testing.T) {
	deviceSvc := &mockDeviceSession{}
	deviceSvc.On("GetPublicKey", mock.Anything).Return(makePubKey(1), nil)
	deviceSvc.On("Disconnect").Return()
	ledgerSvc := &mockLedgerService{}
	ledgerSvc.On("GetBalance", mock.Anything).Return(nil, ledger.ErrRequestFailed)
	indexRepo := &mockDerivationIndexRepository{}
	indexRepo.On("Set", mock.Anything, mock.Anything).Return(nil)

	svc := newTestAccountService(t, deviceSvc, ledgerSvc, indexRepo)

	_, err := svc.DeriveNext(context.Background(), nil)
	require.NoError(t, err)

	svc.Reset(context.Background())

	require.Len(t, svc.ListAddresses(), 0)
	_, ok := svc.SelectedAddress()
	require.False(t, ok)
	deviceSvc.AssertCalled(t, "Disconnect")
	indexRepo.AssertNotCalled(t, "Clear", mock.Anything)
}

func TestDemoAccountServiceIsDeterministic(t *testing.T) {
	first, err := NewDemoAccountService(testBasePath, "seed")
	require.NoError(t, err)
	second, err := NewDemoAccountService(testBasePath, "seed")
	require.NoError(t, err)

	a, err := first.DeriveNext(context.Background(), nil)
	require.NoError(t, err)
	b, err := second.DeriveNext(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, a.Identity, b.Identity)
	require.Len(t, a.Identity, 56)
}
