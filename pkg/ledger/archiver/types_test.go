package archiver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

func TestParseBalance(t *testing.T) {
	body := `{"balance":{"id":"IDENTITY","balance":"12345","validForTick":100,
		"latestIncomingTransferTick":90,"latestOutgoingTransferTick":80,
		"incomingAmount":"20000","outgoingAmount":"7655",
		"numberOfIncomingTransfers":4,"numberOfOutgoingTransfers":2}}`

	info, err := parseBalance(body)
	require.NoError(t, err)
	assert.Equal(t, "IDENTITY", info.ID)
	assert.Equal(t, "12345", info.Balance)
	assert.Equal(t, uint32(100), info.ValidForTick)
	assert.Equal(t, 4, info.NumberOfIncomingTransfers)
}

func TestParseBalanceInvalidShape(t *testing.T) {
	tests := []string{
		`{}`,
		`{"balance":{}}`,
		`{"balance":{"id":"IDENTITY"}}`,
		`not even json`,
	}
	for _, body := range tests {
		_, err := parseBalance(body)
		assert.ErrorIs(t, err, ledger.ErrInvalidResponseShape)
	}
}

func TestParseLatestTick(t *testing.T) {
	tick, err := parseLatestTick(`{"latestTick":15923500}`)
	require.NoError(t, err)
	assert.Equal(t, uint32(15923500), tick)

	_, err = parseLatestTick(`{"tick":1}`)
	assert.ErrorIs(t, err, ledger.ErrInvalidResponseShape)
}

func TestParseTransaction(t *testing.T) {
	body := `{"transaction":{"txId":"TX1","sourceId":"SRC","destId":"DST",
		"amount":"1500","tickNumber":200,"inputType":0,"inputSize":0}}`

	detail, err := parseTransaction(body)
	require.NoError(t, err)
	assert.Equal(t, "TX1", detail.TxID)
	assert.Equal(t, int64(1500), detail.Amount)
	assert.Equal(t, uint32(200), detail.Tick)
}

func TestParseTransactionInvalidShape(t *testing.T) {
	tests := []string{
		`{}`,
		`{"transaction":{"txId":"TX1"}}`,
		`{"transaction":{"txId":"TX1","sourceId":"SRC","destId":"DST","amount":"abc","tickNumber":200}}`,
	}
	for _, body := range tests {
		_, err := parseTransaction(body)
		assert.ErrorIs(t, err, ledger.ErrInvalidResponseShape)
	}
}

func TestParseTransfers(t *testing.T) {
	body := `{"transactions":[{"tickNumber":200,"identity":"IDENTITY",
		"transactions":[{"transaction":{"txId":"TX1","sourceId":"SRC",
		"destId":"DST","amount":"5","tickNumber":200},"timestamp":"1700000000","moneyFlew":true}]}]}`

	page, err := parseTransfers(body)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, uint32(200), page.Transactions[0].TickNumber)
	require.Len(t, page.Transactions[0].Transfers, 1)
	assert.True(t, page.Transactions[0].Transfers[0].MoneyFlew)
	assert.Equal(t, "TX1", page.Transactions[0].Transfers[0].Transaction.TxID)
}

func TestParseTransfersEmpty(t *testing.T) {
	page, err := parseTransfers(`{"transactions":[]}`)
	require.NoError(t, err)
	assert.Empty(t, page.Transactions)
}

func TestParseBroadcast(t *testing.T) {
	body := `{"encodedTransaction":"AAEC","peersBroadcasted":3,"transactionId":"TX1"}`

	result, err := parseBroadcast(body)
	require.NoError(t, err)
	assert.Equal(t, "TX1", result.TransactionID)
	assert.Equal(t, 3, result.PeersBroadcasted)
	assert.Equal(t, "AAEC", result.EncodedTransaction)

	_, err = parseBroadcast(`{"peersBroadcasted":3}`)
	assert.ErrorIs(t, err, ledger.ErrInvalidResponseShape)
}
