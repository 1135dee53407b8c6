package ledger

import "errors"

var (
	// ErrRequestFailed is thrown on any transport-level HTTP failure or
	// non-2xx response. It wraps the status code and, when present, the
	// server-supplied message.
	ErrRequestFailed = errors.New("ledger request failed")
	// ErrInvalidResponseShape is thrown when a 2xx response body does not
	// match the documented schema.
	ErrInvalidResponseShape = errors.New("ledger response has invalid shape")
	// ErrTransactionNotFound is thrown when a transaction lookup resolves to
	// no known transaction. It is an expected condition while a broadcast
	// transaction propagates through the network.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// BalanceInfo is the validated balance document of an identity.
type BalanceInfo struct {
	ID                         string
	Balance                    string
	ValidForTick               uint32
	LatestIncomingTransferTick uint32
	LatestOutgoingTransferTick uint32
	IncomingAmount             string
	OutgoingAmount             string
	NumberOfIncomingTransfers  int
	NumberOfOutgoingTransfers  int
}

// TransactionDetail describes one transaction known to the remote ledger.
type TransactionDetail struct {
	TxID      string
	SourceID  string
	DestID    string
	Amount    int64
	Tick      uint32
	InputType int
	InputSize int
}

// TransferEntry is one executed transfer within a tick, along with its
// execution metadata.
type TransferEntry struct {
	Transaction TransactionDetail
	Timestamp   string
	MoneyFlew   bool
}

// TickTransfers groups the transfers of an identity executed at one tick.
type TickTransfers struct {
	TickNumber uint32
	Identity   string
	Transfers  []TransferEntry
}

// TransferPage is the result of a transfer-history lookup over a tick range.
type TransferPage struct {
	Transactions []TickTransfers
}

// BroadcastResult is the outcome of submitting a signed transaction.
type BroadcastResult struct {
	TransactionID      string
	PeersBroadcasted   int
	EncodedTransaction string
}

// Service is the typed client for the remote ledger network: balance lookup,
// current-tick lookup, transfer history, transaction lookup and broadcast.
// Every response is validated against its schema before being trusted.
type Service interface {
	// GetBalance fetches the balance document for the given identity.
	GetBalance(identity string) (*BalanceInfo, error)
	// GetLatestTick returns the current network tick.
	GetLatestTick() (uint32, error)
	// GetTransfers returns the transfer history of an identity over the
	// given inclusive tick range.
	GetTransfers(identity string, startTick, endTick uint32) (*TransferPage, error)
	// GetTransaction looks up a transaction by id. It returns
	// ErrTransactionNotFound if the ledger does not know the transaction yet.
	GetTransaction(txID string) (*TransactionDetail, error)
	// BroadcastTransaction submits an encoded signed transaction.
	BroadcastTransaction(encodedTx string) (*BroadcastResult, error)
}
