package domain

import "errors"

var (
	// ErrIndexExhausted is thrown when the next address index would exceed
	// MaxAddressIndex.
	ErrIndexExhausted = errors.New("address index space is exhausted")
	// ErrIndexAlreadyUsed is thrown when an index override targets an index
	// that has already been derived in this session.
	ErrIndexAlreadyUsed = errors.New("address index is already used")
	// ErrNoAddressesGenerated is thrown when selecting from an empty list.
	ErrNoAddressesGenerated = errors.New("no addresses have been generated")
	// ErrIndexOutOfRange is thrown when selecting an index outside the list.
	ErrIndexOutOfRange = errors.New("address index is out of range")
	// ErrTxStatusFinal is thrown on a transition attempt away from a
	// terminal pending-transaction status.
	ErrTxStatusFinal = errors.New("transaction status is terminal")
	// ErrTxNotFound ...
	ErrTxNotFound = errors.New("pending transaction not found")
)
