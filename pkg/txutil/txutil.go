package txutil

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"

	"github.com/tickwallet/tickwallet-daemon/pkg/identity"
)

const (
	// UnsignedPayloadLen is the fixed size of an unsigned transfer payload:
	// source key, destination key, amount (int64 LE), tick (uint32 LE),
	// input type and input size (uint16 LE each).
	UnsignedPayloadLen = identity.PubKeyLen*2 + 8 + 4 + 2 + 2
)

var (
	// ErrInvalidSourceKey ...
	ErrInvalidSourceKey = errors.New("source public key must be 32 bytes")
	// ErrInvalidDestinationKey ...
	ErrInvalidDestinationKey = errors.New("destination public key must be 32 bytes")
	// ErrNonPositiveAmount ...
	ErrNonPositiveAmount = errors.New("amount must be positive")
	// ErrEmptyPayload ...
	ErrEmptyPayload = errors.New("payload must not be empty")
)

// BuildUnsignedPayload assembles the raw byte payload for a transfer of the
// given amount scheduled at the given tick. The layout is fixed so that the
// signing device and the remote ledger agree on what is being signed.
func BuildUnsignedPayload(
	sourcePubKey, destPubKey []byte, amount int64, tick uint32,
) ([]byte, error) {
	if len(sourcePubKey) != identity.PubKeyLen {
		return nil, ErrInvalidSourceKey
	}
	if len(destPubKey) != identity.PubKeyLen {
		return nil, ErrInvalidDestinationKey
	}
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	buf := bytes.NewBuffer(make([]byte, 0, UnsignedPayloadLen))
	buf.Write(sourcePubKey)
	buf.Write(destPubKey)
	binary.Write(buf, binary.LittleEndian, amount)
	binary.Write(buf, binary.LittleEndian, tick)
	binary.Write(buf, binary.LittleEndian, uint16(0)) // input type
	binary.Write(buf, binary.LittleEndian, uint16(0)) // input size

	return buf.Bytes(), nil
}

// Encode converts a signed transaction byte sequence to the transport-safe
// textual form expected by the broadcast endpoint.
func Encode(signedTx []byte) string {
	return base64.StdEncoding.EncodeToString(signedTx)
}

// Decode is the inverse of Encode.
func Decode(encodedTx string) ([]byte, error) {
	if encodedTx == "" {
		return nil, ErrEmptyPayload
	}
	return base64.StdEncoding.DecodeString(encodedTx)
}
