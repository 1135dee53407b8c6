package identity

import (
	"encoding/base32"
	"errors"

	"golang.org/x/crypto/sha3"
)

const (
	// PubKeyLen is the length in bytes of a raw device public key.
	PubKeyLen = 32
	// checksumLen trailing bytes of the identity bind it to its public key.
	checksumLen = 3
	// EncodedLen is the length of the textual identity.
	EncodedLen = 56
)

var (
	// ErrInvalidPublicKey ...
	ErrInvalidPublicKey = errors.New("public key must be 32 bytes")
	// ErrInvalidIdentity ...
	ErrInvalidIdentity = errors.New("identity is not a valid encoded account identifier")
	// ErrChecksumMismatch ...
	ErrChecksumMismatch = errors.New("identity checksum does not match public key")

	encoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// FromPublicKey derives the public account identifier for a raw public key.
// The transform is deterministic and one-way: the identity embeds the key
// bytes along with a truncated sha3-256 checksum, uppercase base32 encoded.
func FromPublicKey(pubKey []byte) (string, error) {
	if len(pubKey) != PubKeyLen {
		return "", ErrInvalidPublicKey
	}

	digest := sha3.Sum256(pubKey)
	buf := make([]byte, 0, PubKeyLen+checksumLen)
	buf = append(buf, pubKey...)
	buf = append(buf, digest[:checksumLen]...)

	return encoding.EncodeToString(buf), nil
}

// PublicKey recovers the raw public key embedded in an identity, failing if
// the encoding or the checksum is invalid.
func PublicKey(id string) ([]byte, error) {
	if len(id) != EncodedLen {
		return nil, ErrInvalidIdentity
	}

	buf, err := encoding.DecodeString(id)
	if err != nil {
		return nil, ErrInvalidIdentity
	}
	if len(buf) != PubKeyLen+checksumLen {
		return nil, ErrInvalidIdentity
	}

	pubKey := buf[:PubKeyLen]
	digest := sha3.Sum256(pubKey)
	for i := 0; i < checksumLen; i++ {
		if buf[PubKeyLen+i] != digest[i] {
			return nil, ErrChecksumMismatch
		}
	}

	return pubKey, nil
}
