package domain

// MaxAddressIndex is the highest address index the wallet will derive.
const MaxAddressIndex = 255

// Address is one hierarchical-deterministic account derived from the signing
// device. The address list of a session is append-only: an index is assigned
// once and never reused, and index i always maps to the derivation path
// obtained by substituting i into the base path.
type Address struct {
	Identity       string
	PublicKey      []byte
	DerivationPath string
	AddressIndex   int
	// Balance is a decimal string amount, refreshed asynchronously. It
	// defaults to "0" until a first fetch completes.
	Balance string
}

// NewAddress returns an Address with a zero balance.
func NewAddress(
	identity string, publicKey []byte, derivationPath string, addressIndex int,
) *Address {
	return &Address{
		Identity:       identity,
		PublicKey:      publicKey,
		DerivationPath: derivationPath,
		AddressIndex:   addressIndex,
		Balance:        "0",
	}
}
