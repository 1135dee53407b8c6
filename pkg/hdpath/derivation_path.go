package hdpath

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

var (
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New("derivation path is malformed")
	// ErrEmptyDerivationPath ...
	ErrEmptyDerivationPath = errors.New("derivation path has no components")
)

// Path is the internal representation of a hierarchical deterministic
// derivation path. The last component identifies the address index.
type Path []uint32

// Parse converts a derivation path string to the internal binary
// representation. Both absolute ("m/...") and relative paths are accepted,
// with hardening denoted by a trailing apostrophe.
func Parse(strPath string) (Path, error) {
	var path Path

	elems := strings.Split(strPath, "/")
	switch {
	case strPath == "":
		return nil, ErrNullDerivationPath

	case containsEmptyString(elems):
		return nil, ErrMalformedDerivationPath
	case len(elems) < 2:
		return nil, ErrMalformedDerivationPath

	case len(elems) > 1:
		if strings.TrimSpace(elems[0]) == "m" {
			elems = elems[1:]
		}
	}

	for _, elem := range elems {
		elem = strings.TrimSpace(elem)
		var value uint32

		if strings.HasSuffix(elem, "'") {
			value = hdkeychain.HardenedKeyStart
			elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
		}

		// use big int for conversion
		bigval, ok := new(big.Int).SetString(elem, 0)
		if !ok {
			return nil, fmt.Errorf("invalid elem '%s' in path", elem)
		}

		max := math.MaxUint32 - value
		if bigval.Sign() < 0 || bigval.Cmp(big.NewInt(int64(max))) > 0 {
			if value == 0 {
				return nil, fmt.Errorf("elem %v must be in range [0, %d]", bigval, max)
			}
			return nil, fmt.Errorf("elem %v must be in hardened range [0, %d]", bigval, max)
		}
		value += uint32(bigval.Uint64())

		path = append(path, value)
	}

	return path, nil
}

// String converts a binary derivation path to its canonical representation.
func (path Path) String() string {
	if len(path) <= 0 {
		return ""
	}

	result := "m"
	for _, component := range path {
		var hardened bool
		if component >= hdkeychain.HardenedKeyStart {
			component -= hdkeychain.HardenedKeyStart
			hardened = true
		}
		result = fmt.Sprintf("%s/%d", result, component)
		if hardened {
			result += "'"
		}
	}
	return result
}

// WithIndex returns a copy of the path whose last component is replaced by
// the given address index, preserving the hardening of all parent components.
// The resulting path is a pure function of (path, index).
func (path Path) WithIndex(index uint32) (Path, error) {
	if len(path) <= 0 {
		return nil, ErrEmptyDerivationPath
	}

	next := make(Path, len(path))
	copy(next, path)
	next[len(next)-1] = index
	return next, nil
}

// Index returns the address index encoded in the last path component.
func (path Path) Index() (uint32, error) {
	if len(path) <= 0 {
		return 0, ErrEmptyDerivationPath
	}
	last := path[len(path)-1]
	if last >= hdkeychain.HardenedKeyStart {
		last -= hdkeychain.HardenedKeyStart
	}
	return last, nil
}

func containsEmptyString(composedPath []string) bool {
	for _, s := range composedPath {
		if s == "" {
			return true
		}
	}
	return false
}
