package device

import (
	"errors"

	"github.com/tickwallet/tickwallet-daemon/pkg/hdpath"
)

const (
	// Disconnected is the state of a session with no open transport.
	Disconnected State = "DISCONNECTED"
	// Connecting is the transient state while the transport is being opened.
	Connecting State = "CONNECTING"
	// Connected is the state of a session holding a valid device handle.
	Connected State = "CONNECTED"
)

// State represents the connection state of a device session.
type State string

var (
	// ErrAlreadyConnected is thrown when connecting while a handle exists or
	// another connect is in flight.
	ErrAlreadyConnected = errors.New("device is already connected")
	// ErrTransportUnavailable is thrown when the hardware transport cannot be
	// opened, including an explicit user cancellation of the pairing prompt.
	ErrTransportUnavailable = errors.New("device transport is unavailable")
	// ErrNotConnected is thrown by operations that require an open handle.
	ErrNotConnected = errors.New("device is not connected")
	// ErrUserRejected is thrown when the user declines the request on-device.
	ErrUserRejected = errors.New("request rejected on device")
	// ErrUnexpectedReply is thrown on a malformed or truncated device reply.
	ErrUnexpectedReply = errors.New("unexpected reply from device")
)

// Transport abstracts the USB/HID channel to the external signing device.
// Implementations are expected to serialize exchanges internally; callers
// must not issue concurrent Exchange calls on the same transport.
type Transport interface {
	// Open claims the underlying device.
	Open() error
	// Close releases the underlying device.
	Close() error
	// Exchange performs one APDU round-trip and returns the reply payload
	// along with the trailing status word.
	Exchange(cla, ins, p1, p2 byte, data []byte) (reply []byte, statusWord uint16, err error)
	// OnDisconnect registers a callback fired when the device goes away
	// without a caller-initiated Close (cable pulled, app quit on device).
	OnDisconnect(fn func())
}

// Session owns the lifecycle of a connection to the signing device.
type Session interface {
	// Connect opens the transport and returns a handle for the session.
	Connect() (*Handle, error)
	// Disconnect releases the transport. Idempotent, never errors.
	Disconnect()
	// State returns the current connection state.
	State() State
	// GetVersion returns the firmware version string of the connected device.
	GetVersion() (string, error)
	// GetPublicKey derives and returns the raw public key at the given path.
	GetPublicKey(path hdpath.Path) ([]byte, error)
	// Sign asks the device to sign the payload after on-device confirmation.
	Sign(payload []byte) ([]byte, error)
}

// Handle identifies one established device connection. The handle becomes
// stale once the session disconnects, whether explicitly or via a hardware
// disconnect event.
type Handle struct {
	ID string
}
