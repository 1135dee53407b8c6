package device

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tickwallet/tickwallet-daemon/pkg/hdpath"
	"github.com/tickwallet/tickwallet-daemon/pkg/identity"
)

const (
	claWallet        = 0xe0
	insGetVersion    = 0x01
	insGetPublicKey  = 0x02
	insSignPayload   = 0x03
	swOK             = 0x9000
	swUserRejected   = 0x6985
	maxExchangeChunk = 255
)

type session struct {
	transport    Transport
	onDisconnect func()

	mutex  *sync.RWMutex
	state  State
	handle *Handle
}

// Opts defines the parameters needed for creating a device session with
// NewSession.
type Opts struct {
	Transport Transport
	// OnDisconnect is fired on a hardware disconnect event, after the handle
	// has been invalidated, so dependent callers can prompt a reconnection.
	OnDisconnect func()
}

// NewSession returns a Session bound to the given transport.
func NewSession(opts Opts) Session {
	return &session{
		transport:    opts.Transport,
		onDisconnect: opts.OnDisconnect,
		mutex:        &sync.RWMutex{},
		state:        Disconnected,
	}
}

func (s *session) Connect() (*Handle, error) {
	s.mutex.Lock()
	if s.state != Disconnected {
		s.mutex.Unlock()
		return nil, ErrAlreadyConnected
	}
	s.state = Connecting
	s.mutex.Unlock()

	if err := s.transport.Open(); err != nil {
		s.mutex.Lock()
		s.state = Disconnected
		s.mutex.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTransportUnavailable, err)
	}

	handle := &Handle{ID: uuid.New().String()}

	s.mutex.Lock()
	s.state = Connected
	s.handle = handle
	s.mutex.Unlock()

	s.transport.OnDisconnect(s.handleHardwareDisconnect)

	return handle, nil
}

func (s *session) Disconnect() {
	s.mutex.Lock()
	if s.state == Disconnected {
		s.mutex.Unlock()
		return
	}
	s.state = Disconnected
	s.handle = nil
	s.mutex.Unlock()

	if err := s.transport.Close(); err != nil {
		log.WithError(err).Debug("closing device transport")
	}
}

func (s *session) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

func (s *session) GetVersion() (string, error) {
	if !s.isConnected() {
		return "", ErrNotConnected
	}

	reply, err := s.exchange(insGetVersion, 0x00, 0x00, nil)
	if err != nil {
		return "", err
	}
	if len(reply) < 3 {
		return "", ErrUnexpectedReply
	}

	return fmt.Sprintf("%d.%d.%d", reply[0], reply[1], reply[2]), nil
}

func (s *session) GetPublicKey(path hdpath.Path) ([]byte, error) {
	if !s.isConnected() {
		return nil, ErrNotConnected
	}

	reply, err := s.exchange(insGetPublicKey, 0x00, 0x00, serializePath(path))
	if err != nil {
		return nil, err
	}
	if len(reply) < identity.PubKeyLen {
		return nil, ErrUnexpectedReply
	}

	return reply[:identity.PubKeyLen], nil
}

func (s *session) Sign(payload []byte) ([]byte, error) {
	if !s.isConnected() {
		return nil, ErrNotConnected
	}
	if len(payload) > maxExchangeChunk {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrUnexpectedReply, maxExchangeChunk)
	}

	reply, err := s.exchange(insSignPayload, 0x00, 0x00, payload)
	if err != nil {
		return nil, err
	}
	if len(reply) <= 0 {
		return nil, ErrUnexpectedReply
	}

	return reply, nil
}

func (s *session) isConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state == Connected && s.handle != nil
}

func (s *session) exchange(ins, p1, p2 byte, data []byte) ([]byte, error) {
	reply, sw, err := s.transport.Exchange(claWallet, ins, p1, p2, data)
	if err != nil {
		return nil, fmt.Errorf("device exchange: %w", err)
	}

	switch sw {
	case swOK:
		return reply, nil
	case swUserRejected:
		return nil, ErrUserRejected
	default:
		return nil, fmt.Errorf("%w: status 0x%04x", ErrUnexpectedReply, sw)
	}
}

func (s *session) handleHardwareDisconnect() {
	s.mutex.Lock()
	wasConnected := s.state == Connected
	s.state = Disconnected
	s.handle = nil
	s.mutex.Unlock()

	if !wasConnected {
		return
	}

	log.Warn("device disconnected by hardware event")
	if s.onDisconnect != nil {
		s.onDisconnect()
	}
}

// serializePath encodes the path as a length-prefixed list of big-endian
// components, the framing hardware keys expect.
func serializePath(path hdpath.Path) []byte {
	buf := make([]byte, 1+4*len(path))
	buf[0] = byte(len(path))
	for i, component := range path {
		binary.BigEndian.PutUint32(buf[1+4*i:], component)
	}
	return buf
}
