package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	bridgeHandshakeTimeout = 5 * time.Second
	bridgeWriteTimeout     = 10 * time.Second
	// On-device confirmations can take as long as the user needs, replies
	// to plain queries arrive within this window.
	bridgeReadTimeout = 120 * time.Second
)

type wsTransport struct {
	bridgeURL string

	mutex        *sync.Mutex
	conn         *websocket.Conn
	disconnectFn func()
}

// NewWsTransport returns a Transport that exchanges APDU frames with a local
// hardware bridge over a WebSocket connection. The bridge relays each frame
// to the device and answers with the raw reply, status word included in the
// trailing two bytes.
func NewWsTransport(bridgeURL string) Transport {
	return &wsTransport{
		bridgeURL: bridgeURL,
		mutex:     &sync.Mutex{},
	}
}

func (t *wsTransport) Open() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: bridgeHandshakeTimeout}
	conn, _, err := dialer.Dial(t.bridgeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to reach hardware bridge: %w", err)
	}
	conn.SetCloseHandler(func(code int, text string) error {
		t.handleClose()
		return nil
	})
	t.conn = conn
	return nil
}

func (t *wsTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *wsTransport) Exchange(
	cla, ins, p1, p2 byte, data []byte,
) ([]byte, uint16, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.conn == nil {
		return nil, 0, ErrTransportUnavailable
	}

	frame := append([]byte{cla, ins, p1, p2, byte(len(data))}, data...)
	t.conn.SetWriteDeadline(time.Now().Add(bridgeWriteTimeout))
	if err := t.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.dropConn()
		return nil, 0, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	t.conn.SetReadDeadline(time.Now().Add(bridgeReadTimeout))
	_, reply, err := t.conn.ReadMessage()
	if err != nil {
		t.dropConn()
		return nil, 0, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	if len(reply) < 2 {
		return nil, 0, ErrUnexpectedReply
	}

	statusWord := uint16(reply[len(reply)-2])<<8 | uint16(reply[len(reply)-1])
	return reply[:len(reply)-2], statusWord, nil
}

func (t *wsTransport) OnDisconnect(fn func()) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.disconnectFn = fn
}

// dropConn invalidates the connection after an I/O failure. Callers must
// hold the lock.
func (t *wsTransport) dropConn() {
	t.conn.Close()
	t.conn = nil
	if t.disconnectFn != nil {
		go t.disconnectFn()
	}
}

func (t *wsTransport) handleClose() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.conn != nil {
		t.conn = nil
	}
	if t.disconnectFn != nil {
		go t.disconnectFn()
	}
}
