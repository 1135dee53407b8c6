package device_test

import (
	"github.com/stretchr/testify/mock"
)

type mockTransport struct {
	mock.Mock

	disconnectFn func()
}

func (m *mockTransport) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockTransport) Exchange(
	cla, ins, p1, p2 byte, data []byte,
) ([]byte, uint16, error) {
	args := m.Called(cla, ins, p1, p2, data)

	var reply []byte
	if a := args.Get(0); a != nil {
		reply = a.([]byte)
	}
	return reply, uint16(args.Int(1)), args.Error(2)
}

func (m *mockTransport) OnDisconnect(fn func()) {
	m.disconnectFn = fn
	m.Called(fn)
}

func (m *mockTransport) fireDisconnect() {
	if m.disconnectFn != nil {
		m.disconnectFn()
	}
}
