package transports

import (
	"io"
	"time"
)

// MockTransport implements Transport for testing.
type MockTransport struct {
	ReadData    []byte
	ReadErr     error
	WriteData   []byte
	Writes      [][]byte // one entry per Write call
	WriteErr    error
	Closed      bool
	CloseCount  int
	ReadTimeout time.Duration
	TimeoutErr  error
	Flushed     bool
	FlushErr    error
	Drained     int

	// ReadFunc allows custom read behavior for complex tests
	ReadFunc func(p []byte) (int, error)
}

func (m *MockTransport) Read(p []byte) (int, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	n := copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (m *MockTransport) Write(p []byte) (int, error) {
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	m.WriteData = append(m.WriteData, p...)
	m.Writes = append(m.Writes, append([]byte(nil), p...))
	return len(p), nil
}

func (m *MockTransport) Close() error {
	m.Closed = true
	m.CloseCount++
	return nil
}

func (m *MockTransport) SetReadTimeout(timeout time.Duration) error {
	m.ReadTimeout = timeout
	return m.TimeoutErr
}

func (m *MockTransport) Flush() error {
	m.Flushed = true
	// Don't clear ReadData - tests need to preserve mock response data
	return m.FlushErr
}

func (m *MockTransport) Drain() error {
	m.Drained++
	return nil
}

// Replies returns a ReadFunc that hands out one reply per Read call, in order,
// and reports io.EOF once they are exhausted.
func Replies(replies ...[]byte) func(p []byte) (int, error) {
	idx := 0
	return func(p []byte) (int, error) {
		if idx >= len(replies) {
			return 0, io.EOF
		}
		n := copy(p, replies[idx])
		idx++
		return n, nil
	}
}
