package mksservo

import (
	"io"
	"time"
)

// Transport is the byte stream a Link talks to the servo over.
// Tests substitute transports.MockTransport.
type Transport interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds how long a single Read may block.
	SetReadTimeout(timeout time.Duration) error

	// Flush discards any buffered input data.
	Flush() error

	// Drain blocks until all written data has left the host.
	Drain() error
}
