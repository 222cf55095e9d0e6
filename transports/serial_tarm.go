//go:build !baremetal

package transports

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// TarmTransport implements Transport using github.com/tarm/serial.
// tarm fixes the read timeout when the port is opened, so SetReadTimeout
// only records the requested value; the caller's deadline still applies
// because every Read returns within the open-time timeout.
type TarmTransport struct {
	port     *serial.Port
	portName string
	timeout  time.Duration
}

// OpenTarm opens a serial port through tarm/serial, 8N1.
func OpenTarm(cfg SerialConfig) (*TarmTransport, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	return &TarmTransport{
		port:     port,
		portName: cfg.Port,
		timeout:  cfg.Timeout,
	}, nil
}

func (t *TarmTransport) Read(p []byte) (int, error) {
	return t.port.Read(p)
}

func (t *TarmTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *TarmTransport) Close() error {
	return t.port.Close()
}

func (t *TarmTransport) SetReadTimeout(timeout time.Duration) error {
	t.timeout = timeout
	return nil
}

// Flush discards both unread input and untransmitted output.
func (t *TarmTransport) Flush() error {
	return t.port.Flush()
}

// Drain is a no-op: tarm writes block until the data is handed to the OS.
func (t *TarmTransport) Drain() error {
	return nil
}

// PortName returns the serial port name.
func (t *TarmTransport) PortName() string {
	return t.portName
}
