//go:build !baremetal

package transports

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialTransport implements Transport using go.bug.st/serial.
type SerialTransport struct {
	port     serial.Port
	portName string
	timeout  time.Duration
}

// OpenSerial opens a serial port with the given configuration, 8N1.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &SerialTransport{
		port:     port,
		portName: cfg.Port,
		timeout:  cfg.Timeout,
	}, nil
}

func (t *SerialTransport) Read(p []byte) (int, error) {
	return t.port.Read(p)
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *SerialTransport) Close() error {
	return t.port.Close()
}

func (t *SerialTransport) SetReadTimeout(timeout time.Duration) error {
	t.timeout = timeout
	return t.port.SetReadTimeout(timeout)
}

// Flush discards unread input.
func (t *SerialTransport) Flush() error {
	return t.port.ResetInputBuffer()
}

// Drain waits until the output buffer has been transmitted.
func (t *SerialTransport) Drain() error {
	return t.port.Drain()
}

// PortName returns the serial port name.
func (t *SerialTransport) PortName() string {
	return t.portName
}
