//go:build baremetal

package transports

import (
	"errors"
	"fmt"
	"machine"
	"time"
)

// MCUTransport implements Transport on a TinyGo UART.
type MCUTransport struct {
	*machine.UART
	timeout time.Duration
}

// OpenSerial configures a UART port, named "0" or "1".
func OpenSerial(cfg SerialConfig) (*MCUTransport, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	var uart *machine.UART
	switch cfg.Port {
	case "0":
		uart = machine.UART0
	case "1":
		uart = machine.UART1
	default:
		return nil, fmt.Errorf("unknown UART %s", cfg.Port)
	}

	uart.SetBaudRate(uint32(cfg.BaudRate))

	return &MCUTransport{UART: uart, timeout: cfg.Timeout}, nil
}

// OpenTarm is unavailable without an operating system.
func OpenTarm(cfg SerialConfig) (*MCUTransport, error) {
	return nil, errors.New("tarm backend is not available on baremetal targets")
}

// SetReadTimeout records the timeout; UART reads never block.
func (t *MCUTransport) SetReadTimeout(timeout time.Duration) error {
	t.timeout = timeout
	return nil
}

func (t *MCUTransport) Close() error {
	return nil
}

// Flush discards buffered input.
func (t *MCUTransport) Flush() error {
	for t.Buffered() > 0 {
		if _, err := t.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

func (t *MCUTransport) Drain() error {
	return nil
}
