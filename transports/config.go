// Package transports provides byte-stream implementations of
// mksservo.Transport.
package transports

import (
	"errors"
	"time"
)

// Defaults for the MKS SERVO42C v1.0 firmware.
const (
	DefaultBaudRate = 9600
	DefaultTimeout  = time.Second
)

// SerialConfig holds configuration for opening a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
}

func (cfg SerialConfig) withDefaults() (SerialConfig, error) {
	if cfg.Port == "" {
		return cfg, errors.New("serial port path is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}
