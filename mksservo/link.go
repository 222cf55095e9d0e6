package mksservo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hipsterbrown/mks-servo/transports"
)

// Serial backends understood by NewLink.
const (
	BackendSerial = "serial" // go.bug.st/serial
	BackendTarm   = "tarm"   // github.com/tarm/serial
)

// Defaults for the v1.0 firmware.
const (
	DefaultBaudRate = 9600
	DefaultTimeout  = time.Second
)

// Link is a connection to one servo at a fixed address. Exchanges are
// serialised internally, so a *Link may be shared between goroutines.
type Link struct {
	transport Transport
	address   byte
	port      string
	baudRate  int
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
}

// Config holds configuration for creating a new Link.
type Config struct {
	// Transport is the underlying byte stream.
	// If nil, Port must be specified to open a serial connection.
	Transport Transport

	// Port is the serial port path (e.g., "/dev/ttyUSB0").
	// Ignored if Transport is provided.
	Port string

	// Backend picks the serial library used to open Port:
	// BackendSerial (default) or BackendTarm.
	Backend string

	// BaudRate is the communication speed. Default is 9600.
	BaudRate int

	// Timeout bounds how long a reply is waited for. Default is 1 second.
	Timeout time.Duration

	// Address is the servo's slave address. Use DefaultConfig to start
	// from the factory address 0xE0.
	Address byte
}

// DefaultConfig returns the factory settings for a servo on port.
func DefaultConfig(port string) Config {
	return Config{
		Port:     port,
		Backend:  BackendSerial,
		BaudRate: DefaultBaudRate,
		Timeout:  DefaultTimeout,
		Address:  DefaultAddress,
	}
}

// NewLink opens a link with the given configuration.
// A zero BaudRate or Timeout falls back to its default, but Address is used
// as given: a zero Address talks to 0x00, not the factory 0xE0. Start from
// DefaultConfig to get the factory address.
func NewLink(cfg Config) (*Link, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		var err error
		transport, err = openPort(cfg)
		if err != nil {
			return nil, &ConnectionError{Port: cfg.Port, Err: err}
		}
	}

	return &Link{
		transport: transport,
		address:   cfg.Address,
		port:      cfg.Port,
		baudRate:  cfg.BaudRate,
		timeout:   cfg.Timeout,
	}, nil
}

func openPort(cfg Config) (Transport, error) {
	if cfg.Port == "" {
		return nil, errors.New("either Transport or Port must be specified")
	}

	serialCfg := transports.SerialConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Timeout:  cfg.Timeout,
	}

	switch cfg.Backend {
	case "", BackendSerial:
		t, err := transports.OpenSerial(serialCfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	case BackendTarm:
		t, err := transports.OpenTarm(serialCfg)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: unknown serial backend %q", ErrInvalidArgument, cfg.Backend)
	}
}

// Close closes the link and releases the transport. Closing twice is a no-op.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	return l.transport.Close()
}

// Address returns the servo's slave address.
func (l *Link) Address() byte {
	return l.address
}

// Port returns the serial port path, empty when a Transport was supplied.
func (l *Link) Port() string {
	return l.port
}

// BaudRate returns the configured baud rate.
func (l *Link) BaudRate() int {
	return l.baudRate
}

// Timeout returns the reply timeout.
func (l *Link) Timeout() time.Duration {
	return l.timeout
}

// Exchange sends one command and returns its decoded reply value.
// Commands with ValueNone return 0.
func (l *Link) Exchange(ctx context.Context, cmd Command, payload ...byte) (int64, error) {
	frame, err := EncodeFrame(l.address, cmd, payload)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrLinkClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := l.sendFrameLocked(cmd, frame); err != nil {
		return 0, &CommError{Op: cmd.Name, Err: err}
	}

	reply, err := l.readReplyLocked(ctx, cmd)
	if err != nil {
		return 0, err
	}

	return DecodeValue(cmd, reply)
}

// Internal methods

func (l *Link) sendFrameLocked(cmd Command, frame []byte) error {
	// Flush any stale input
	if err := l.transport.Flush(); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}

	n, err := l.transport.Write(frame)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d of %d bytes", n, len(frame))
	}

	if cmd.Settle > 0 {
		if err := l.transport.Drain(); err != nil {
			return fmt.Errorf("drain failed: %w", err)
		}
		time.Sleep(cmd.Settle)
	}

	return nil
}

// readReplyLocked reads up to cmd.ReplyLen bytes, returning early only on a
// transport error or cancellation. A short buffer means the timeout ran out.
func (l *Link) readReplyLocked(ctx context.Context, cmd Command) ([]byte, error) {
	buffer := make([]byte, cmd.ReplyLen)
	totalRead := 0
	deadline := time.Now().Add(l.timeout)

	for totalRead < len(buffer) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := l.transport.SetReadTimeout(remaining); err != nil {
			return nil, &CommError{Op: cmd.Name, Err: fmt.Errorf("set read timeout: %w", err)}
		}

		n, err := l.transport.Read(buffer[totalRead:])
		totalRead += n
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, &CommError{Op: cmd.Name, Err: fmt.Errorf("read error: %w", err)}
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	return buffer[:totalRead], nil
}
