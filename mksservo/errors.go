package mksservo

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoResponse      = errors.New("no response from servo")
	ErrShortReply      = errors.New("short reply from servo")
	ErrLinkClosed      = errors.New("link is closed")
)

// ConnectionError is returned when the transport could not be opened.
type ConnectionError struct {
	Port string // Port identifier that was opened
	Err  error  // Underlying error from the transport
}

func (e *ConnectionError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("connection error: %v", e.Err)
	}
	return fmt.Sprintf("connection error on %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommError represents a transport failure while exchanging a frame.
type CommError struct {
	Op  string // Operation that failed (e.g., "stop", "read pulses received")
	Err error  // Underlying error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("communication error during %s: %v", e.Op, e.Err)
}

func (e *CommError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when fewer reply bytes arrived than the command
// expects. Got holds whatever was received before the timeout.
type DecodeError struct {
	Op     string
	Opcode Opcode
	Want   int
	Got    []byte
}

func (e *DecodeError) Error() string {
	if len(e.Got) == 0 {
		return fmt.Sprintf("%s (0x%02X): no reply, want %d bytes", e.Op, byte(e.Opcode), e.Want)
	}
	return fmt.Sprintf("%s (0x%02X): short reply % X, want %d bytes", e.Op, byte(e.Opcode), e.Got, e.Want)
}

// Unwrap lets errors.Is match ErrShortReply, and ErrNoResponse when the
// device said nothing at all.
func (e *DecodeError) Unwrap() []error {
	if len(e.Got) == 0 {
		return []error{ErrShortReply, ErrNoResponse}
	}
	return []error{ErrShortReply}
}

// IsNoResponse returns true if the error indicates no reply bytes were received.
func IsNoResponse(err error) bool {
	return errors.Is(err, ErrNoResponse)
}

// IsInvalidArgument returns true if the error was caused by a rejected argument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// GetDecodeError extracts a DecodeError from an error chain, if present.
func GetDecodeError(err error) (*DecodeError, bool) {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr, true
	}
	return nil, false
}

// GetConnectionError extracts a ConnectionError from an error chain, if present.
func GetConnectionError(err error) (*ConnectionError, bool) {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr, true
	}
	return nil, false
}
