// Package mksservo drives an MKS SERVO42C closed-loop stepper controller
// (v1.0 firmware) over a serial byte stream.
//
// Every frame is [address][opcode][payload...] with an optional trailing
// checksum; the reply length is fixed by the opcode. Multi-byte fields are
// big-endian.
package mksservo

import (
	"encoding/binary"
	"fmt"
)

// DefaultAddress is the factory slave address.
const DefaultAddress byte = 0xE0

// Speed byte layout for the run commands.
const (
	directionBit = 0x80
	MaxSpeed     = 0x7F
)

// Payloads for OpSaveClearConstantSpeed.
const (
	saveConstantSpeed  byte = 0xC8
	clearConstantSpeed byte = 0xCA
)

// Direction of rotation for Move and MoveTo.
type Direction string

const (
	CW  Direction = "CW"
	CCW Direction = "CCW"
)

// ParseDirection accepts exactly "CW" or "CCW".
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: direction must be %q or %q, got %q", ErrInvalidArgument, CW, CCW, s)
	}
	return d, nil
}

// Valid reports whether d is CW or CCW.
func (d Direction) Valid() bool {
	return d == CW || d == CCW
}

// EncodeSpeed folds the direction into the speed byte: CW sets bit 7.
func EncodeSpeed(dir Direction, speed byte) (byte, error) {
	if !dir.Valid() {
		return 0, fmt.Errorf("%w: direction must be %q or %q, got %q", ErrInvalidArgument, CW, CCW, string(dir))
	}
	if speed > MaxSpeed {
		return 0, fmt.Errorf("%w: speed 0x%02X exceeds 0x%02X", ErrInvalidArgument, speed, MaxSpeed)
	}
	if dir == CW {
		return speed | directionBit, nil
	}
	return speed, nil
}

// EncodeUint16 converts a 16-bit value to big-endian bytes.
func EncodeUint16(value uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, value)
	return buf
}

// Checksum is the low byte of the sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// EncodeFrame builds the wire frame for cmd addressed to address.
func EncodeFrame(address byte, cmd Command, payload []byte) ([]byte, error) {
	if len(payload) != cmd.PayloadLen {
		return nil, fmt.Errorf("%w: %s takes %d payload bytes, got %d", ErrInvalidArgument, cmd.Name, cmd.PayloadLen, len(payload))
	}

	buf := make([]byte, 0, 3+len(payload))
	buf = append(buf, address, byte(cmd.Opcode))
	buf = append(buf, payload...)

	if cmd.Checksum {
		buf = append(buf, Checksum(buf))
	}

	return buf, nil
}

// DecodeValue interprets reply according to cmd. A reply shorter than
// cmd.ReplyLen is a DecodeError; extra trailing bytes are ignored.
func DecodeValue(cmd Command, reply []byte) (int64, error) {
	if len(reply) < cmd.ReplyLen {
		got := make([]byte, len(reply))
		copy(got, reply)
		return 0, &DecodeError{Op: cmd.Name, Opcode: cmd.Opcode, Want: cmd.ReplyLen, Got: got}
	}

	width := cmd.ValueWidth()
	data := reply[1 : 1+width]
	switch cmd.Value {
	case ValueNone:
		return 0, nil
	case ValueUnsigned:
		switch width {
		case 1:
			return int64(data[0]), nil
		case 2:
			return int64(binary.BigEndian.Uint16(data)), nil
		case 4:
			return int64(binary.BigEndian.Uint32(data)), nil
		}
	case ValueSigned:
		switch width {
		case 1:
			return int64(int8(data[0])), nil
		case 2:
			return int64(int16(binary.BigEndian.Uint16(data))), nil
		case 4:
			return int64(int32(binary.BigEndian.Uint32(data))), nil
		}
	}
	return 0, fmt.Errorf("%s: unsupported %d-byte value", cmd.Name, width)
}
