package mksservo

import (
	"slices"
	"time"
)

// Opcode identifies a read or write operation on the wire.
type Opcode byte

// Opcodes supported by the v1.0 firmware.
const (
	OpReadEncoderValue         Opcode = 0x30
	OpReadPulsesReceived       Opcode = 0x33
	OpReadMotorShaftAngle      Opcode = 0x36
	OpReadMotorShaftErrorAngle Opcode = 0x39
	OpReadEnPinStatus          Opcode = 0x3A
	OpReadMotorShaftStatus     Opcode = 0x3E

	OpSetSubdivision   Opcode = 0x84
	OpSetActiveOfEnPin Opcode = 0x85

	OpSetEnPinStatus         Opcode = 0xF3
	OpRunConstantSpeed       Opcode = 0xF6
	OpStopMotor              Opcode = 0xF7
	OpRunToPosition          Opcode = 0xFD
	OpSaveClearConstantSpeed Opcode = 0xFF
)

// ValueKind says how the reply bytes after the address echo are interpreted.
type ValueKind int

const (
	ValueNone     ValueKind = iota // reply is read and discarded
	ValueUnsigned                  // big-endian unsigned integer
	ValueSigned                    // big-endian two's complement integer
)

// Command describes the framing of one opcode.
type Command struct {
	Name       string
	Opcode     Opcode
	PayloadLen int // bytes between opcode and checksum
	ReplyLen   int // total reply bytes, address echo included
	Value      ValueKind
	// Checksum appends sum(frame)&0xFF to the outgoing frame.
	Checksum bool
	// Settle is how long to wait after the frame is drained before reading.
	Settle time.Duration
}

// ValueWidth returns the number of reply bytes carrying the value.
func (c Command) ValueWidth() int {
	if c.Value == ValueNone {
		return 0
	}
	return c.ReplyLen - 1
}

// Read commands.
var (
	CmdReadEncoderValue         = Command{Name: "read encoder value", Opcode: OpReadEncoderValue, ReplyLen: 3, Value: ValueUnsigned}
	CmdReadPulsesReceived       = Command{Name: "read pulses received", Opcode: OpReadPulsesReceived, ReplyLen: 5, Value: ValueSigned}
	CmdReadMotorShaftAngle      = Command{Name: "read motor shaft angle", Opcode: OpReadMotorShaftAngle, ReplyLen: 5, Value: ValueUnsigned}
	CmdReadMotorShaftErrorAngle = Command{Name: "read motor shaft error angle", Opcode: OpReadMotorShaftErrorAngle, ReplyLen: 3, Value: ValueSigned}
	CmdReadEnPinStatus          = Command{Name: "read EN pin status", Opcode: OpReadEnPinStatus, ReplyLen: 2, Value: ValueUnsigned}
	CmdReadMotorShaftStatus     = Command{Name: "read motor shaft status", Opcode: OpReadMotorShaftStatus, ReplyLen: 2, Value: ValueUnsigned}
)

// Write and motion commands.
var (
	CmdSetSubdivision   = Command{Name: "set subdivision", Opcode: OpSetSubdivision, PayloadLen: 1, ReplyLen: 2}
	CmdSetActiveOfEnPin = Command{Name: "set active of EN pin", Opcode: OpSetActiveOfEnPin, PayloadLen: 1, ReplyLen: 2, Checksum: true}
	CmdSetEnPinStatus   = Command{Name: "set EN pin status", Opcode: OpSetEnPinStatus, PayloadLen: 1, ReplyLen: 3, Settle: 50 * time.Millisecond}
	CmdRunConstantSpeed = Command{Name: "run constant speed", Opcode: OpRunConstantSpeed, PayloadLen: 1, ReplyLen: 2}
	CmdStopMotor        = Command{Name: "stop motor", Opcode: OpStopMotor, ReplyLen: 2, Settle: 50 * time.Millisecond}
	CmdRunToPosition    = Command{Name: "run motor to position", Opcode: OpRunToPosition, PayloadLen: 3, ReplyLen: 2}

	// The payload selects save (0xC8) or clear (0xCA).
	CmdSaveClearConstantSpeed = Command{Name: "save/clear constant speed", Opcode: OpSaveClearConstantSpeed, PayloadLen: 1, ReplyLen: 2}
)

var commandTable = map[Opcode]Command{
	OpReadEncoderValue:         CmdReadEncoderValue,
	OpReadPulsesReceived:       CmdReadPulsesReceived,
	OpReadMotorShaftAngle:      CmdReadMotorShaftAngle,
	OpReadMotorShaftErrorAngle: CmdReadMotorShaftErrorAngle,
	OpReadEnPinStatus:          CmdReadEnPinStatus,
	OpReadMotorShaftStatus:     CmdReadMotorShaftStatus,
	OpSetSubdivision:           CmdSetSubdivision,
	OpSetActiveOfEnPin:         CmdSetActiveOfEnPin,
	OpSetEnPinStatus:           CmdSetEnPinStatus,
	OpRunConstantSpeed:         CmdRunConstantSpeed,
	OpStopMotor:                CmdStopMotor,
	OpRunToPosition:            CmdRunToPosition,
	OpSaveClearConstantSpeed:   CmdSaveClearConstantSpeed,
}

// LookupCommand returns the framing for an opcode.
func LookupCommand(op Opcode) (Command, bool) {
	cmd, ok := commandTable[op]
	return cmd, ok
}

// Commands returns every known command ordered by opcode.
func Commands() []Command {
	cmds := make([]Command, 0, len(commandTable))
	for _, cmd := range commandTable {
		cmds = append(cmds, cmd)
	}
	slices.SortFunc(cmds, func(a, b Command) int {
		return int(a.Opcode) - int(b.Opcode)
	})
	return cmds
}
