package mksservo

import (
	"context"
)

// Readings

// ReadEncoderValue reads the raw magnetic encoder value.
func (l *Link) ReadEncoderValue(ctx context.Context) (uint16, error) {
	v, err := l.Exchange(ctx, CmdReadEncoderValue)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// ReadPulsesReceived reads the cumulative step pulse counter.
// The counter is signed; moving CCW counts down.
func (l *Link) ReadPulsesReceived(ctx context.Context) (int32, error) {
	v, err := l.Exchange(ctx, CmdReadPulsesReceived)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadMotorShaftAngle reads the accumulated shaft angle.
func (l *Link) ReadMotorShaftAngle(ctx context.Context) (uint32, error) {
	v, err := l.Exchange(ctx, CmdReadMotorShaftAngle)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// ReadMotorShaftErrorAngle reads the difference between the commanded and
// measured shaft angle.
func (l *Link) ReadMotorShaftErrorAngle(ctx context.Context) (int16, error) {
	v, err := l.Exchange(ctx, CmdReadMotorShaftErrorAngle)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}

// ReadEnPinStatus reads the EN pin status byte.
func (l *Link) ReadEnPinStatus(ctx context.Context) (byte, error) {
	v, err := l.Exchange(ctx, CmdReadEnPinStatus)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// ReadMotorShaftStatus reads the shaft status code.
func (l *Link) ReadMotorShaftStatus(ctx context.Context) (byte, error) {
	v, err := l.Exchange(ctx, CmdReadMotorShaftStatus)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// Configuration

// SetSubdivision sets the microstepping divisor.
func (l *Link) SetSubdivision(ctx context.Context, subdivision byte) error {
	_, err := l.Exchange(ctx, CmdSetSubdivision, subdivision)
	return err
}

// SetActiveOfEnPin sets which EN pin level enables the driver.
// This is the only command the v1.0 firmware expects checksummed.
func (l *Link) SetActiveOfEnPin(ctx context.Context, active byte) error {
	_, err := l.Exchange(ctx, CmdSetActiveOfEnPin, active)
	return err
}

// SetEnPinStatus sets the EN pin status over serial.
func (l *Link) SetEnPinStatus(ctx context.Context, status byte) error {
	_, err := l.Exchange(ctx, CmdSetEnPinStatus, status)
	return err
}

// Motion

// Move runs the motor at a constant speed until Stop.
// speed is 0 to MaxSpeed.
func (l *Link) Move(ctx context.Context, dir Direction, speed byte) error {
	encoded, err := EncodeSpeed(dir, speed)
	if err != nil {
		return err
	}
	_, err = l.Exchange(ctx, CmdRunConstantSpeed, encoded)
	return err
}

// MoveTo runs the motor position pulses in dir at speed.
func (l *Link) MoveTo(ctx context.Context, dir Direction, speed byte, position uint16) error {
	encoded, err := EncodeSpeed(dir, speed)
	if err != nil {
		return err
	}
	payload := append([]byte{encoded}, EncodeUint16(position)...)
	_, err = l.Exchange(ctx, CmdRunToPosition, payload...)
	return err
}

// Stop stops the motor.
func (l *Link) Stop(ctx context.Context) error {
	_, err := l.Exchange(ctx, CmdStopMotor)
	return err
}

// SaveConstantSpeed stores the current constant-speed run so the servo
// resumes it after power-up.
func (l *Link) SaveConstantSpeed(ctx context.Context) error {
	_, err := l.Exchange(ctx, CmdSaveClearConstantSpeed, saveConstantSpeed)
	return err
}

// ClearConstantSpeed clears a saved constant-speed run.
func (l *Link) ClearConstantSpeed(ctx context.Context) error {
	_, err := l.Exchange(ctx, CmdSaveClearConstantSpeed, clearConstantSpeed)
	return err
}
