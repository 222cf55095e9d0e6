package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/theckman/yacspin"
	"golang.org/x/time/rate"

	"github.com/hipsterbrown/mks-servo/mksservo"
)

type deviceCommand struct {
	run func(ctx context.Context, link *mksservo.Link, c Config, args []string, out io.Writer) error
}

var deviceCommands = map[string]deviceCommand{
	"status":      {run: runStatus},
	"subdivision": {run: runSubdivision},
	"move":        {run: runMove},
	"moveto":      {run: runMoveTo},
	"stop":        {run: runStop},
	"enable":      {run: runEnable},
	"active":      {run: runActive},
	"save":        {run: runSave},
	"clear":       {run: runClear},
	"jog":         {run: runJog},
}

func runStatus(ctx context.Context, link *mksservo.Link, _ Config, _ []string, out io.Writer) error {
	pulses, err := link.ReadPulsesReceived(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Pulses Received: %d\n", pulses)

	status, err := link.ReadMotorShaftStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Motor Shaft Status: %d\n", status)

	angle, err := link.ReadMotorShaftAngle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Motor Shaft Angle: %d\n", angle)

	errAngle, err := link.ReadMotorShaftErrorAngle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Motor Shaft Error Angle: %d\n", errAngle)

	enc, err := link.ReadEncoderValue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Encoder Value: %d\n", enc)

	en, err := link.ReadEnPinStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "EN Pin Status: %d\n", en)
	return nil
}

func runSubdivision(ctx context.Context, link *mksservo.Link, _ Config, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("subdivision", flag.ContinueOnError)
	value := fs.Uint("value", 8, "microstepping divisor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := toByte("value", *value, 0xFF)
	if err != nil {
		return err
	}
	return link.SetSubdivision(ctx, v)
}

// motionFlags registers the -dir and -speed flags shared by the motion commands.
func motionFlags(fs *flag.FlagSet) (dir *string, speed *uint) {
	dir = fs.String("dir", string(mksservo.CW), "direction, CW or CCW")
	speed = fs.Uint("speed", 0x70, "speed, 0 to 0x7F")
	return dir, speed
}

func parseMotion(dir string, speed uint) (mksservo.Direction, byte, error) {
	d, err := mksservo.ParseDirection(dir)
	if err != nil {
		return "", 0, err
	}
	s, err := toByte("speed", speed, mksservo.MaxSpeed)
	if err != nil {
		return "", 0, err
	}
	return d, s, nil
}

func runMove(ctx context.Context, link *mksservo.Link, _ Config, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	dir, speed := motionFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, s, err := parseMotion(*dir, *speed)
	if err != nil {
		return err
	}
	return link.Move(ctx, d, s)
}

func runMoveTo(ctx context.Context, link *mksservo.Link, _ Config, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("moveto", flag.ContinueOnError)
	dir, speed := motionFlags(fs)
	pos := fs.Uint("pos", 0, "pulses to travel, 0 to 0xFFFF")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, s, err := parseMotion(*dir, *speed)
	if err != nil {
		return err
	}
	if *pos > 0xFFFF {
		return fmt.Errorf("%w: pos %d exceeds 0xFFFF", mksservo.ErrInvalidArgument, *pos)
	}
	return link.MoveTo(ctx, d, s, uint16(*pos))
}

func runStop(ctx context.Context, link *mksservo.Link, _ Config, _ []string, _ io.Writer) error {
	return link.Stop(ctx)
}

func runEnable(ctx context.Context, link *mksservo.Link, _ Config, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("enable", flag.ContinueOnError)
	status := fs.Uint("status", 1, "EN pin status byte")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := toByte("status", *status, 0xFF)
	if err != nil {
		return err
	}
	return link.SetEnPinStatus(ctx, v)
}

func runActive(ctx context.Context, link *mksservo.Link, _ Config, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("active", flag.ContinueOnError)
	level := fs.Uint("level", 0, "EN pin active level byte")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := toByte("level", *level, 0xFF)
	if err != nil {
		return err
	}
	return link.SetActiveOfEnPin(ctx, v)
}

func runSave(ctx context.Context, link *mksservo.Link, _ Config, _ []string, _ io.Writer) error {
	return link.SaveConstantSpeed(ctx)
}

func runClear(ctx context.Context, link *mksservo.Link, _ Config, _ []string, _ io.Writer) error {
	return link.ClearConstantSpeed(ctx)
}

func runJog(ctx context.Context, link *mksservo.Link, c Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("jog", flag.ContinueOnError)
	dir, speed := motionFlags(fs)
	pulses := fs.Uint("pulses", 400, "pulses to travel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, s, err := parseMotion(*dir, *speed)
	if err != nil {
		return err
	}
	if *pulses > 1<<31-1 {
		return fmt.Errorf("%w: pulses %d out of range", mksservo.ErrInvalidArgument, *pulses)
	}
	if c.PollRate <= 0 {
		return fmt.Errorf("pollrate must be positive, got %v", c.PollRate)
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		Writer:            out,
		CharSet:           yacspin.CharSets[14],
		Suffix:            fmt.Sprintf(" jog %s", d),
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return err
	}
	if err := spinner.Start(); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(c.PollRate), 1)
	total := int32(*pulses)
	final, err := jog(ctx, link, d, s, total, limiter, func(moved int32) {
		spinner.Message(fmt.Sprintf("%d/%d pulses", moved, total))
	})
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		return err
	}

	spinner.StopMessage(fmt.Sprintf("stopped at %d pulses", final))
	return spinner.Stop()
}

func toByte(name string, v uint, max uint) (byte, error) {
	if v > max {
		return 0, fmt.Errorf("%w: %s 0x%X exceeds 0x%X", mksservo.ErrInvalidArgument, name, v, max)
	}
	return byte(v), nil
}
