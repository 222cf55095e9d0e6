package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/hipsterbrown/mks-servo/mksservo"
)

// jog runs the motor at constant speed until the pulse counter has moved
// pulses steps in dir, then stops it. CW counts up, CCW counts down.
// progress, if set, sees every pulse reading. The final reading is returned.
func jog(ctx context.Context, link *mksservo.Link, dir mksservo.Direction, speed byte, pulses int32, limiter *rate.Limiter, progress func(moved int32)) (int32, error) {
	if pulses < 0 {
		return 0, fmt.Errorf("%w: pulses must not be negative", mksservo.ErrInvalidArgument)
	}

	start, err := link.ReadPulsesReceived(ctx)
	if err != nil {
		return 0, fmt.Errorf("read start position: %w", err)
	}

	target := int64(start) + int64(pulses)
	reached := func(p int32) bool { return int64(p) >= target }
	if dir == mksservo.CCW {
		target = int64(start) - int64(pulses)
		reached = func(p int32) bool { return int64(p) <= target }
	}
	if target > math.MaxInt32 || target < math.MinInt32 {
		return start, fmt.Errorf("%w: target %d outside the pulse counter range", mksservo.ErrInvalidArgument, target)
	}

	if err := link.Move(ctx, dir, speed); err != nil {
		if mksservo.IsInvalidArgument(err) {
			return start, err
		}
		// The frame may have reached the servo even though the reply was lost.
		return start, stopAfter(link, err)
	}

	current := start
	for !reached(current) {
		if err := limiter.Wait(ctx); err != nil {
			return current, stopAfter(link, err)
		}

		p, err := link.ReadPulsesReceived(ctx)
		if err != nil {
			return current, stopAfter(link, err)
		}
		current = p

		if progress != nil {
			moved := int64(current) - int64(start)
			if dir == mksservo.CCW {
				moved = -moved
			}
			progress(int32(moved))
		}
	}

	return current, link.Stop(ctx)
}

// stopAfter stops the motor even though ctx may be done, keeping cause.
func stopAfter(link *mksservo.Link, cause error) error {
	if err := link.Stop(context.Background()); err != nil {
		return errors.Join(cause, fmt.Errorf("stop: %w", err))
	}
	return cause
}
