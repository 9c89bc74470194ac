// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dcmotor

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/motors/oneshot"
)

const (
	// MaxPower is the largest magnitude of a power command.
	MaxPower = 100

	devName = "dcmotor"
)

var (
	// ErrPin is returned when a pin can't be configured during New.
	ErrPin = errors.New("dcmotor: pin configuration failed")

	// ErrInvalidOpts is returned by New for a zero or negative period.
	ErrInvalidOpts = errors.New("dcmotor: invalid options")
)

// Opts holds the configuration of the soft-PWM engine.
type Opts struct {
	// Period is the length of a full PWM cycle, in Unit.
	Period int
	// Unit is the time base of Period.
	Unit time.Duration
	// PowerActive is the level of the power pin that drives the motor. The
	// opposite level brakes it.
	PowerActive gpio.Level
	// Timer schedules the PWM edges. Defaults to a new oneshot.Clock.
	Timer oneshot.Timer
	// Logger defaults to the logrus standard logger.
	Logger *logrus.Entry
}

// DefaultOpts is the recommended default options: a 100ms cycle on a bridge
// with an inverted enable line.
var DefaultOpts = Opts{
	Period:      100,
	Unit:        time.Millisecond,
	PowerActive: gpio.Low,
}

// Dev is a DC motor driven by soft PWM.
type Dev struct {
	power   gpio.PinOut
	forward gpio.PinOut
	reverse gpio.PinOut

	period  time.Duration
	active  gpio.Level
	timer   oneshot.Timer
	log     *logrus.Entry
	command atomic.Int32

	// on is true when the next firing starts the active part of the cycle.
	// Only touched by tick.
	on bool
}

// New configures the three pins, starts the PWM timer and returns the motor
// braked.
//
// The power pin toggles the bridge enable line. forward and reverse select
// the direction.
func New(power, forward, reverse gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Period <= 0 || opts.Unit <= 0 {
		return nil, fmt.Errorf("%w: period %d x %s", ErrInvalidOpts, opts.Period, opts.Unit)
	}
	d := &Dev{
		power:   power,
		forward: forward,
		reverse: reverse,
		period:  time.Duration(opts.Period) * opts.Unit,
		active:  opts.PowerActive,
		timer:   opts.Timer,
		log:     opts.Logger,
		on:      true,
	}
	if d.timer == nil {
		d.timer = oneshot.New()
	}
	if d.log == nil {
		d.log = logrus.NewEntry(logrus.StandardLogger())
	}
	d.log = d.log.WithField("dev", devName)

	if err := d.forward.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPin, d.forward, err)
	}
	if err := d.reverse.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPin, d.reverse, err)
	}
	if err := d.power.Out(!d.active); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPin, d.power, err)
	}
	d.timer.Arm(d.period, d.tick)
	return d, nil
}

// Set stores a new power command and applies the direction immediately.
//
// The value is clamped to [-MaxPower, MaxPower]. A positive value runs
// forward, a negative one in reverse. 0 brakes the motor right away, without
// waiting for the next timer firing.
//
// It returns the value actually stored.
func (d *Dev) Set(power int) (int, error) {
	power = Clamp(power)
	d.command.Store(int32(power))
	d.log.Debugf("power %d", power)

	if power == 0 {
		if err := d.power.Out(!d.active); err != nil {
			return power, err
		}
	}
	return power, d.direction(orientation(power))
}

// Power returns the current power command.
func (d *Dev) Power() int {
	return int(d.command.Load())
}

// Command returns the power command. Used by chardev.
func (d *Dev) Command() int64 {
	return int64(d.Power())
}

// SetCommand sets the power command, saturating values that don't fit.
// Used by chardev.
func (d *Dev) SetCommand(v int64) {
	if v > MaxPower {
		v = MaxPower
	} else if v < -MaxPower {
		v = -MaxPower
	}
	if _, err := d.Set(int(v)); err != nil {
		d.log.WithError(err).Warn("direction update failed")
	}
}

// Halt stops the PWM timer and leaves the motor braked.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	d.timer.Cancel()
	d.command.Store(0)
	err := d.power.Out(!d.active)
	err = multierr.Append(err, d.forward.Out(gpio.High))
	return multierr.Append(err, d.reverse.Out(gpio.Low))
}

func (d *Dev) String() string {
	return devName + "{" + d.power.Name() + "," + d.forward.Name() + "," + d.reverse.Name() + "}=" + strconv.Itoa(d.Power())
}

// Clamp limits a power command to [-MaxPower, MaxPower].
func Clamp(power int) int {
	if power > MaxPower {
		return MaxPower
	}
	if power < -MaxPower {
		return -MaxPower
	}
	return power
}

// tick is the timer callback. It computes the power pin level and the delay
// until the next firing from the current command, then re-arms the timer.
func (d *Dev) tick() {
	level, next := d.step(int(d.command.Load()))
	d.timer.Arm(next, d.tick)
	if err := d.power.Out(level); err != nil {
		d.log.WithError(err).Warn("power pin write failed")
	}
}

// step evaluates one firing of the state machine.
func (d *Dev) step(power int) (gpio.Level, time.Duration) {
	m := power
	if m < 0 {
		m = -m
	}
	switch {
	case power == 0:
		d.log.Trace("stopped")
		d.on = true
		err := d.direction(gpio.High, gpio.Low)
		// A Set racing this firing may have written its direction before
		// ours. The PWM branches never touch direction, so restore it now.
		if p := int(d.command.Load()); p != 0 && err == nil {
			err = d.direction(orientation(p))
		}
		if err != nil {
			d.log.WithError(err).Warn("direction pin write failed")
		}
		return !d.active, d.period
	case m == MaxPower:
		d.log.Trace("full on")
		d.on = true
		return d.active, d.period
	}
	on := d.period * time.Duration(m) / MaxPower
	if d.on {
		d.on = false
		d.log.Trace("on")
		return d.active, on
	}
	d.on = true
	d.log.Trace("off")
	return !d.active, d.period - on
}

// orientation returns the forward and reverse levels for a power command. 0
// uses the forward orientation.
func orientation(power int) (gpio.Level, gpio.Level) {
	if power < 0 {
		return gpio.Low, gpio.High
	}
	return gpio.High, gpio.Low
}

func (d *Dev) direction(forward, reverse gpio.Level) error {
	if err := d.forward.Out(forward); err != nil {
		return err
	}
	return d.reverse.Out(reverse)
}

var _ conn.Resource = &Dev{}
