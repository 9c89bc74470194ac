// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stepper

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/motors/oneshot"
)

const (
	devName = "stepper"

	numPhases = 4
	phaseMask = gpio.GPIOValue(1<<numPhases) - 1
)

var (
	// ErrPin is returned when the phase outputs can't be configured during
	// New or NewGroup.
	ErrPin = errors.New("stepper: pin configuration failed")

	// ErrInvalidOpts is returned for a zero or negative step period.
	ErrInvalidOpts = errors.New("stepper: invalid options")
)

// patterns is the wave drive sequence, indexed by phase. Bit 0 is A1, bit 1
// A2, bit 2 B1 and bit 3 B2.
var patterns = [numPhases]gpio.GPIOValue{
	0b0111, // A1 A2 B1
	0b1101, // A1 B1 B2
	0b1011, // A1 A2 B2
	0b1110, // A2 B1 B2
}

// Opts holds the configuration of the step sequencer.
type Opts struct {
	// StepPeriod is the interval between two steps, in Unit.
	StepPeriod int
	// Unit is the time base of StepPeriod.
	Unit time.Duration
	// Timer schedules the steps. Defaults to a new oneshot.Clock.
	Timer oneshot.Timer
	// Logger defaults to the logrus standard logger.
	Logger *logrus.Entry
}

// DefaultOpts is the recommended default options: one step every 20ms.
var DefaultOpts = Opts{
	StepPeriod: 20,
	Unit:       time.Millisecond,
}

// Dev is a stepper motor.
type Dev struct {
	out  outputs
	name string

	period   time.Duration
	timer    oneshot.Timer
	log      *logrus.Entry
	target   atomic.Int64
	position atomic.Int64
}

// New configures the four phase pins high, starts the step timer and
// returns the motor at position 0.
func New(a1, a2, b1, b2 gpio.PinOut, opts *Opts) (*Dev, error) {
	p := pinOutputs{a1, a2, b1, b2}
	return newDev(p, devName+"{"+a1.Name()+","+a2.Name()+","+b1.Name()+","+b2.Name()+"}", opts)
}

// NewGroup is like New for phase outputs exposed as a gpio.Group. The first
// four pins of the group are A1, A2, B1 and B2. Each pattern is written in a
// single Out call.
func NewGroup(g gpio.Group, opts *Opts) (*Dev, error) {
	if n := len(g.Pins()); n < numPhases {
		return nil, fmt.Errorf("%w: group %s has %d pins, need %d", ErrPin, g, n, numPhases)
	}
	return newDev(groupOutputs{g}, devName+"{"+g.String()+"}", opts)
}

func newDev(out outputs, name string, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.StepPeriod <= 0 || opts.Unit <= 0 {
		return nil, fmt.Errorf("%w: step period %d x %s", ErrInvalidOpts, opts.StepPeriod, opts.Unit)
	}
	d := &Dev{
		out:    out,
		name:   name,
		period: time.Duration(opts.StepPeriod) * opts.Unit,
		timer:  opts.Timer,
		log:    opts.Logger,
	}
	if d.timer == nil {
		d.timer = oneshot.New()
	}
	if d.log == nil {
		d.log = logrus.NewEntry(logrus.StandardLogger())
	}
	d.log = d.log.WithField("dev", devName)

	if err := d.out.write(phaseMask); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPin, err)
	}
	d.timer.Arm(d.period, d.tick)
	return d, nil
}

// SetTarget sets the absolute position to move to. The motor moves one step
// per step period until it gets there.
func (d *Dev) SetTarget(target int64) {
	d.target.Store(target)
	d.log.Debugf("target %d", target)
}

// Target returns the position the motor is moving to.
func (d *Dev) Target() int64 {
	return d.target.Load()
}

// Position returns the current absolute step position.
func (d *Dev) Position() int64 {
	return d.position.Load()
}

// Command returns the target, not the position. Used by chardev.
func (d *Dev) Command() int64 {
	return d.Target()
}

// SetCommand sets the target. Used by chardev.
func (d *Dev) SetCommand(v int64) {
	d.SetTarget(v)
}

// Halt stops the step timer and releases the windings by driving all phase
// outputs low. The position is kept.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	d.timer.Cancel()
	return d.out.write(0)
}

func (d *Dev) String() string {
	return d.name + "=" + strconv.FormatInt(d.Position(), 10) + "/" + strconv.FormatInt(d.Target(), 10)
}

// Phase returns the electrical phase of an absolute position, in [0, 3].
func Phase(position int64) int {
	return int((position%numPhases + numPhases) % numPhases)
}

// tick is the timer callback: one step toward the target, then the pattern
// for the new phase.
func (d *Dev) tick() {
	pos := d.position.Load()
	target := d.target.Load()
	switch {
	case pos < target:
		pos++
	case pos > target:
		pos--
	}
	d.position.Store(pos)
	d.timer.Arm(d.period, d.tick)
	phase := Phase(pos)
	if err := d.out.write(patterns[phase]); err != nil {
		d.log.WithError(err).Warn("phase write failed")
	}
	d.log.Tracef("position %d phase %d", pos, phase)
}

// outputs writes a 4-bit phase pattern.
type outputs interface {
	write(pattern gpio.GPIOValue) error
}

type pinOutputs [numPhases]gpio.PinOut

func (p pinOutputs) write(pattern gpio.GPIOValue) error {
	for i, pin := range p {
		if err := pin.Out(pattern&(1<<i) != 0); err != nil {
			return fmt.Errorf("%s: %w", pin, err)
		}
	}
	return nil
}

type groupOutputs struct {
	g gpio.Group
}

func (g groupOutputs) write(pattern gpio.GPIOValue) error {
	return g.g.Out(pattern, phaseMask)
}

var _ conn.Resource = &Dev{}
