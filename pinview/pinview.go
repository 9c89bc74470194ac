// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pinview implements emulated GPIO output pins that show their
// levels on the terminal (stdout) using ANSI color codes.
//
// Useful to watch a motor driver toggle its pins while the H-bridge is still
// in the mail. Register the pins in gpioreg and the drivers find them by name
// like real header pins.
package pinview

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrNotSupported is returned by the input and PWM functions of a Pin.
	ErrNotSupported = errors.New("pinview: not supported")
	// ErrRegistered is returned when registering a Dev twice.
	ErrRegistered = errors.New("pinview: already registered")
)

// Opts represents the options available for the view.
type Opts struct {
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Writer defaults to a colorable stdout.
	Writer io.Writer
	// High and Low are the colors of a pin at each level.
	High, Low color.Color

	_ struct{}
}

// DefaultOpts is green for High and dark gray for Low.
var DefaultOpts = Opts{
	High: color.NRGBA{0, 255, 0, 255},
	Low:  color.NRGBA{40, 40, 40, 255},
}

// Dev is a row of emulated output pins printed to the console.
type Dev struct {
	mu         sync.Mutex
	w          io.Writer
	palette    ansi256.Palette
	high, low  color.NRGBA
	pins       []*Pin
	buf        bytes.Buffer
	registered bool
}

// New returns a Dev with one pin per name, numbered from 0 in order. All the
// pins start Low.
func New(opts *Opts, names ...string) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	high, low := opts.High, opts.Low
	if high == nil {
		high = DefaultOpts.High
	}
	if low == nil {
		low = DefaultOpts.Low
	}
	d := &Dev{
		w:       opts.Writer,
		palette: *p,
		high:    toNRGBA(high),
		low:     toNRGBA(low),
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
	}
	for i, n := range names {
		d.pins = append(d.pins, &Pin{d: d, name: n, num: i})
	}
	return d
}

func (d *Dev) String() string {
	names := make([]string, len(d.pins))
	for i, p := range d.pins {
		names[i] = p.name
	}
	return "PinView{" + strings.Join(names, ",") + "}"
}

// Pins returns the emulated pins.
func (d *Dev) Pins() []*Pin {
	return d.pins
}

// Register adds the pins to gpioreg. On failure, the pins registered so far
// are unregistered.
func (d *Dev) Register() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.registered {
		return ErrRegistered
	}
	for i, p := range d.pins {
		if err := gpioreg.Register(p); err != nil {
			for j := i - 1; j >= 0; j-- {
				err = multierr.Append(err, gpioreg.Unregister(d.pins[j].name))
			}
			return err
		}
	}
	d.registered = true
	return nil
}

// Close unregisters the pins if they were registered and resets the terminal.
func (d *Dev) Close() error {
	d.mu.Lock()
	var err error
	if d.registered {
		for i := len(d.pins) - 1; i >= 0; i-- {
			err = multierr.Append(err, gpioreg.Unregister(d.pins[i].name))
		}
		d.registered = false
	}
	d.mu.Unlock()
	return multierr.Append(err, d.Halt())
}

// Halt implements conn.Resource.
//
// It moves to the next line and resets the colors so the terminal is not
// corrupted.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

func toNRGBA(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// refresh prints the whole row. d.mu must be held.
func (d *Dev) refresh() error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for _, p := range d.pins {
		c := d.low
		if p.l {
			c = d.high
		}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Pin is an emulated output pin. Every level change redraws the row.
type Pin struct {
	d    *Dev
	name string
	num  int
	l    gpio.Level
}

func (p *Pin) String() string {
	return fmt.Sprintf("%s(%d)", p.name, p.num)
}

// Halt implements conn.Resource. The level is kept.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.num
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	if p.Read() {
		return "Out/High"
	}
	return "Out/Low"
}

// In implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	return fmt.Errorf("%w: %s as input", ErrNotSupported, p.name)
}

// Read implements gpio.PinIn. It returns the last level written.
func (p *Pin) Read() gpio.Level {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.l
}

// WaitForEdge implements gpio.PinIn. It always returns false.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return gpio.PullNoChange
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out implements gpio.PinOut. The row is only redrawn when the level changes.
func (p *Pin) Out(l gpio.Level) error {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.l == l {
		return nil
	}
	p.l = l
	return p.d.refresh()
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return fmt.Errorf("%w: %s PWM", ErrNotSupported, p.name)
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
var _ gpio.PinIO = &Pin{}
