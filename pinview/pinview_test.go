// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pinview

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

func row(levels ...gpio.Level) string {
	s := "\r\033[0m"
	for _, l := range levels {
		c := DefaultOpts.Low
		if l {
			c = DefaultOpts.High
		}
		s += ansi256.Default.Block(toNRGBA(c))
	}
	return s + "\033[0m "
}

func TestOut(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{Writer: &buf}, "PWR", "DIR1", "DIR2")
	if s := d.String(); s != "PinView{PWR,DIR1,DIR2}" {
		t.Errorf("String() = %q", s)
	}
	p := d.Pins()
	if err := p[1].Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(buf.String(), row(gpio.Low, gpio.High, gpio.Low)); diff != "" {
		t.Errorf("row (-got +want):\n%s", diff)
	}
	buf.Reset()
	// Same level, nothing redrawn.
	if err := p[1].Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("redrawn without a change: %q", buf.String())
	}
	if err := p[0].Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(buf.String(), row(gpio.High, gpio.High, gpio.Low)); diff != "" {
		t.Errorf("row (-got +want):\n%s", diff)
	}
	if p[0].Read() != gpio.High || p[2].Read() != gpio.Low {
		t.Error("Read() doesn't return the last level written")
	}
	if f := p[0].Function(); f != "Out/High" {
		t.Errorf("Function() = %q", f)
	}
	if s := p[2].String(); s != "DIR2(2)" {
		t.Errorf("String() = %q", s)
	}
}

func TestCustomColors(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{Writer: &buf, High: color.Gray{Y: 200}, Low: color.RGBA{B: 90, A: 255}}, "A", "B")
	if err := d.Pins()[0].Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	want := "\r\033[0m" +
		ansi256.Default.Block(color.NRGBA{200, 200, 200, 255}) +
		ansi256.Default.Block(color.NRGBA{0, 0, 90, 255}) +
		"\033[0m "
	if diff := cmp.Diff(buf.String(), want); diff != "" {
		t.Errorf("row (-got +want):\n%s", diff)
	}
}

func TestNotSupported(t *testing.T) {
	d := New(&Opts{Writer: &bytes.Buffer{}}, "X")
	p := d.Pins()[0]
	if err := p.In(gpio.PullDown, gpio.NoEdge); !errors.Is(err, ErrNotSupported) {
		t.Errorf("In() = %v", err)
	}
	if err := p.PWM(gpio.DutyHalf, 0); !errors.Is(err, ErrNotSupported) {
		t.Errorf("PWM() = %v", err)
	}
}

func TestRegister(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{Writer: &buf}, "VIEW_A", "VIEW_B")
	if err := d.Register(); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(); !errors.Is(err, ErrRegistered) {
		t.Errorf("second Register() = %v", err)
	}
	if got := gpioreg.ByName("VIEW_B"); got != gpio.PinIO(d.Pins()[1]) {
		t.Fatalf("gpioreg.ByName() = %v", got)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if gpioreg.ByName("VIEW_A") != nil {
		t.Error("pin still registered after Close()")
	}
	if buf.String() != "\n\033[0m" {
		t.Errorf("Close() wrote %q", buf.String())
	}
}

func TestRegisterRollback(t *testing.T) {
	taken := New(&Opts{Writer: &bytes.Buffer{}}, "VIEW_TAKEN")
	if err := taken.Register(); err != nil {
		t.Fatal(err)
	}
	defer taken.Close()
	d := New(&Opts{Writer: &bytes.Buffer{}}, "VIEW_FREE", "VIEW_TAKEN")
	if err := d.Register(); err == nil {
		t.Fatal("Register() succeeded with a duplicate name")
	}
	if gpioreg.ByName("VIEW_FREE") != nil {
		t.Error("VIEW_FREE left registered after a failed Register()")
	}
}
