// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/motors/common"
	"github.com/GermanBionicSystems/motors/motorconf"
	"github.com/GermanBionicSystems/motors/pinview"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testConfig() motorconf.Config {
	c := motorconf.Default()
	c.DC.Power, c.DC.Forward, c.DC.Reverse = "T_PWR", "T_FWD", "T_REV"
	c.Stepper.Enabled = true
	c.Stepper.A1, c.Stepper.A2, c.Stepper.B1, c.Stepper.B2 = "T_A1", "T_A2", "T_B1", "T_B2"
	return c
}

func registerView(t *testing.T, cfg *motorconf.Config) *pinview.Dev {
	t.Helper()
	v := pinview.New(&pinview.Opts{Writer: &bytes.Buffer{}}, simPins(cfg)...)
	if err := v.Register(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func TestSimPins(t *testing.T) {
	c := motorconf.Default()
	c.Stepper.Enabled = true
	want := []string{"GPIO4", "GPIO17", "GPIO18", "GPIO22", "GPIO23"}
	if diff := cmp.Diff(simPins(&c), want); diff != "" {
		t.Errorf("simPins() (-got +want):\n%s", diff)
	}
}

func TestMotors(t *testing.T) {
	cfg := testConfig()
	view := registerView(t, &cfg)
	ms, err := openMotors(&cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ms.names(), []string{"engine", "stepper"}); diff != "" {
		t.Errorf("names() (-got +want):\n%s", diff)
	}
	if v, err := ms.write("engine", "-40"); err != nil || v != "-40" {
		t.Errorf("write() = %q, %v", v, err)
	}
	if v, err := ms.read("engine"); err != nil || v != "-40" {
		t.Errorf("read() = %q, %v", v, err)
	}
	if v, err := ms.write("stepper", "12"); err != nil || v != "12" {
		t.Errorf("write() = %q, %v", v, err)
	}
	if _, err := ms.read("nope"); !errors.Is(err, errUnknownMotor) {
		t.Errorf("read() of an unknown motor = %v", err)
	}
	if s := ms.status(); s == "" {
		t.Error("empty status")
	}
	if err := ms.close(); err != nil {
		t.Fatal(err)
	}
	// Braked and parked.
	p := view.Pins()
	if p[0].Read() != gpio.High {
		t.Error("dc power pin not braked after close")
	}
	for _, pin := range p[3:] {
		if pin.Read() != gpio.Low {
			t.Errorf("%s not released after close", pin)
		}
	}
	// Pins were given back.
	pins, err := common.Claim(cfg.DC.Pins()...)
	if err != nil {
		t.Fatal(err)
	}
	pins.Release()
}

func TestMotorsOverlap(t *testing.T) {
	cfg := testConfig()
	cfg.Stepper.A1 = cfg.DC.Power
	registerView(t, &cfg)
	if _, err := openMotors(&cfg, quietLogger()); !errors.Is(err, common.ErrPinUnavailable) {
		t.Fatalf("openMotors() = %v, want ErrPinUnavailable", err)
	}
	// The dc motor was rolled back.
	pins, err := common.Claim(cfg.DC.Pins()...)
	if err != nil {
		t.Fatalf("dc pins still claimed: %v", err)
	}
	pins.Release()
}

func TestMotorsWriteBusy(t *testing.T) {
	cfg := testConfig()
	cfg.Stepper.Enabled = false
	registerView(t, &cfg)
	ms, err := openMotors(&cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer ms.close()
	f, err := ms[0].dev.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := ms.write("engine", "1"); err == nil {
		t.Error("write() through a busy device succeeded")
	}
}
