// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motorconf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c.DC.Pins(), []string{"GPIO4", "GPIO17", "GPIO18"}); diff != "" {
		t.Errorf("dc pins (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(c.Stepper.Pins(), []string{"GPIO4", "GPIO17", "GPIO22", "GPIO23"}); diff != "" {
		t.Errorf("stepper pins (-got +want):\n%s", diff)
	}
	if !c.DC.Enabled || c.Stepper.Enabled {
		t.Error("the reference wiring enables only the dc motor")
	}
	o := c.DC.Opts()
	if o.Period != 100 || o.Unit != time.Millisecond || o.PowerActive != gpio.Low {
		t.Errorf("dc opts %+v", o)
	}
	s := c.Stepper.Opts()
	if s.StepPeriod != 20 || s.Unit != time.Millisecond {
		t.Errorf("stepper opts %+v", s)
	}
}

const testYaml = `
log_level: debug
dc:
  power: GPIO5
  power_active: high
  period: 50
  unit: 2ms
stepper:
  enabled: true
  a1: GPIO6
  a2: GPIO13
  step_period: 5
  unit: 1s
`

func TestParse(t *testing.T) {
	c := Default()
	if err := Parse([]byte(testYaml), &c); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.LogLevel = "debug"
	want.DC.Power = "GPIO5"
	want.DC.PowerActive = "high"
	want.DC.Period = 50
	want.DC.Unit = 2 * time.Millisecond
	want.Stepper.Enabled = true
	want.Stepper.A1 = "GPIO6"
	want.Stepper.A2 = "GPIO13"
	want.Stepper.StepPeriod = 5
	want.Stepper.Unit = time.Second
	if diff := cmp.Diff(c, want); diff != "" {
		t.Errorf("config (-got +want):\n%s", diff)
	}
	if c.DC.Opts().PowerActive != gpio.High {
		t.Error("power_active: high not applied")
	}
	if c.Level() != logrus.DebugLevel {
		t.Errorf("Level() = %s", c.Level())
	}
}

func TestParseUnknownKey(t *testing.T) {
	c := Default()
	if err := Parse([]byte("dc:\n  pwoer: GPIO5\n"), &c); err == nil {
		t.Error("misspelled key accepted")
	}
}

func TestValidate(t *testing.T) {
	for name, mut := range map[string]func(c *Config){
		"dc period":     func(c *Config) { c.DC.Period = 0 },
		"dc unit":       func(c *Config) { c.DC.Unit = -time.Millisecond },
		"dc pin":        func(c *Config) { c.DC.Reverse = "" },
		"dc name":       func(c *Config) { c.DC.Name = "" },
		"dc level":      func(c *Config) { c.DC.PowerActive = "sideways" },
		"stepper pin":   func(c *Config) { c.Stepper.Enabled = true; c.Stepper.B2 = "" },
		"stepper speed": func(c *Config) { c.Stepper.Enabled = true; c.Stepper.StepPeriod = -1 },
		"log level":     func(c *Config) { c.LogLevel = "loud" },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mut(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
	// A disabled driver isn't checked.
	c := Default()
	c.Stepper.A1 = ""
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v for a disabled stepper", err)
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "motors.yaml")
	if err := os.WriteFile(p, []byte(testYaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOTORS_LOG_LEVEL", "trace")
	t.Setenv("MOTORS_SIM", "true")
	t.Setenv("MOTORS_STEPPER_SERIAL", "/dev/ttyUSB1")
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.LogLevel != "trace" || !c.Sim || c.Stepper.Serial != "/dev/ttyUSB1" || c.DC.Serial != "" {
		t.Errorf("environment not applied: %+v", c)
	}
	if c.DC.Power != "GPIO5" {
		t.Errorf("file not applied: %+v", c.DC)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() = %v, want ErrNotExist", err)
	}
}

func TestLoadNoFile(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.DC.Name != "engine" {
		t.Errorf("Load(\"\") = %+v", c)
	}
}
