// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motorconf loads the wiring and timing of the motors from a YAML
// file, with a few settings overridable from the environment.
//
// A file only needs the keys that differ from Default:
//
//	dc:
//	  power: GPIO5
//	  power_active: high
//	stepper:
//	  enabled: true
//	  a1: GPIO6
//	  a2: GPIO13
package motorconf

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/motors/dcmotor"
	"github.com/GermanBionicSystems/motors/stepper"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("motorconf: invalid configuration")

// Config describes the daemon.
type Config struct {
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" env:"MOTORS_LOG_LEVEL"`
	// Sim replaces the header pins with terminal pins.
	Sim     bool    `yaml:"sim" env:"MOTORS_SIM"`
	DC      DC      `yaml:"dc"`
	Stepper Stepper `yaml:"stepper"`
}

// DC is the wiring of the DC motor bridge.
type DC struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
	Power   string `yaml:"power"`
	Forward string `yaml:"forward"`
	Reverse string `yaml:"reverse"`
	// Period is the PWM cycle length in Unit.
	Period int           `yaml:"period"`
	Unit   time.Duration `yaml:"unit"`
	// PowerActive is "low" or "high".
	PowerActive string `yaml:"power_active"`
	// Serial is the port the device is served on, if any.
	Serial string `yaml:"serial" env:"MOTORS_DC_SERIAL"`
	Baud   int    `yaml:"baud"`
}

// Stepper is the wiring of the stepper coils.
type Stepper struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
	A1      string `yaml:"a1"`
	A2      string `yaml:"a2"`
	B1      string `yaml:"b1"`
	B2      string `yaml:"b2"`
	// StepPeriod is the time between steps in Unit.
	StepPeriod int           `yaml:"step_period"`
	Unit       time.Duration `yaml:"unit"`
	Serial     string        `yaml:"serial" env:"MOTORS_STEPPER_SERIAL"`
	Baud       int           `yaml:"baud"`
}

// Default returns the reference wiring.
//
// The two drivers share GPIO4 and GPIO17, so only the DC motor is enabled.
func Default() Config {
	return Config{
		LogLevel: "info",
		DC: DC{
			Enabled:     true,
			Name:        "engine",
			Power:       "GPIO4",
			Forward:     "GPIO17",
			Reverse:     "GPIO18",
			Period:      dcmotor.DefaultOpts.Period,
			Unit:        dcmotor.DefaultOpts.Unit,
			PowerActive: "low",
			Baud:        9600,
		},
		Stepper: Stepper{
			Name:       "stepper",
			A1:         "GPIO4",
			A2:         "GPIO17",
			B1:         "GPIO22",
			B2:         "GPIO23",
			StepPeriod: stepper.DefaultOpts.StepPeriod,
			Unit:       stepper.DefaultOpts.Unit,
			Baud:       9600,
		},
	}
}

// Load reads the YAML file at path over Default, then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("motorconf: %w", err)
		}
		if err := Parse(b, &c); err != nil {
			return c, err
		}
	}
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("motorconf: %w", err)
	}
	return c, c.Validate()
}

// Parse decodes YAML into c. Unknown keys are rejected.
func Parse(b []byte, c *Config) error {
	if err := yaml.UnmarshalStrict(b, c); err != nil {
		return fmt.Errorf("motorconf: %w", err)
	}
	return nil
}

// Validate checks the enabled drivers.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.DC.Enabled {
		if err := c.DC.validate(); err != nil {
			return err
		}
	}
	if c.Stepper.Enabled {
		if err := c.Stepper.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Level returns the parsed LogLevel, Info if invalid.
func (c *Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

func (d *DC) validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: dc: empty name", ErrInvalid)
	}
	if err := pinNames("dc", d.Power, d.Forward, d.Reverse); err != nil {
		return err
	}
	if d.Period <= 0 || d.Unit <= 0 {
		return fmt.Errorf("%w: dc: period %d x %s", ErrInvalid, d.Period, d.Unit)
	}
	if _, err := parseLevel(d.PowerActive); err != nil {
		return err
	}
	return nil
}

func (s *Stepper) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: stepper: empty name", ErrInvalid)
	}
	if err := pinNames("stepper", s.A1, s.A2, s.B1, s.B2); err != nil {
		return err
	}
	if s.StepPeriod <= 0 || s.Unit <= 0 {
		return fmt.Errorf("%w: stepper: step period %d x %s", ErrInvalid, s.StepPeriod, s.Unit)
	}
	return nil
}

func pinNames(dev string, names ...string) error {
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%w: %s: empty pin name", ErrInvalid, dev)
		}
	}
	return nil
}

func parseLevel(s string) (gpio.Level, error) {
	switch strings.ToLower(s) {
	case "low", "":
		return gpio.Low, nil
	case "high":
		return gpio.High, nil
	}
	return gpio.Low, fmt.Errorf("%w: power_active %q", ErrInvalid, s)
}

// Pins returns the pin names in acquisition order: power, forward, reverse.
func (d *DC) Pins() []string {
	return []string{d.Power, d.Forward, d.Reverse}
}

// Opts converts the timing to driver options.
func (d *DC) Opts() dcmotor.Opts {
	o := dcmotor.DefaultOpts
	o.Period = d.Period
	o.Unit = d.Unit
	if l, err := parseLevel(d.PowerActive); err == nil {
		o.PowerActive = l
	}
	return o
}

// Pins returns the pin names in acquisition order: A1, A2, B1, B2.
func (s *Stepper) Pins() []string {
	return []string{s.A1, s.A2, s.B1, s.B2}
}

// Opts converts the timing to driver options.
func (s *Stepper) Opts() stepper.Opts {
	o := stepper.DefaultOpts
	o.StepPeriod = s.StepPeriod
	o.Unit = s.Unit
	return o
}
