// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3"

	"github.com/GermanBionicSystems/motors/chardev"
	"github.com/GermanBionicSystems/motors/common"
	"github.com/GermanBionicSystems/motors/dcmotor"
	"github.com/GermanBionicSystems/motors/motorconf"
	"github.com/GermanBionicSystems/motors/stepper"
)

var errUnknownMotor = errors.New("unknown motor")

// driver is what a motor package returns.
type driver interface {
	conn.Resource
	chardev.Target
}

// motor is a driver exposed as a character device.
type motor struct {
	dev    *chardev.Device
	drv    driver
	pins   common.Pins
	serial string
	baud   int
	port   io.Closer
}

type motors []*motor

// openMotors claims the pins of every enabled driver and starts it. On
// failure, what was started is shut down.
func openMotors(cfg *motorconf.Config, log *logrus.Entry) (motors, error) {
	var ms motors
	if cfg.DC.Enabled {
		m, err := openDC(&cfg.DC, log)
		if err != nil {
			return nil, multierr.Append(err, ms.close())
		}
		ms = append(ms, m)
	}
	if cfg.Stepper.Enabled {
		m, err := openStepper(&cfg.Stepper, log)
		if err != nil {
			return nil, multierr.Append(err, ms.close())
		}
		ms = append(ms, m)
	}
	return ms, nil
}

func openDC(c *motorconf.DC, log *logrus.Entry) (*motor, error) {
	pins, err := common.Claim(c.Pins()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	opts := c.Opts()
	opts.Logger = log.WithField("motor", c.Name)
	d, err := dcmotor.New(pins[0], pins[1], pins[2], &opts)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("%s: %w", c.Name, err), pins.Release())
	}
	log.WithFields(logrus.Fields{"motor": c.Name, "pins": pins.Names()}).Info("dc motor ready")
	return &motor{dev: chardev.New(c.Name, d), drv: d, pins: pins, serial: c.Serial, baud: c.Baud}, nil
}

func openStepper(c *motorconf.Stepper, log *logrus.Entry) (*motor, error) {
	pins, err := common.Claim(c.Pins()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	opts := c.Opts()
	opts.Logger = log.WithField("motor", c.Name)
	d, err := stepper.New(pins[0], pins[1], pins[2], pins[3], &opts)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("%s: %w", c.Name, err), pins.Release())
	}
	log.WithFields(logrus.Fields{"motor": c.Name, "pins": pins.Names()}).Info("stepper ready")
	return &motor{dev: chardev.New(c.Name, d), drv: d, pins: pins, serial: c.Serial, baud: c.Baud}, nil
}

// serve opens the serial port of every motor that has one and answers
// commands on it until ctx is canceled.
func (ms motors) serve(ctx context.Context, log *logrus.Entry) error {
	for _, m := range ms {
		if m.serial == "" {
			continue
		}
		p, err := serial.OpenPort(&serial.Config{Name: m.serial, Baud: m.baud})
		if err != nil {
			return fmt.Errorf("%s: %w", m.dev.Name(), err)
		}
		m.port = p
		l := log.WithFields(logrus.Fields{"motor": m.dev.Name(), "port": m.serial})
		l.Info("serving")
		go func(m *motor) {
			if err := m.dev.Serve(ctx, p); err != nil && ctx.Err() == nil {
				l.WithError(err).Error("serial bridge stopped")
			}
		}(m)
	}
	return nil
}

// close stops the motors and gives the pins back, last opened first.
func (ms motors) close() error {
	var err error
	for i := len(ms) - 1; i >= 0; i-- {
		m := ms[i]
		if m.port != nil {
			err = multierr.Append(err, m.port.Close())
		}
		err = multierr.Append(err, m.drv.Halt())
		err = multierr.Append(err, m.pins.Release())
	}
	return err
}

func (ms motors) find(name string) (*motor, error) {
	for _, m := range ms {
		if m.dev.Name() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w %q", errUnknownMotor, name)
}

func (ms motors) names() []string {
	n := make([]string, len(ms))
	for i, m := range ms {
		n[i] = m.dev.Name()
	}
	return n
}

// write sends value through the device of the named motor and returns what
// the device reads back.
func (ms motors) write(name, value string) (string, error) {
	m, err := ms.find(name)
	if err != nil {
		return "", err
	}
	f, err := m.dev.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.WriteString(f, value); err != nil && err != io.ErrShortWrite {
		return "", err
	}
	b, err := io.ReadAll(f)
	return string(b), err
}

func (ms motors) read(name string) (string, error) {
	m, err := ms.find(name)
	if err != nil {
		return "", err
	}
	f, err := m.dev.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	return string(b), err
}

func (ms motors) status() string {
	var b strings.Builder
	for _, m := range ms {
		fmt.Fprintf(&b, "%s: %s\n", m.dev.Name(), m.drv)
	}
	return b.String()
}
