// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, claiming the GPIO pins a driver needs.
package common

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// ErrPinUnavailable is returned by Claim when a pin doesn't exist or is
// already claimed.
var ErrPinUnavailable = errors.New("common: pin unavailable")

var (
	mu      sync.Mutex
	claimed = map[string]bool{}
)

// Pins is a set of claimed pins, in acquisition order.
type Pins []gpio.PinIO

// Claim looks up the named pins in gpioreg and reserves them for the caller.
//
// If any pin is missing or already claimed, the pins claimed so far are
// released in reverse order and the error wraps ErrPinUnavailable.
func Claim(names ...string) (Pins, error) {
	var p Pins
	for _, name := range names {
		pin, err := claim(name)
		if err != nil {
			return nil, multierr.Append(err, p.Release())
		}
		p = append(p, pin)
	}
	return p, nil
}

func claim(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrPinUnavailable, name)
	}
	mu.Lock()
	defer mu.Unlock()
	// Aliases resolve to the real pin, key on its name.
	if claimed[pin.Name()] {
		return nil, fmt.Errorf("%w: %s already claimed", ErrPinUnavailable, name)
	}
	claimed[pin.Name()] = true
	return pin, nil
}

// Release halts the pins and gives them back, last claimed first.
func (p Pins) Release() error {
	var err error
	for i := len(p) - 1; i >= 0; i-- {
		err = multierr.Append(err, p[i].Halt())
		mu.Lock()
		delete(claimed, p[i].Name())
		mu.Unlock()
	}
	return err
}

// Names returns the names of the pins.
func (p Pins) Names() []string {
	n := make([]string, len(p))
	for i := range p {
		n[i] = p[i].Name()
	}
	return n
}
