// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stepper drives a four-phase stepper motor in wave drive from
// GPIO outputs.
//
// The driver keeps an absolute step position, starting at 0, and a target
// position. On every step period it moves the position one step toward the
// target and outputs the winding pattern for the resulting phase. Exactly one
// of the four phase outputs is low at any time; the order in which the low
// output cycles sets the direction of rotation.
//
// Command and SetCommand both work on the target, so a character device
// built on a Dev reads back the last target written rather than the
// position reached so far. Use Position for the latter.
//
// The step period is fixed, there is no acceleration. The timer keeps running
// once the target is reached, re-asserting the current phase.
//
// # Wiring
//
// The four outputs are named A1, A2, B1 and B2 after the winding ends they
// switch through the driver stage. The phase outputs can also live on an I/O
// expander or a shift register exposing a gpio.Group, see NewGroup.
package stepper
