// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dcmotor drives a brushed DC motor through an H-bridge using
// software PWM on plain GPIO outputs.
//
// Three output pins are used: a power (enable) line that is toggled to
// produce the duty cycle, and two direction lines selecting the bridge
// orientation.
//
// The power command is a signed percentage in [-100, 100]. The sign selects
// the direction, 0 brakes, and the magnitude is the duty cycle. The duty
// cycle is produced by a self re-arming one-shot timer whose delay
// alternates between the on and off parts of the period.
//
// # Wiring
//
// The reference wiring uses an inverted enable line: High brakes the motor
// and Low drives it. Set Opts.PowerActive to gpio.High for a bridge with a
// non-inverted enable input.
package dcmotor
