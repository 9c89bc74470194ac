// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motors is a container for motor drivers.
//
// dcmotor drives a brushed DC motor through an H-bridge with software PWM
// and stepper drives a two-coil stepper one step per period. Both are paced
// by oneshot timers and expose a single integer command that chardev turns
// into a read/write device. cmd/motord wires them to pins, a serial port and
// a shell.
package motors
