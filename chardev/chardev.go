// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package chardev exposes a motor command as a single-open byte stream, the
// way a character device node would.
//
// Writing a decimal integer sets the command. Reading right after Open
// returns the current command as decimal text once, then end of stream until
// the device is opened again.
package chardev

import (
	"errors"
	"io"
	"strconv"
	"sync"
)

// MaxWrite is the number of bytes of a single write that are parsed. The
// rest is dropped.
const MaxWrite = 9

var (
	// ErrBusy is returned by Open while the device is already open.
	ErrBusy = errors.New("chardev: device or resource busy")

	// ErrClosed is returned when using a File after Close.
	ErrClosed = errors.New("chardev: file already closed")

	// ErrFault is returned when the bytes of a command can't be received.
	// Nothing is committed in that case.
	ErrFault = errors.New("chardev: bad address")
)

// Target stores the command of a motor driver.
type Target interface {
	// Command returns the current command.
	Command() int64
	// SetCommand stores a new command. The target applies its own range
	// policy.
	SetCommand(v int64)
}

// Device is a single-open command stream on top of a Target.
type Device struct {
	name string
	t    Target

	mu   sync.Mutex
	open bool
}

// New returns a closed Device.
func New(name string, t Target) *Device {
	return &Device{name: name, t: t}
}

// Open opens the device for reading and writing.
//
// Only one File can be open at a time, ErrBusy is returned otherwise. The
// caller may retry later.
func (d *Device) Open() (*File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil, ErrBusy
	}
	d.open = true
	return &File{d: d, firstRead: true}, nil
}

// Name returns the name of the device.
func (d *Device) Name() string {
	return d.name
}

func (d *Device) String() string {
	return d.name
}

func (d *Device) release() {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
}

// File is an open Device. It implements io.ReadWriteCloser.
type File struct {
	d *Device

	mu        sync.Mutex
	firstRead bool
	closed    bool
}

// Write parses a decimal integer from at most the first MaxWrite bytes of p
// and stores it as the new command.
//
// Parsing follows scanf("%d"): leading white space is skipped, a sign is
// optional and parsing stops at the first non digit. Input without any
// digit leaves the command unchanged and is not an error.
//
// If p is longer than MaxWrite, Write returns MaxWrite and io.ErrShortWrite;
// the command was still applied.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	n := len(p)
	if n > MaxWrite {
		n = MaxWrite
	}
	if v, ok := ScanInt(p[:n]); ok {
		f.d.t.SetCommand(v)
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Read returns the current command as decimal text on the first call after
// Open, and 0, io.EOF afterward.
//
// If p can't hold the whole number, Read returns io.ErrShortBuffer and the
// value can still be read with a larger buffer.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	if !f.firstRead {
		return 0, io.EOF
	}
	s := strconv.FormatInt(f.d.t.Command(), 10)
	if len(p) < len(s) {
		return 0, io.ErrShortBuffer
	}
	f.firstRead = false
	return copy(p, s), nil
}

// Close releases the device so it can be opened again.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	f.d.release()
	return nil
}

// ScanInt parses a decimal integer like scanf("%d"). ok is false when no
// digit was found.
func ScanInt(b []byte) (v int64, ok bool) {
	i := 0
	for i < len(b) && isSpace(b[i]) {
		i++
	}
	neg := false
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		neg = b[i] == '-'
		i++
	}
	start := i
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		v = v*10 + int64(b[i]-'0')
	}
	if i == start {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

var _ io.ReadWriteCloser = &File{}
