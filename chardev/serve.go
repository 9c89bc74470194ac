// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package chardev

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// Serve exposes the device over a line oriented byte stream, like a serial
// port.
//
// Every line received is handled as one open, write, read, close cycle. The
// reply is the command read back, followed by "\n". When the device is busy
// the reply is "busy\n" and the line is dropped.
//
// Serve returns nil when rw reaches end of stream, ctx.Err() when ctx is
// done, and an error wrapping ErrFault when receiving fails. Since reads from
// rw block, close rw to stop Serve promptly.
func (d *Device) Serve(ctx context.Context, rw io.ReadWriter) error {
	s := bufio.NewScanner(rw)
	for s.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		reply, err := d.roundTrip(s.Bytes())
		if errors.Is(err, ErrBusy) {
			reply = "busy"
		} else if err != nil {
			return err
		}
		if _, err := io.WriteString(rw, reply+"\n"); err != nil {
			return fmt.Errorf("chardev: %s: reply: %w", d.name, err)
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFault, d.name, err)
	}
	return nil
}

func (d *Device) roundTrip(line []byte) (string, error) {
	f, err := d.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil && err != io.ErrShortWrite {
		return "", err
	}
	// A fresh open always returns the whole value on the first read.
	var buf [24]byte
	n, err := f.Read(buf[:])
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}
