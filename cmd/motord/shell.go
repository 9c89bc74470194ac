// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"strings"

	"github.com/abiosoft/ishell"
)

var errUsage = errors.New("wrong number of arguments")

// newShell returns an interactive shell over the motors. Exit, EOF and a
// double Ctrl-C stop the shell instead of the process so the motors are
// shut down cleanly.
func newShell(ms motors) *ishell.Shell {
	shell := ishell.New()
	shell.Println("motor control shell, devices: " + strings.Join(ms.names(), ", "))
	complete := func([]string) []string { return ms.names() }

	shell.AddCmd(&ishell.Cmd{
		Name:      "write",
		Help:      "write <motor> <value>",
		Completer: complete,
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(errUsage)
				return
			}
			v, err := ms.write(c.Args[0], c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(v)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name:      "read",
		Help:      "read <motor>",
		Completer: complete,
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errUsage)
				return
			}
			v, err := ms.read(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(v)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "show every motor",
		Func: func(c *ishell.Context) {
			c.Print(ms.status())
		},
	})
	shell.Interrupt(func(c *ishell.Context, count int, _ string) {
		if count >= 2 {
			c.Stop()
			return
		}
		c.Println("Input Ctrl-c once more to exit")
	})
	shell.EOF(func(c *ishell.Context) {
		c.Stop()
	})
	return shell
}

// shellRunner is the part of ishell.Shell runShell needs.
type shellRunner interface {
	Run()
	Close()
}

// runShell runs s until it exits or ctx is done. s is only closed in the
// latter case.
func runShell(ctx context.Context, s shellRunner) {
	exited := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			s.Close()
		case <-exited:
		}
	}()
	s.Run()
	close(exited)
	<-done
}
