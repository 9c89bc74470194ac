// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// motord drives the motors described by a configuration file and exposes
// each one as a character device, over a serial port and an interactive
// shell.
//
// With -sim the header pins are replaced by pins drawn on the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/motors/motorconf"
	"github.com/GermanBionicSystems/motors/pinview"
)

func mainImpl() error {
	config := flag.String("config", "", "YAML configuration file")
	sim := flag.Bool("sim", false, "draw the pins on the terminal instead of driving the header")
	useShell := flag.Bool("shell", true, "run the interactive shell")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	cfg, err := motorconf.Load(*config)
	if err != nil {
		return err
	}
	if *sim {
		cfg.Sim = true
	}
	logrus.SetLevel(cfg.Level())
	log := logrus.WithField("cmd", "motord")

	if cfg.Sim {
		view := pinview.New(&pinview.Opts{}, simPins(&cfg)...)
		if err := view.Register(); err != nil {
			return err
		}
		defer view.Close()
		log.WithField("pins", view.String()).Info("simulating")
	} else if _, err := host.Init(); err != nil {
		return err
	}

	ms, err := openMotors(&cfg, log)
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		log.Warn("no motor enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := ms.serve(ctx, log); err != nil {
		stop()
		return multierr.Append(err, ms.close())
	}

	if *useShell {
		runShell(ctx, newShell(ms))
		stop()
	} else {
		<-ctx.Done()
	}
	log.Info("shutting down")
	return ms.close()
}

// simPins returns the pin names of the enabled drivers, once each.
func simPins(cfg *motorconf.Config) []string {
	var names []string
	seen := map[string]bool{}
	add := func(pins []string) {
		for _, n := range pins {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	if cfg.DC.Enabled {
		add(cfg.DC.Pins())
	}
	if cfg.Stepper.Enabled {
		add(cfg.Stepper.Pins())
	}
	return names
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "motord: %s.\n", err)
		os.Exit(1)
	}
}
