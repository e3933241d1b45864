/*
 * HPDisk - AMIGO configuration.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package amigo

import (
	"fmt"

	config "github.com/rcornwell/hpdisk/config/configparser"
	"github.com/rcornwell/hpdisk/config/driveinfo"
	dev "github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
)

const defaultModel = "9121"

// register a device on initialize.
func init() {
	config.RegisterModel("AMIGO", config.TypeModel, create)
	config.RegisterOption("AMIGOFAULT", setPolicy)
}

// Create an AMIGO unit. Units at one address share a controller.
func create(sys config.System, devNum uint16, _ string, options []config.Option) error {
	addr, number := dev.Split(devNum)
	s, err := driveinfo.Configure(dev.AMIGO, defaultModel, devNum, options)
	if err != nil {
		return fmt.Errorf("unable to create AMIGO at %d.%d: %w", addr, number, err)
	}

	drive, ok := sys.Device(addr).(*Drive)
	if !ok {
		if d := sys.Device(addr); d != nil {
			return fmt.Errorf("unable to create AMIGO at %d.%d: address used by %s", addr, number, d.Family())
		}
		drive = New(addr, s.PPR, s.Unit.ID, sys.Registry(), sys.Faults())
		if err := sys.AddDevice(drive); err != nil {
			return fmt.Errorf("unable to create AMIGO at %d.%d: %w", addr, number, err)
		}
	}
	if number == 0 {
		drive.SetID(s.Unit.ID)
		drive.SetPPR(s.PPR)
	}

	if err := s.Install(sys.Registry()); err != nil {
		return fmt.Errorf("unable to create AMIGO at %d.%d: %w", addr, number, err)
	}
	return nil
}

// Set AMIGO fault clearing policy.
func setPolicy(sys config.System, _ uint16, value string, _ []config.Option) error {
	policy, err := fault.ParsePolicy(value)
	if err != nil {
		return err
	}
	sys.Faults().SetPolicy(dev.AMIGO, policy)
	return nil
}
