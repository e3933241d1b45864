/*
 * HPDisk - Console commands.
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

package parser

import (
	"errors"
	"fmt"
	"log/slog"

	command "github.com/rcornwell/hpdisk/command/command"
	"github.com/rcornwell/hpdisk/emu/master"
)

var cmdList = []cmd{
	{Name: "attach", Min: 2, Process: attach, Complete: optionComplete(command.ValidAttach)},
	{Name: "detach", Min: 2, Process: unitCommand(master.Detach)},
	{Name: "eject", Min: 1, Process: unitCommand(master.Eject)},
	{Name: "fault", Min: 2, Process: inject, Complete: optionComplete(command.ValidFault)},
	{Name: "format", Min: 2, Process: format, Complete: optionComplete(command.ValidFormat)},
	{Name: "load", Min: 1, Process: load},
	{Name: "quit", Min: 4, Process: quit},
	{Name: "reset", Min: 3, Process: reset, Complete: allComplete},
	{Name: "set", Min: 2, Process: set, Complete: optionComplete(command.ValidSet)},
	{Name: "show", Min: 2, Process: show, Complete: allComplete},
	{Name: "status", Min: 2, Process: unitCommand(master.Status)},
}

// Send request and print answer.
func send(core command.Sender, packet master.Packet) error {
	r := core.Send(packet)
	if r.Err != nil {
		return r.Err
	}
	if r.Text != "" {
		fmt.Fprintln(Output, r.Text)
	}
	return nil
}

// Commands that take only a unit address.
func unitCommand(msg master.Msg) func(*cmdLine, command.Sender) (bool, error) {
	return func(line *cmdLine, core command.Sender) (bool, error) {
		slog.Debug("Command " + msg.String())
		devNum, err := line.getAddress()
		if err != nil {
			return false, err
		}
		if err := line.checkEOL(); err != nil {
			return false, err
		}
		return false, send(core, master.NewPacket(msg, devNum))
	}
}

// Handle attach commands.
func attach(line *cmdLine, core command.Sender) (bool, error) {
	slog.Debug("Command Attach")

	devNum, err := line.getAddress()
	if err != nil {
		return false, err
	}

	optlist, err := line.getOptions(command.ValidAttach)
	if err != nil {
		return false, err
	}
	packet := master.NewPacket(master.Attach, devNum)
	for _, opt := range optlist {
		switch opt.Name {
		case "file":
			packet.Name = opt.EqualOpt
		case "ro":
			packet.Flag = true
		}
	}
	if packet.Name == "" {
		return false, errors.New("no file given to attach command")
	}
	return false, send(core, packet)
}

// Insert removable media.
func load(line *cmdLine, core command.Sender) (bool, error) {
	slog.Debug("Command Load")

	devNum, err := line.getAddress()
	if err != nil {
		return false, err
	}
	file, ok := line.parseQuoteString()
	if !ok || file == "" {
		return false, errors.New("no file given to load command")
	}
	if err := line.checkEOL(); err != nil {
		return false, err
	}
	packet := master.NewPacket(master.Load, devNum)
	packet.Name = file
	return false, send(core, packet)
}

var setMsg = map[string]master.Msg{
	"online":  master.SetOnline,
	"offline": master.SetOffline,
	"ro":      master.SetReadOnly,
	"rw":      master.SetReadWrite,
}

// Handle set commands.
func set(line *cmdLine, core command.Sender) (bool, error) {
	slog.Debug("Command Set")

	devNum, err := line.getAddress()
	if err != nil {
		return false, err
	}

	optlist, err := line.getOptions(command.ValidSet)
	if err != nil {
		return false, err
	}
	if len(optlist) == 0 {
		return false, errors.New("no options give to set command")
	}
	for _, opt := range optlist {
		if err := send(core, master.NewPacket(setMsg[opt.Name], devNum)); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Latch a fault on unit.
func inject(line *cmdLine, core command.Sender) (bool, error) {
	slog.Debug("Command Fault")

	devNum, err := line.getAddress()
	if err != nil {
		return false, err
	}

	optlist, err := line.getOptions(command.ValidFault)
	if err != nil {
		return false, err
	}
	if len(optlist) != 1 {
		return false, errors.New("fault command takes one condition")
	}
	packet := master.NewPacket(master.Inject, devNum)
	packet.Name = optlist[0].EqualOpt
	return false, send(core, packet)
}

// Fill media of unit.
func format(line *cmdLine, core command.Sender) (bool, error) {
	slog.Debug("Command Format")

	devNum, err := line.getAddress()
	if err != nil {
		return false, err
	}

	optlist, err := line.getOptions(command.ValidFormat)
	if err != nil {
		return false, err
	}
	packet := master.NewPacket(master.Format, devNum)
	for _, opt := range optlist {
		if opt.Value > 0xff {
			return false, errors.New("fill must be a byte")
		}
		packet.Fill = byte(opt.Value)
	}
	return false, send(core, packet)
}

// Handle commands that quit emulator.
func quit(_ *cmdLine, _ command.Sender) (bool, error) {
	slog.Debug("Command Quit")
	return true, nil
}

// Process the show command.
func show(line *cmdLine, core command.Sender) (bool, error) {
	slog.Debug("Command Show")
	devNum, err := line.getAddressOrAll()
	if err != nil {
		return false, err
	}
	return false, send(core, master.NewPacket(master.Show, devNum))
}

// Reset a device.
func reset(line *cmdLine, core command.Sender) (bool, error) {
	slog.Debug("Command Reset")
	devNum, err := line.getAddressOrAll()
	if err != nil {
		return false, err
	}
	return false, send(core, master.NewPacket(master.Reset, devNum))
}
