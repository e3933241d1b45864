/*
 * HPDisk - AMIGO disk controller.
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

/*
   AMIGO is the protocol of the older HP-IB floppy and small fixed disks.
   A command is one message on secondary 0x68, 0x69, 0x6A or 0x6C. Data
   moves one sector per execute phase on 0x60 and the drive answers a
   serial DSJ byte on 0x70. Status and address replies are read back on
   talk 0x68.
*/

package amigo

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcornwell/hpdisk/emu/bus"
	"github.com/rcornwell/hpdisk/emu/decoder"
	dev "github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
	"github.com/rcornwell/hpdisk/util/debug"
	"github.com/rcornwell/hpdisk/util/hex"
)

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
	debugDetail
	debugStatus
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"DATA":   debugData,
	"DETAIL": debugDetail,
	"STATUS": debugStatus,
}

const (
	maxMessage = 16 // Longest AMIGO command.

	dsjNormal  = 0
	dsjError   = 1
	dsjPowerOn = 2

	currentUnit = 15 // Unit byte that keeps selected unit.
)

// Bus phase state of drive.
type State uint8

const (
	Idle          State = iota // Waiting for command.
	Addressed                  // Moving command bytes.
	CommandParsed              // Execute phase pending.
	Executing                  // Moving a sector.
	Responding                 // Status or address reply pending.
)

var stateNames = [...]string{"idle", "addressed", "parsed", "executing", "responding"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

type handler func(cmd decoder.Command, t bus.Transport, tr *bus.Transaction) error

// AMIGO controller on one bus address.
type Drive struct {
	addr     uint8                  // Primary bus address.
	ppr      uint8                  // Parallel poll response bit.
	id       uint16                 // Identify bytes.
	units    *registry.Registry     // Units of system.
	faults   *fault.Model           // Fault latches.
	table    *decoder.Table         // Opcode table.
	handlers map[decoder.Op]handler // Handler per operation.
	state    State                  // Current bus phase.
	exec     *decoder.Command       // Transfer repeated each execute phase.
	reply    []byte                 // Status or address waiting for talk 0x68.
	unit     uint8                  // Selected unit.
	powerOn  bool                   // No clear or status since power on.
	debugMsk int                    // Debug option mask.
}

// Create AMIGO controller at bus address.
func New(addr uint8, ppr uint8, id uint16, units *registry.Registry, faults *fault.Model) *Drive {
	device := &Drive{
		addr:    addr,
		ppr:     ppr & 7,
		id:      id,
		units:   units,
		faults:  faults,
		table:   decoder.AMIGO(),
		powerOn: true,
	}
	device.handlers = map[decoder.Op]handler{
		decoder.OpColdLoad:        device.readSector,
		decoder.OpSeek:            device.seekCmd,
		decoder.OpStatus:          device.statusCmd,
		decoder.OpUnbufferedRead:  device.readSector,
		decoder.OpBufferedRead:    device.readSector,
		decoder.OpVerify:          device.verifyCmd,
		decoder.OpUnbufferedWrite: device.writeSector,
		decoder.OpBufferedWrite:   device.writeSector,
		decoder.OpInitialize:      device.writeSector,
		decoder.OpLogicalAddress:  device.addressCmd,
		decoder.OpEnd:             device.accept,
		decoder.OpFormat:          device.formatCmd,
		decoder.OpDoorLock:        device.doorLock,
		decoder.OpDoorUnlock:      device.doorUnlock,
	}
	return device
}

// Return bus address.
func (device *Drive) Address() uint8 {
	return device.addr
}

func (device *Drive) Family() dev.Family {
	return dev.AMIGO
}

// Current bus phase.
func (device *Drive) State() State {
	return device.state
}

// Selected unit.
func (device *Drive) Unit() uint8 {
	return device.unit
}

// Set identify bytes.
func (device *Drive) SetID(id uint16) {
	device.id = id
}

// Set parallel poll response bit.
func (device *Drive) SetPPR(ppr uint8) {
	device.ppr = ppr & 7
}

// Parallel poll response bit.
func (device *Drive) PPR() uint8 {
	return device.ppr
}

func (device *Drive) faultID(unit uint8) fault.UnitID {
	return fault.UnitID{Family: dev.AMIGO, Bus: device.addr, Unit: unit}
}

// Select unit, 15 keeps current one.
func (device *Drive) selectUnit(unit uint8) uint8 {
	if unit != currentUnit {
		device.switchUnit(unit & 0xf)
	}
	return device.unit
}

// Make unit current. The image of the unit left behind is closed.
func (device *Drive) switchUnit(unit uint8) {
	if unit == device.unit {
		return
	}
	if u, err := device.units.Lookup(device.addr, device.unit); err == nil {
		if err := u.Close(); err != nil {
			slog.Warn("Closing image failed", "unit", u.Name(), "error", err.Error())
		}
	}
	device.unit = unit
}

func isBusError(err error) bool {
	return errors.Is(err, bus.ErrAborted) || errors.Is(err, bus.ErrTimeout) ||
		errors.Is(err, bus.ErrClosed) || errors.Is(err, bus.ErrEndOfTransaction)
}

// Service one bus transaction.
func (device *Drive) Transaction(t bus.Transport, tr *bus.Transaction) error {
	if p, ok := t.(bus.Poller); ok {
		p.DisablePPR(device.ppr)
		defer p.EnablePPR(device.ppr)
	}

	switch tr.Kind {
	case bus.Identify:
		debug.DebugDevf(device.addr, device.debugMsk, debugCmd, "identify %04x", device.id)
		return device.busError(bus.Send(t, tr, []byte{byte(device.id >> 8), byte(device.id)}))
	case bus.SelectedClear, bus.UniversalClear:
		debug.DebugDevf(device.addr, device.debugMsk, debugCmd, "%s", tr.Kind)
		device.Clear(currentUnit)
		return nil
	case bus.Reset:
		device.state = Idle
		device.exec = nil
		device.reply = nil
		return nil
	}

	phase, err := device.table.Phase(tr.Secondary, tr.Dir)
	if err != nil {
		device.fail(device.unit, err, 0)
		device.state = Idle
		if tr.Dir == bus.Listen {
			return device.busError(bus.Drain(t, tr))
		}
		return nil
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugDetail, "%s phase %02x %s", phase, tr.Secondary, tr.Dir)

	switch phase {
	case decoder.PhaseCommand:
		err = device.command(t, tr)
	case decoder.PhaseExecute:
		err = device.execute(t, tr)
	case decoder.PhaseStatus:
		err = device.sendReply(t, tr)
	case decoder.PhaseReport:
		d := device.dsj()
		err = t.SendByte(tr, d, true)
		if err == nil {
			device.DSJ()
			debug.DebugDevf(device.addr, device.debugMsk, debugStatus, "dsj %d", d)
		}
	case decoder.PhaseClear:
		_, err = bus.ReadMessage(t, tr, 1)
		device.Clear(currentUnit)
	}
	return device.busError(err)
}

// Transport failure drops back to idle. Aborted transfers are latched.
func (device *Drive) busError(err error) error {
	if err == nil {
		return nil
	}
	device.state = Idle
	if errors.Is(err, bus.ErrEndOfTransaction) {
		return nil
	}
	device.exec = nil
	if errors.Is(err, bus.ErrAborted) || errors.Is(err, bus.ErrTimeout) {
		device.fail(device.unit, fmt.Errorf("unit %d: %w: %w", device.unit, fault.ErrAborted, err), 0)
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugDetail, "bus error %v", err)
	return err
}

// Decode a command message, transfers wait for execute phase.
func (device *Drive) command(t bus.Transport, tr *bus.Transaction) error {
	device.state = Addressed
	msg, err := bus.ReadMessage(t, tr, maxMessage)
	if err != nil {
		return err
	}
	if device.debugMsk&debugData != 0 {
		debug.DebugDevf(device.addr, device.debugMsk, debugData, "message\n%s", hex.Dump(msg))
	}
	device.exec = nil
	device.reply = nil
	device.state = Idle

	cmd, err := device.table.Decode(tr.Secondary, msg)
	if err != nil {
		debug.DebugDevf(device.addr, device.debugMsk, debugCmd, "decode %v", err)
		device.fail(device.unit, err, cmd.Opcode)
		return nil
	}
	if cmd.Op == decoder.OpColdLoad {
		err = device.coldLoad(cmd)
	} else {
		device.selectUnit(cmd.Params[0])
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugCmd, "%s %02x unit=%d", cmd.Name, cmd.Opcode, device.unit)

	if err == nil && cmd.Exec {
		device.exec = &cmd
		device.state = CommandParsed
		return nil
	}
	if err == nil {
		err = device.handlers[cmd.Op](cmd, t, tr)
	}
	if err != nil && !isBusError(err) {
		device.fail(device.unit, err, cmd.Opcode)
		return nil
	}
	return err
}

// Move one sector for pending transfer.
func (device *Drive) execute(t bus.Transport, tr *bus.Transaction) error {
	cmd := device.exec
	if cmd == nil || cmd.Dir != tr.Dir {
		device.exec = nil
		device.state = Idle
		device.fail(device.unit, fmt.Errorf("execute %s without command: %w", tr.Dir, fault.ErrUnknownCommand), 0)
		if tr.Dir == bus.Listen {
			return bus.Drain(t, tr)
		}
		return nil
	}

	device.state = Executing
	err := device.handlers[cmd.Op](*cmd, t, tr)
	device.state = CommandParsed
	if err == nil || isBusError(err) {
		return err
	}
	device.fail(device.unit, err, cmd.Opcode)
	device.exec = nil
	device.state = Idle
	if tr.Dir == bus.Listen {
		return bus.Drain(t, tr)
	}
	return nil
}

// Send status or logical address prepared by last command.
func (device *Drive) sendReply(t bus.Transport, tr *bus.Transaction) error {
	reply := device.reply
	device.reply = nil
	device.state = Idle
	if reply == nil {
		device.fail(device.unit, fmt.Errorf("send status without request: %w", fault.ErrUnknownCommand), 0)
		return nil
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugStatus, "reply % x", reply)
	return bus.Send(t, tr, reply)
}

// Current DSJ value, no side effects.
func (device *Drive) dsj() byte {
	if device.powerOn {
		return dsjPowerOn
	}
	for n := uint8(0); n <= currentUnit; n++ {
		if device.faults.Current(device.faultID(n)).Faulted() {
			return dsjError
		}
	}
	return dsjNormal
}

// Return DSJ as the report phase would. Only the power on indication
// is dropped, faults stay until status is requested or cleared.
func (device *Drive) DSJ() byte {
	d := device.dsj()
	device.powerOn = false
	return d
}

// Clear unit, 15 clears every unit and the drive state.
func (device *Drive) Clear(unit uint8) {
	device.exec = nil
	device.reply = nil
	device.state = Idle
	device.powerOn = false

	if unit == currentUnit {
		for n := uint8(0); n <= currentUnit; n++ {
			device.faults.ClearAll(device.faultID(n))
		}
		for _, u := range device.units.Bus(device.addr) {
			u.Rewind()
		}
		return
	}
	device.faults.ClearAll(device.faultID(unit))
	if u, err := device.units.Lookup(device.addr, unit); err == nil {
		u.Rewind()
	}
}

// Return to power on state.
func (device *Drive) Reset() {
	device.Clear(currentUnit)
	device.switchUnit(0)
	device.powerOn = true
}

// Enable debug options.
func (device *Drive) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("AMIGO debug option invalid: " + opt)
	}
	device.debugMsk |= flag
	return nil
}

// Describe drive for console.
func (device *Drive) Show() string {
	var str strings.Builder
	fmt.Fprintf(&str, "%d: AMIGO id=%04x ppr=%d unit=%d state=%s dsj=%d",
		device.addr, device.id, device.ppr, device.unit, device.state, device.dsj())
	for _, u := range device.units.Bus(device.addr) {
		str.WriteString("\n  ")
		str.WriteString(u.String())
	}
	return str.String()
}
