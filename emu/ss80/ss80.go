/*
 * HPDisk - SS80 disk controller.
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
   An SS80 controller answers on one primary address and serves up to
   15 units. The host sends a command message on secondary 0x65, moves
   data on 0x6E and reads the one byte QSTAT report on 0x70. Secondary
   0x72 carries transparent messages, clears and loopback.

   Complementary commands (Set Unit, Set Address, Set Length...) change
   drive state as they are parsed. The first final command either runs
   at once or waits for the execute phase.
*/

package ss80

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
	MaxMessage = 256 // Longest command message kept.

	qstatNormal  = 0 // Command completed.
	qstatError   = 1 // Hard error, request status.
	qstatPowerOn = 2 // Power on or clear.

	controllerUnit = 15         // Unit number addressing every unit.
	fullLength     = 0xffffffff // Length to end of volume.
)

// Bus phase state of drive.
type State uint8

const (
	Idle            State = iota // Waiting for command.
	AddressedListen              // Receiving bytes.
	AddressedTalk                // Sending bytes.
	CommandParsed                // Execute phase pending.
	Executing                    // Moving data.
	Responding                   // QSTAT pending.
)

var stateNames = [...]string{"idle", "listen", "talk", "parsed", "executing", "responding"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

type handler func(cmd decoder.Command, t bus.Transport, tr *bus.Transaction) error

// SS80 controller on one bus address.
type Drive struct {
	addr        uint8                  // Primary bus address.
	ppr         uint8                  // Parallel poll response bit.
	id          uint16                 // Identify bytes.
	units       *registry.Registry     // Units of system.
	faults      *fault.Model           // Fault latches.
	table       *decoder.Table         // Opcode table.
	handlers    map[decoder.Op]handler // Handler per operation.
	state       State                  // Current bus phase.
	exec        *decoder.Command       // Command waiting for execute phase.
	unit        uint8                  // Selected unit.
	volume      uint8                  // Selected volume.
	length      uint32                 // Transfer length in bytes.
	threeVector bool                   // Three vector addressing.
	qstat       uint8                  // Report phase status.
	statusMask  [8]byte                // Masked status bits.
	debugMsk    int                    // Debug option mask.
}

// Create SS80 controller at bus address.
func New(addr uint8, ppr uint8, id uint16, units *registry.Registry, faults *fault.Model) *Drive {
	device := &Drive{
		addr:   addr,
		ppr:    ppr,
		id:     id,
		units:  units,
		faults: faults,
		table:  decoder.SS80(),
		length: fullLength,
		qstat:  qstatPowerOn,
	}
	device.handlers = map[decoder.Op]handler{
		decoder.OpLocateRead:    device.locateRead,
		decoder.OpLocateWrite:   device.locateWrite,
		decoder.OpLocateVerify:  device.locateVerify,
		decoder.OpRequestStatus: device.requestStatus,
		decoder.OpRelease:       device.accept,
		decoder.OpReleaseDenied: device.accept,
		decoder.OpSetAddress:    device.setAddress,
		decoder.OpSetLength:     device.setLength,
		decoder.OpSetUnit:       device.setUnit,
		decoder.OpValidateKey:   device.accept,
		decoder.OpInitiateDiag:  device.accept,
		decoder.OpNoOp:          device.accept,
		decoder.OpDescribe:      device.describe,
		decoder.OpInitMedia:     device.initMedia,
		decoder.OpSetRPS:        device.accept,
		decoder.OpSetRelease:    device.accept,
		decoder.OpSetStatusMask: device.setStatusMask,
		decoder.OpSetVolume:     device.setVolume,
		decoder.OpSetReturnMode: device.setReturnMode,
		decoder.OpDoorUnlock:    device.doorUnlock,
		decoder.OpDoorLock:      device.doorLock,
		decoder.OpParity:        device.accept,
		decoder.OpReadLoopback:  device.readLoopback,
		decoder.OpWriteLoopback: device.writeLoopback,
		decoder.OpChannelClear:  device.channelClear,
		decoder.OpCancel:        device.cancel,
	}
	return device
}

// Return bus address.
func (device *Drive) Address() uint8 {
	return device.addr
}

func (device *Drive) Family() dev.Family {
	return dev.SS80
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
	return fault.UnitID{Family: dev.SS80, Bus: device.addr, Unit: unit}
}

// Errors from the transport end the transaction, everything else is a device fault.
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
		device.clear(controllerUnit)
		return nil
	case bus.Reset:
		device.state = Idle
		device.exec = nil
		return nil
	}

	if tr.Dir == bus.Talk {
		device.state = AddressedTalk
	} else {
		device.state = AddressedListen
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
	case decoder.PhaseCommand, decoder.PhaseTransparent:
		err = device.command(t, tr, phase)
	case decoder.PhaseExecute:
		err = device.execute(t, tr)
	case decoder.PhaseReport:
		err = device.report(t, tr)
	case decoder.PhaseClear:
		_, err = bus.ReadMessage(t, tr, 1)
		device.clear(controllerUnit)
	}
	return device.busError(err)
}

// Transport failure drops back to idle, faults are left alone.
func (device *Drive) busError(err error) error {
	if err == nil {
		return nil
	}
	device.state = Idle
	device.exec = nil
	if errors.Is(err, bus.ErrEndOfTransaction) {
		return nil
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugDetail, "bus error %v", err)
	return err
}

// Parse a command or transparent message.
func (device *Drive) command(t bus.Transport, tr *bus.Transaction, phase decoder.Phase) error {
	msg, err := bus.ReadMessage(t, tr, MaxMessage)
	if err != nil {
		return err
	}
	if device.debugMsk&debugData != 0 {
		debug.DebugDevf(device.addr, device.debugMsk, debugData, "message\n%s", hex.Dump(msg))
	}
	if phase == decoder.PhaseCommand {
		device.exec = nil
	}
	device.state = Responding

	for len(msg) > 0 {
		cmd, err := device.table.Decode(tr.Secondary, msg)
		if err != nil {
			debug.DebugDevf(device.addr, device.debugMsk, debugCmd, "decode %v", err)
			device.fail(device.unit, err, cmd.Opcode)
			device.exec = nil
			return nil
		}
		msg = msg[cmd.Len():]
		debug.DebugDevf(device.addr, device.debugMsk, debugCmd, "%s %02x unit=%d", cmd.Name, cmd.Opcode, device.unit)

		if cmd.Exec {
			pending := cmd
			device.exec = &pending
			device.state = CommandParsed
		} else if err := device.handlers[cmd.Op](cmd, t, tr); err != nil {
			if isBusError(err) {
				return err
			}
			device.fail(device.unit, err, cmd.Opcode)
			device.exec = nil
			device.state = Responding
			return nil
		}
		if cmd.Final {
			break
		}
	}
	return nil
}

// Run pending command in execute phase.
func (device *Drive) execute(t bus.Transport, tr *bus.Transaction) error {
	cmd := device.exec
	device.exec = nil
	if cmd == nil || cmd.Dir != tr.Dir {
		device.fail(device.unit, fmt.Errorf("execute %s without command: %w", tr.Dir, fault.ErrUnknownCommand), 0)
		device.state = Responding
		if tr.Dir == bus.Listen {
			return bus.Drain(t, tr)
		}
		return bus.Send(t, tr, []byte{device.qstat})
	}

	device.state = Executing
	err := device.handlers[cmd.Op](*cmd, t, tr)
	device.state = Responding
	if err == nil || isBusError(err) {
		return err
	}
	device.fail(device.unit, err, cmd.Opcode)
	if tr.Dir == bus.Listen {
		return bus.Drain(t, tr)
	}
	// Failed talk phase ends with QSTAT byte.
	return t.SendByte(tr, device.qstat, true)
}

// Send QSTAT.
func (device *Drive) report(t bus.Transport, tr *bus.Transaction) error {
	debug.DebugDevf(device.addr, device.debugMsk, debugStatus, "qstat %d", device.qstat)
	if err := t.SendByte(tr, device.qstat, true); err != nil {
		return err
	}
	device.qstat = qstatNormal
	device.state = Idle
	return nil
}

// Return QSTAT as report phase would, resetting it.
func (device *Drive) Report() byte {
	q := device.qstat
	device.qstat = qstatNormal
	device.state = Idle
	return q
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

// Clear unit, controller unit clears every unit and drive state.
func (device *Drive) clear(unit uint8) {
	device.exec = nil
	device.state = Idle
	device.qstat = qstatNormal
	device.length = fullLength
	device.volume = 0
	device.threeVector = false
	device.statusMask = [8]byte{}

	if unit == controllerUnit {
		device.switchUnit(0)
		for n := uint8(0); n <= controllerUnit; n++ {
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
	device.clear(controllerUnit)
	device.qstat = qstatPowerOn
}

// Enable debug options.
func (device *Drive) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("SS80 debug option invalid: " + opt)
	}
	device.debugMsk |= flag
	return nil
}

// Describe drive for console.
func (device *Drive) Show() string {
	var str strings.Builder
	fmt.Fprintf(&str, "%d: SS80 id=%04x ppr=%d unit=%d state=%s qstat=%d",
		device.addr, device.id, device.ppr, device.unit, device.state, device.qstat)
	for _, u := range device.units.Bus(device.addr) {
		str.WriteString("\n  ")
		str.WriteString(u.String())
	}
	return str.String()
}
