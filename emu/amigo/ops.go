/*
 * HPDisk - AMIGO operations.
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

	"github.com/rcornwell/hpdisk/emu/bus"
	"github.com/rcornwell/hpdisk/emu/decoder"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
	"github.com/rcornwell/hpdisk/util/debug"
)

// Opcodes recorded with faults raised through the Go API.
const (
	opSeek       uint8 = 0x02
	opRead       uint8 = 0x05
	opVerify     uint8 = 0x07
	opWrite      uint8 = 0x08
	opInitialize uint8 = 0x0b
	opFormat     uint8 = 0x18
)

// Latch fault on unit, DSJ reports it until cleared.
func (device *Drive) fail(unit uint8, err error, opcode uint8) {
	ext := fault.Extended{Opcode: opcode}
	if u, lerr := device.units.Lookup(device.addr, unit); lerr == nil {
		ext.Block = u.Block()
	}
	cond := fault.Classify(err)
	device.faults.LatchExtended(device.faultID(unit), cond, ext)
	debug.DebugDevf(device.addr, device.debugMsk, debugStatus, "unit %d %s: %v", unit, cond, err)
}

// Find unit ready for access.
func (device *Drive) ready(unit uint8) (*registry.Unit, error) {
	u, err := device.units.Lookup(device.addr, unit)
	if err != nil {
		return nil, err
	}
	if err := u.Ready(); err != nil {
		return nil, err
	}
	return u, nil
}

// Step to next sector, running off the end is a seek check.
func advance(u *registry.Unit) error {
	if !u.Advance() {
		return fmt.Errorf("unit %s past end at %s: %w", u.Name(), u.Address(), fault.ErrParameter)
	}
	return nil
}

func (device *Drive) seek(unit uint8, a registry.Address) error {
	u, err := device.ready(unit)
	if err != nil {
		return err
	}
	return u.Seek(a)
}

// Boot read, unit 0 with head and sector packed in one byte.
func (device *Drive) coldLoad(cmd decoder.Command) error {
	device.switchUnit(0)
	device.powerOn = false
	device.faults.ClearAll(device.faultID(0))
	hs := cmd.Params[0]
	return device.seek(0, registry.Address{Head: uint32(hs >> 6), Sector: uint32(hs & 0x3f)})
}

// Move unit to address. On error the address is unchanged.
func (device *Drive) Seek(unit uint8, a registry.Address) error {
	unit = device.selectUnit(unit)
	err := device.seek(unit, a)
	if err != nil {
		device.fail(unit, err, opSeek)
	}
	return err
}

// Read sector at current address and step past it.
func read(u *registry.Unit) ([]byte, error) {
	data, err := u.ReadBlock(u.Address())
	if err != nil {
		return nil, err
	}
	return data, advance(u)
}

// Read one sector from unit. Data is returned even when the
// address could not be advanced.
func (device *Drive) Read(unit uint8) ([]byte, error) {
	unit = device.selectUnit(unit)
	u, err := device.ready(unit)
	var data []byte
	if err == nil {
		data, err = read(u)
	}
	if err != nil {
		device.fail(unit, err, opRead)
	}
	return data, err
}

// Write one sector at current address and step past it.
func write(u *registry.Unit, data []byte) error {
	if u.ReadOnly() {
		return fmt.Errorf("unit %s: %w", u.Name(), fault.ErrWriteProtect)
	}
	bps := int(u.Geometry.BytesPerSector)
	if len(data) < bps {
		return fmt.Errorf("unit %s got %d of %d bytes: %w", u.Name(), len(data), bps, fault.ErrShortTransaction)
	}
	if len(data) > bps {
		return fmt.Errorf("unit %s sector of %d bytes: %w", u.Name(), len(data), fault.ErrParameter)
	}
	if err := u.WriteBlock(u.Address(), data); err != nil {
		return err
	}
	return advance(u)
}

// Write one sector to unit.
func (device *Drive) Write(unit uint8, data []byte) error {
	unit = device.selectUnit(unit)
	u, err := device.ready(unit)
	if err == nil {
		err = write(u, data)
	}
	if err != nil {
		device.fail(unit, err, opWrite)
	}
	return err
}

func verify(u *registry.Unit, sectors uint16) (uint16, error) {
	for n := uint16(0); n < sectors; n++ {
		if _, err := read(u); err != nil {
			return n, err
		}
	}
	return sectors, nil
}

// Check sectors can be read, returns number verified.
func (device *Drive) Verify(unit uint8, sectors uint16) (uint16, error) {
	unit = device.selectUnit(unit)
	u, err := device.ready(unit)
	if err != nil {
		device.fail(unit, err, opVerify)
		return 0, err
	}
	n, err := verify(u, sectors)
	if err != nil {
		device.fail(unit, err, opVerify)
	}
	return n, err
}

// Fill every sector of geometry with fill byte.
func initialize(u *registry.Unit, geom registry.Geometry, fill byte) error {
	if !u.Geometry.Fits(geom) {
		return fmt.Errorf("unit %s geometry %s does not fit %s: %w", u.Name(), geom, u.Geometry, fault.ErrParameter)
	}
	if u.ReadOnly() {
		return fmt.Errorf("unit %s: %w", u.Name(), fault.ErrWriteProtect)
	}
	data := make([]byte, u.Geometry.BytesPerSector)
	for i := range data {
		data[i] = fill
	}
	blocks := geom.Blocks()
	for n := uint64(0); n < blocks; n++ {
		a, err := u.Geometry.Address(n)
		if err != nil {
			return err
		}
		if err := u.WriteBlock(a, data); err != nil {
			return err
		}
	}
	u.Rewind()
	return nil
}

// Initialize media for geometry, the address returns to (0,0,0).
func (device *Drive) Initialize(unit uint8, geom registry.Geometry, fill byte) error {
	unit = device.selectUnit(unit)
	u, err := device.ready(unit)
	if err == nil {
		err = initialize(u, geom, fill)
	}
	if err != nil {
		device.fail(unit, err, opInitialize)
	}
	return err
}

// Format whole unit with fill byte.
func (device *Drive) Format(unit uint8, fill byte) error {
	unit = device.selectUnit(unit)
	u, err := device.ready(unit)
	if err == nil {
		err = initialize(u, u.Geometry, fill)
	}
	if err != nil {
		device.fail(unit, err, opFormat)
	}
	return err
}

// Immediate commands.

func (device *Drive) accept(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	return nil
}

// Seek, cylinder is one byte or two.
func (device *Drive) seekCmd(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	p := cmd.Params
	a := registry.Address{Cylinder: uint32(p[1]), Head: uint32(p[2]), Sector: uint32(p[3])}
	if len(p) == 5 {
		a = registry.Address{Cylinder: uint32(p[1])<<8 | uint32(p[2]), Head: uint32(p[3]), Sector: uint32(p[4])}
	}
	return device.seek(device.unit, a)
}

func (device *Drive) verifyCmd(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	_, err = verify(u, uint16(cmd.Params[1])<<8|uint16(cmd.Params[2]))
	return err
}

func (device *Drive) statusCmd(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	st := device.RequestStatus(device.unit)
	device.reply = st[:]
	device.state = Responding
	return nil
}

func (device *Drive) addressCmd(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	la := device.LogicalAddress(device.unit)
	device.reply = la[:]
	device.state = Responding
	return nil
}

// Format, parameters are unit, override, interleave and fill byte.
func (device *Drive) formatCmd(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	if cmd.Params[2] != 0 {
		u.Interleave = cmd.Params[2]
	}
	return initialize(u, u.Geometry, cmd.Params[3])
}

func (device *Drive) doorLock(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.units.Lookup(device.addr, device.unit)
	if err != nil {
		return err
	}
	u.SetLocked(true)
	return nil
}

func (device *Drive) doorUnlock(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.units.Lookup(device.addr, device.unit)
	if err != nil {
		return err
	}
	u.SetLocked(false)
	return nil
}

// Execute phase transfers.

// Send sector at current address.
func (device *Drive) readSector(_ decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	a := u.Address()
	data, err := u.ReadBlock(a)
	if err != nil {
		return err
	}
	if err := bus.Send(t, tr, data); err != nil {
		return err
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugData, "read unit %d at %s", device.unit, a)
	return advance(u)
}

// Receive one sector and write it at current address.
func (device *Drive) writeSector(_ decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	data, err := bus.ReadMessage(t, tr, int(u.Geometry.BytesPerSector))
	if err != nil {
		return err
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugData, "write unit %d at %s %d bytes", device.unit, u.Address(), len(data))
	return write(u, data)
}
