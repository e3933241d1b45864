/*
 * HPDisk - SS80 status and describe records.
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

package ss80

import (
	"encoding/binary"

	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
	"github.com/rcornwell/hpdisk/util/debug"
	"github.com/rcornwell/hpdisk/util/hex"
)

const (
	StatusSize   = 20 // Request status reply.
	DescribeSize = 37 // Controller, unit and volume records.

	transferRate   = 744 // Kb/s.
	controllerType = 5   // SS80 multi unit.
	bufferedBlocks = 1
)

// Status error bits, numbered from the first error byte.
var statusBits = []struct {
	cond fault.Condition
	bits []int
}{
	{fault.UnknownCommand, []int{5}},    // Illegal opcode.
	{fault.ParameterError, []int{7}},    // Address bounds.
	{fault.ShortTransaction, []int{12}}, // Message length.
	{fault.HardwareFault, []int{19}},    // Controller fault.
	{fault.MediaFault, []int{22, 41}},   // Unit fault, unrecoverable data.
	{fault.NotReady, []int{35}},         // Not ready.
	{fault.WriteProtect, []int{36}},     // Write protect.
}

// Describe timing values.
type timing struct {
	blockTime     uint16 // Microseconds.
	rate          uint16 // Continuous rate Kb/s.
	retry         uint16 // Optimal retry time.
	access        uint16 // Access time.
	maxInterleave uint8
}

var (
	floppyTiming     = timing{blockTime: 5888, rate: 45, retry: 4500, access: 8400, maxInterleave: 0x0f}
	winchesterTiming = timing{blockTime: 502, rate: 140, retry: 4500, access: 4500, maxInterleave: 0x1f}
)

// Build status for unit and apply the fault clearing policy.
func (device *Drive) RequestStatus(unit uint8) [StatusSize]byte {
	var st [StatusSize]byte

	rec := device.faults.Report(device.faultID(unit))
	pending := rec.Pending
	u, err := device.units.Lookup(device.addr, unit)
	if err != nil {
		if unit != controllerUnit {
			pending |= fault.NotReady
		}
	} else if u.Ready() != nil {
		pending |= fault.NotReady
	}
	conds := fault.Record{Pending: pending}.Conditions()

	st[0] = device.volume<<4 | unit&0xf
	st[1] = 0xff
	for _, sb := range statusBits {
		if conds&sb.cond == 0 {
			continue
		}
		for _, b := range sb.bits {
			st[2+b/8] |= 0x80 >> (b % 8)
		}
	}
	for i, m := range device.statusMask {
		st[2+i] &^= m
	}

	block := rec.Extended.Block
	if !rec.Faulted() && u != nil {
		block = u.Block()
	}
	if device.threeVector && u != nil {
		a, err := u.Geometry.Address(block)
		if err != nil {
			a = registry.Address{}
		}
		st[10] = byte(a.Cylinder >> 16)
		st[11] = byte(a.Cylinder >> 8)
		st[12] = byte(a.Cylinder)
		st[13] = byte(a.Head)
		st[14] = byte(a.Sector >> 8)
		st[15] = byte(a.Sector)
	} else {
		putBlock(st[10:16], block)
	}

	if device.debugMsk&debugStatus != 0 {
		debug.DebugDevf(device.addr, device.debugMsk, debugStatus, "status unit %d %s\n%s", unit, conds, hex.Dump(st[:]))
	}
	return st
}

// Store 48 bit block number.
func putBlock(buf []byte, block uint64) {
	for i := 5; i >= 0; i-- {
		buf[i] = byte(block)
		block >>= 8
	}
}

func (device *Drive) describeUnit(unit uint8) ([]byte, error) {
	u, err := device.units.Lookup(device.addr, unit)
	if err != nil {
		return nil, err
	}

	// Controller.
	installed := uint16(0x8000)
	for _, other := range device.units.Bus(device.addr) {
		installed |= 1 << other.Number
	}
	buf := make([]byte, 0, DescribeSize)
	buf = binary.BigEndian.AppendUint16(buf, installed)
	buf = binary.BigEndian.AppendUint16(buf, transferRate)
	buf = append(buf, controllerType)

	// Unit.
	t := floppyTiming
	unitType := byte(1)
	fixed, removable := byte(0), byte(1)
	if u.Fixed {
		t = winchesterTiming
		unitType = 0
		fixed, removable = 1, 0
	}
	buf = append(buf, unitType, byte(u.DeviceNumber>>16), byte(u.DeviceNumber>>8), byte(u.DeviceNumber))
	buf = binary.BigEndian.AppendUint16(buf, uint16(u.Geometry.BytesPerSector))
	buf = append(buf, bufferedBlocks, 0)
	buf = binary.BigEndian.AppendUint16(buf, t.blockTime)
	buf = binary.BigEndian.AppendUint16(buf, t.rate)
	buf = binary.BigEndian.AppendUint16(buf, t.retry)
	buf = binary.BigEndian.AppendUint16(buf, t.access)
	buf = append(buf, t.maxInterleave, fixed, removable)

	// Volume.
	g := u.Geometry
	maxCyl := g.Cylinders - 1
	buf = append(buf, byte(maxCyl>>16), byte(maxCyl>>8), byte(maxCyl))
	buf = append(buf, byte(g.Heads-1))
	buf = binary.BigEndian.AppendUint16(buf, uint16(g.Sectors-1))
	var maxBlock [6]byte
	putBlock(maxBlock[:], g.Blocks()-1)
	buf = append(buf, maxBlock[:]...)
	buf = append(buf, u.Interleave)
	return buf, nil
}

// Describe records for unit.
func (device *Drive) Describe(unit uint8) ([]byte, error) {
	data, err := device.describeUnit(unit)
	if err != nil {
		device.fail(unit, err, opDescribe)
	}
	return data, err
}
