/*
 * HPDisk - AMIGO status and address replies.
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
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
)

// Bytes in status and logical address replies.
const StatusSize = 4

// Status byte 1 codes.
const (
	s1Normal        = 0x00
	s1IllegalOp     = 0x01 // Opcode not recognized.
	s1Uncorrectable = 0x08 // Data could not be read.
	s1IOProgram     = 0x0a // Bad sequence or aborted transfer.
	s1Status2       = 0x13 // See status 2.
)

// Status 2 flags.
const (
	st2Error     = 0x80 // In high byte, any error.
	st2Protect   = 0x60 // Write protected.
	st2EBit      = 0x10 // Drive fault.
	st2FBit      = 0x08 // Power on.
	st2SeekCheck = 0x04 // Address out of range.
	st2NotReady  = 0x03 // No media.
)

func s1Code(cond fault.Condition) byte {
	switch cond.Highest() {
	case fault.None:
		return s1Normal
	case fault.UnknownCommand:
		return s1IllegalOp
	case fault.ShortTransaction, fault.Aborted:
		return s1IOProgram
	case fault.MediaFault:
		return s1Uncorrectable
	}
	return s1Status2
}

// Build four byte status of unit and apply fault clearing policy.
// Power on is reported once.
func (device *Drive) RequestStatus(unit uint8) [StatusSize]byte {
	unit = device.selectUnit(unit)
	var st [StatusSize]byte
	st[1] = unit

	rec := device.faults.Report(device.faultID(unit))
	u, err := device.units.Lookup(device.addr, unit)
	if err == nil {
		err = u.Ready()
		st[2] = u.Stat2
		if u.ReadOnly() {
			st[3] |= st2Protect
		}
	}
	if err != nil {
		rec.Pending |= fault.NotReady
	}
	cond := rec.Conditions()

	switch {
	case device.powerOn:
		st[0] = s1Status2
		st[3] |= st2FBit
		device.powerOn = false
	case cond != fault.None:
		st[0] = s1Code(cond)
		st[2] |= st2Error
		st[3] |= st2EBit
		if cond&fault.NotReady != 0 {
			st[3] |= st2NotReady
		}
		if cond&fault.ParameterError != 0 {
			st[3] |= st2SeekCheck
		}
	}
	return st
}

// Current address of unit as cylinder high, cylinder low, head, sector.
func (device *Drive) LogicalAddress(unit uint8) [StatusSize]byte {
	unit = device.selectUnit(unit)
	var a registry.Address
	if u, err := device.units.Lookup(device.addr, unit); err == nil {
		a = u.Address()
	}
	return [StatusSize]byte{byte(a.Cylinder >> 8), byte(a.Cylinder), byte(a.Head), byte(a.Sector)}
}
