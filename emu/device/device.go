/*
 * HPDisk - HP-IB device definitions.
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

package device

import (
	"github.com/rcornwell/hpdisk/emu/bus"
)

// Protocol family a unit answers to.
type Family uint8

const (
	SS80 Family = iota
	AMIGO
	NumFamilies
)

func (f Family) String() string {
	switch f {
	case SS80:
		return "SS80"
	case AMIGO:
		return "AMIGO"
	}
	return "unknown"
}

const (
	// HP-IB address bases.
	BaseMLA uint8 = 0x20 // My listen address
	BaseMTA uint8 = 0x40 // My talk address
	BaseMSA uint8 = 0x60 // My secondary address

	// Universal and addressed bus commands.
	CmdGTL uint8 = 0x01 // Go to local
	CmdSDC uint8 = 0x04 // Selected device clear
	CmdPPC uint8 = 0x05 // Parallel poll configure
	CmdGET uint8 = 0x08 // Group execute trigger
	CmdTCT uint8 = 0x09 // Take control
	CmdLLO uint8 = 0x11 // Local lockout
	CmdDCL uint8 = 0x14 // Device clear
	CmdPPU uint8 = 0x15 // Parallel poll unconfigure
	CmdSPE uint8 = 0x18 // Serial poll enable
	CmdSPD uint8 = 0x19 // Serial poll disable
	CmdUNL uint8 = 0x3F // Unlisten
	CmdUNT uint8 = 0x5F // Untalk

	MaxAddress uint8 = 30 // Highest usable primary address
	MaxUnit    uint8 = 15 // Unit 15 addresses the controller

	NoDev uint16 = 0xffff // No device address given
)

// Build configuration device number from bus address and unit.
func DevNum(addr, unit uint8) uint16 {
	return uint16(addr)<<4 | uint16(unit&0xf)
}

// Split configuration device number.
func Split(devNum uint16) (uint8, uint8) {
	return uint8(devNum >> 4), uint8(devNum & 0xf)
}

// Device is one emulated controller attached at a primary bus address.
type Device interface {
	Address() uint8                                         // Primary bus address
	Family() Family                                         // Protocol spoken
	Transaction(t bus.Transport, tr *bus.Transaction) error // Service one bus transaction
	Reset()                                                 // Return to power on state
	Debug(opt string) error                                 // Enable debug option
	Show() string                                           // Describe device for console
}
