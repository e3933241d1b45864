/*
 * HPDisk - Opcode tables.
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

package decoder

import (
	"github.com/rcornwell/hpdisk/emu/bus"
	"github.com/rcornwell/hpdisk/emu/device"
)

// SS80 secondary addresses.
const (
	SS80Command     uint8 = 0x65
	SS80Execute     uint8 = 0x6e
	SS80Report      uint8 = 0x70
	SS80Transparent uint8 = 0x72
)

// AMIGO secondary addresses.
const (
	AmigoExecute  uint8 = 0x60
	AmigoCommand  uint8 = 0x68
	AmigoBuffered uint8 = 0x69
	AmigoRead     uint8 = 0x6a
	AmigoFormat   uint8 = 0x6c
	AmigoReport   uint8 = 0x70
)

func ss80Descriptors() []Descriptor {
	return []Descriptor{
		{Name: "Locate and Read", Secondary: SS80Command, Opcode: 0x00, Dir: bus.Talk, Exec: true, Op: OpLocateRead, Final: true},
		{Name: "Locate and Write", Secondary: SS80Command, Opcode: 0x02, Dir: bus.Listen, Exec: true, Op: OpLocateWrite, Final: true},
		{Name: "Locate and Verify", Secondary: SS80Command, Opcode: 0x04, Op: OpLocateVerify, Final: true},
		{Name: "Request Status", Secondary: SS80Command, Opcode: 0x0d, Dir: bus.Talk, Exec: true, Op: OpRequestStatus, Final: true},
		{Name: "Release", Secondary: SS80Command, Opcode: 0x0e, Op: OpRelease, Final: true},
		{Name: "Release Denied", Secondary: SS80Command, Opcode: 0x0f, Op: OpReleaseDenied, Final: true},
		{Name: "Set Address", Secondary: SS80Command, Opcode: 0x10, Params: 6, Op: OpSetAddress},
		{Name: "Set Length", Secondary: SS80Command, Opcode: 0x18, Params: 4, Op: OpSetLength},
		{Name: "Set Unit", Secondary: SS80Command, Opcode: 0x20, Span: 16, Op: OpSetUnit},
		{Name: "Validate Key", Secondary: SS80Command, Opcode: 0x31, Params: 2, Op: OpValidateKey, Final: true},
		{Name: "Initiate Diagnostic", Secondary: SS80Command, Opcode: 0x33, Params: 3, Op: OpInitiateDiag, Final: true},
		{Name: "No Op", Secondary: SS80Command, Opcode: 0x34, Op: OpNoOp},
		{Name: "Describe", Secondary: SS80Command, Opcode: 0x35, Dir: bus.Talk, Exec: true, Op: OpDescribe, Final: true},
		{Name: "Initialize Media", Secondary: SS80Command, Opcode: 0x37, Params: 2, Op: OpInitMedia, Final: true},
		{Name: "Set RPS", Secondary: SS80Command, Opcode: 0x39, Params: 2, Op: OpSetRPS},
		{Name: "Set Release", Secondary: SS80Command, Opcode: 0x3b, Params: 1, Op: OpSetRelease},
		{Name: "Set Status Mask", Secondary: SS80Command, Opcode: 0x3e, Params: 8, Op: OpSetStatusMask},
		{Name: "Set Volume", Secondary: SS80Command, Opcode: 0x40, Span: 8, Op: OpSetVolume},
		{Name: "Set Return Addressing Mode", Secondary: SS80Command, Opcode: 0x48, Params: 1, Op: OpSetReturnMode},
		{Name: "Door Unlock", Secondary: SS80Command, Opcode: 0x4c, Op: OpDoorUnlock},
		{Name: "Door Lock", Secondary: SS80Command, Opcode: 0x4d, Op: OpDoorLock},

		{Name: "HP-IB Parity Checking", Secondary: SS80Transparent, Opcode: 0x01, Params: 1, Op: OpParity},
		{Name: "Read Loopback", Secondary: SS80Transparent, Opcode: 0x02, Params: 4, Dir: bus.Talk, Exec: true, Op: OpReadLoopback, Final: true},
		{Name: "Write Loopback", Secondary: SS80Transparent, Opcode: 0x03, Params: 4, Dir: bus.Listen, Exec: true, Op: OpWriteLoopback, Final: true},
		{Name: "Channel Independent Clear", Secondary: SS80Transparent, Opcode: 0x08, Op: OpChannelClear, Final: true},
		{Name: "Cancel", Secondary: SS80Transparent, Opcode: 0x09, Op: OpCancel, Final: true},
		{Name: "Set Unit", Secondary: SS80Transparent, Opcode: 0x20, Span: 16, Op: OpSetUnit},
	}
}

func amigoDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "Cold Load Read", Secondary: AmigoCommand, Opcode: 0x00, Params: 1, Dir: bus.Talk, Exec: true, Op: OpColdLoad},
		{Name: "Seek", Secondary: AmigoCommand, Opcode: 0x02, Params: 4, AltParams: 5, Op: OpSeek},
		{Name: "Request Status", Secondary: AmigoCommand, Opcode: 0x03, Params: 1, Dir: bus.Talk, Op: OpStatus},
		{Name: "Unbuffered Read", Secondary: AmigoCommand, Opcode: 0x05, Params: 1, Dir: bus.Talk, Exec: true, Op: OpUnbufferedRead},
		{Name: "Verify", Secondary: AmigoCommand, Opcode: 0x07, Params: 3, Op: OpVerify},
		{Name: "Unbuffered Write", Secondary: AmigoCommand, Opcode: 0x08, Params: 1, Dir: bus.Listen, Exec: true, Op: OpUnbufferedWrite},
		{Name: "Initialize", Secondary: AmigoCommand, Opcode: 0x0b, Params: 1, Dir: bus.Listen, Exec: true, Op: OpInitialize},
		{Name: "Request Logical Address", Secondary: AmigoCommand, Opcode: 0x14, Params: 1, Dir: bus.Talk, Op: OpLogicalAddress},
		{Name: "End", Secondary: AmigoCommand, Opcode: 0x15, Params: 1, Op: OpEnd},
		{Name: "Initialize D-bit", Secondary: AmigoCommand, Opcode: 0x2b, Params: 1, Dir: bus.Listen, Exec: true, Op: OpInitialize},

		{Name: "Buffered Write", Secondary: AmigoBuffered, Opcode: 0x08, Params: 1, Dir: bus.Listen, Exec: true, Op: OpBufferedWrite},

		{Name: "Request Status", Secondary: AmigoRead, Opcode: 0x03, Params: 1, Dir: bus.Talk, Op: OpStatus},
		{Name: "Buffered Read", Secondary: AmigoRead, Opcode: 0x05, Params: 1, Dir: bus.Talk, Exec: true, Op: OpBufferedRead},
		{Name: "Request Status", Secondary: AmigoRead, Opcode: 0x08, Params: 1, Dir: bus.Talk, Op: OpStatus},
		{Name: "Request Physical Address", Secondary: AmigoRead, Opcode: 0x14, Params: 1, Dir: bus.Talk, Op: OpLogicalAddress},

		{Name: "Request Physical Address", Secondary: AmigoFormat, Opcode: 0x14, Params: 1, Dir: bus.Talk, Op: OpLogicalAddress},
		{Name: "Format", Secondary: AmigoFormat, Opcode: 0x18, Params: 4, Op: OpFormat},
		{Name: "Door Lock", Secondary: AmigoFormat, Opcode: 0x19, Params: 1, Op: OpDoorLock},
		{Name: "Door Unlock", Secondary: AmigoFormat, Opcode: 0x1a, Params: 1, Op: OpDoorUnlock},
	}
}

// Build SS80 opcode table.
func SS80() *Table {
	return newTable(device.SS80, ss80Descriptors(), map[phaseKey]Phase{
		{SS80Command, bus.Listen}:     PhaseCommand,
		{SS80Execute, bus.Listen}:     PhaseExecute,
		{SS80Execute, bus.Talk}:       PhaseExecute,
		{SS80Report, bus.Talk}:        PhaseReport,
		{SS80Report, bus.Listen}:      PhaseClear,
		{SS80Transparent, bus.Listen}: PhaseTransparent,
	})
}

// Build AMIGO opcode table.
func AMIGO() *Table {
	return newTable(device.AMIGO, amigoDescriptors(), map[phaseKey]Phase{
		{AmigoExecute, bus.Listen}:  PhaseExecute,
		{AmigoExecute, bus.Talk}:    PhaseExecute,
		{AmigoCommand, bus.Talk}:    PhaseStatus,
		{AmigoCommand, bus.Listen}:  PhaseCommand,
		{AmigoBuffered, bus.Listen}: PhaseCommand,
		{AmigoRead, bus.Listen}:     PhaseCommand,
		{AmigoFormat, bus.Listen}:   PhaseCommand,
		{AmigoReport, bus.Talk}:     PhaseReport,
		{AmigoReport, bus.Listen}:   PhaseClear,
	})
}

// Table for family.
func ForFamily(family device.Family) *Table {
	if family == device.AMIGO {
		return AMIGO()
	}
	return SS80()
}
