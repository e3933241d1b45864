/*
 * HPDisk - Command decoder for SS80 and AMIGO opcode tables.
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
	"fmt"

	"github.com/rcornwell/hpdisk/emu/bus"
	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
)

// Operation handled by a state machine.
type Op uint8

const (
	OpNone Op = iota

	// SS80 command message.
	OpLocateRead
	OpLocateWrite
	OpLocateVerify
	OpRequestStatus
	OpRelease
	OpReleaseDenied
	OpSetAddress
	OpSetLength
	OpSetUnit
	OpValidateKey
	OpInitiateDiag
	OpNoOp
	OpDescribe
	OpInitMedia
	OpSetRPS
	OpSetRelease
	OpSetStatusMask
	OpSetVolume
	OpSetReturnMode
	OpDoorUnlock
	OpDoorLock

	// SS80 transparent message.
	OpParity
	OpReadLoopback
	OpWriteLoopback
	OpChannelClear
	OpCancel

	// AMIGO commands.
	OpColdLoad
	OpSeek
	OpStatus
	OpUnbufferedRead
	OpVerify
	OpUnbufferedWrite
	OpInitialize
	OpLogicalAddress
	OpEnd
	OpBufferedWrite
	OpBufferedRead
	OpFormat
)

// Bus phase selected by secondary address.
type Phase uint8

const (
	PhaseUnknown     Phase = iota
	PhaseCommand           // Command message.
	PhaseExecute           // Data transfer.
	PhaseReport            // QSTAT or DSJ.
	PhaseClear             // Amigo clear.
	PhaseTransparent       // SS80 transparent message.
	PhaseStatus            // AMIGO send status or address.
)

var phaseNames = [...]string{"unknown", "command", "execute", "report", "clear", "transparent", "status"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Static description of one opcode.
type Descriptor struct {
	Name      string        // Mnemonic.
	Secondary uint8         // Secondary address opcode is valid on.
	Opcode    uint8         // First opcode.
	Span      uint8         // Number of opcodes covered, 0 means 1.
	Params    int           // Parameter bytes following opcode.
	AltParams int           // Alternate parameter length, 0 none.
	Dir       bus.Direction // Direction of execute phase.
	Exec      bool          // Needs execute phase.
	Op        Op            // Operation.
	Final     bool          // Ends a command message.
}

// Decoded command.
type Command struct {
	*Descriptor
	Opcode uint8  // Opcode byte received.
	Params []byte // Parameter bytes.
}

// Low bits of ranged opcodes, unit or volume number.
func (c Command) Index() uint8 {
	return c.Opcode - c.Descriptor.Opcode
}

// Bytes of message used by command.
func (c Command) Len() int {
	return 1 + len(c.Params)
}

type phaseKey struct {
	sec uint8
	dir bus.Direction
}

// Opcode table of one protocol family.
type Table struct {
	Family      device.Family
	descriptors []*Descriptor
	phases      map[phaseKey]Phase
}

// Build table from descriptors.
func newTable(family device.Family, descs []Descriptor, phases map[phaseKey]Phase) *Table {
	t := &Table{Family: family, phases: phases}
	for i := range descs {
		t.descriptors = append(t.descriptors, &descs[i])
	}
	return t
}

// Find descriptor for opcode on secondary.
func (t *Table) Lookup(sec, opcode uint8) (*Descriptor, bool) {
	for _, d := range t.descriptors {
		if d.Secondary != sec {
			continue
		}
		span := d.Span
		if span == 0 {
			span = 1
		}
		if opcode >= d.Opcode && opcode-d.Opcode < span {
			return d, true
		}
	}
	return nil, false
}

// Classify a secondary address and direction.
func (t *Table) Phase(sec uint8, dir bus.Direction) (Phase, error) {
	p, ok := t.phases[phaseKey{sec, dir}]
	if !ok {
		return PhaseUnknown, fmt.Errorf("%s secondary %02x %s: %w", t.Family, sec, dir, fault.ErrUnknownCommand)
	}
	return p, nil
}

// Decode first command in buf. No state is changed.
func (t *Table) Decode(sec uint8, buf []byte) (Command, error) {
	if len(buf) == 0 {
		return Command{}, fmt.Errorf("%s secondary %02x empty command: %w", t.Family, sec, fault.ErrShortTransaction)
	}
	desc, ok := t.Lookup(sec, buf[0])
	if !ok {
		return Command{Opcode: buf[0]}, fmt.Errorf("%s opcode %02x on %02x: %w", t.Family, buf[0], sec, fault.ErrUnknownCommand)
	}
	params := desc.Params
	if desc.AltParams != 0 && len(buf)-1 >= desc.AltParams {
		params = desc.AltParams
	}
	if len(buf)-1 < params {
		return Command{Descriptor: desc, Opcode: buf[0]},
			fmt.Errorf("%s %s needs %d bytes got %d: %w", t.Family, desc.Name, params, len(buf)-1, fault.ErrShortTransaction)
	}
	return Command{Descriptor: desc, Opcode: buf[0], Params: buf[1 : 1+params]}, nil
}
