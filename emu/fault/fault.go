/*
 * HPDisk - Unit fault and status model.
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

package fault

import (
	"errors"
	"strings"

	"github.com/rcornwell/hpdisk/emu/device"
)

// Condition bits held in a fault record.
type Condition uint16

const (
	UnknownCommand   Condition = 1 << iota // Opcode not in family table.
	ShortTransaction                       // Fewer bytes than required.
	ParameterError                         // Bad address or geometry.
	Aborted                                // Transaction abandoned.
	WriteProtect                           // Write to protected media.
	NotReady                               // Unit offline or no media.
	MediaFault                             // Backing store failure.
	HardwareFault                          // Requires reset to clear.
	None             Condition = 0
)

// Lowest to highest severity.
var severity = []Condition{
	Aborted,
	UnknownCommand,
	ShortTransaction,
	ParameterError,
	WriteProtect,
	MediaFault,
	NotReady,
	HardwareFault,
}

// Conditions that shadow everything below them.
const fatal = NotReady | MediaFault | HardwareFault

var conditionNames = map[Condition]string{
	UnknownCommand:   "unknown command",
	ShortTransaction: "short transaction",
	ParameterError:   "parameter error",
	Aborted:          "aborted",
	WriteProtect:     "write protect",
	NotReady:         "not ready",
	MediaFault:       "media fault",
	HardwareFault:    "hardware fault",
}

func (c Condition) String() string {
	if c == None {
		return "none"
	}
	names := []string{}
	for i := len(severity) - 1; i >= 0; i-- {
		if c&severity[i] != 0 {
			names = append(names, conditionNames[severity[i]])
		}
	}
	return strings.Join(names, ",")
}

// Return condition by name.
func Parse(name string) (Condition, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range conditionNames {
		if n == name || strings.ReplaceAll(n, " ", "") == name {
			return c, true
		}
	}
	return None, false
}

// Check if condition is one of the fatal ones.
func (c Condition) Fatal() bool {
	return c&fatal != 0
}

// Highest severity condition set.
func (c Condition) Highest() Condition {
	for i := len(severity) - 1; i >= 0; i-- {
		if c&severity[i] != 0 {
			return severity[i]
		}
	}
	return None
}

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrShortTransaction = errors.New("short transaction")
	ErrParameter        = errors.New("parameter error")
	ErrNotReady         = errors.New("unit not ready")
	ErrMedia            = errors.New("media fault")
	ErrHardware         = errors.New("hardware fault")
	ErrWriteProtect     = errors.New("write protected")
	ErrAborted          = errors.New("transaction aborted")
)

var errConditions = []struct {
	err  error
	cond Condition
}{
	{ErrHardware, HardwareFault},
	{ErrNotReady, NotReady},
	{ErrMedia, MediaFault},
	{ErrWriteProtect, WriteProtect},
	{ErrParameter, ParameterError},
	{ErrShortTransaction, ShortTransaction},
	{ErrUnknownCommand, UnknownCommand},
	{ErrAborted, Aborted},
}

// Map an error to the condition it reports. Unknown errors are media faults.
func Classify(err error) Condition {
	if err == nil {
		return None
	}
	for _, ec := range errConditions {
		if errors.Is(err, ec.err) {
			return ec.cond
		}
	}
	return MediaFault
}

// Return sentinel error for highest condition.
func (c Condition) Err() error {
	h := c.Highest()
	for _, ec := range errConditions {
		if ec.cond == h {
			return ec.err
		}
	}
	return nil
}

// Fault clearing policy for a protocol family.
type Policy uint8

const (
	ClearOnRead Policy = iota // Status request clears transient faults.
	Sticky                    // Faults stay until clear command.
)

func (p Policy) String() string {
	if p == Sticky {
		return "sticky"
	}
	return "read"
}

// Parse policy name used in configuration.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToUpper(name) {
	case "READ", "CLEARONREAD":
		return ClearOnRead, nil
	case "STICKY":
		return Sticky, nil
	}
	return ClearOnRead, errors.New("invalid fault policy: " + name)
}

// Identity of a unit within the model.
type UnitID struct {
	Family device.Family
	Bus    uint8 // Primary bus address.
	Unit   uint8 // Unit number on address.
}

// Secondary information returned on status request.
type Extended struct {
	Block       uint64 // Failing or current block address.
	Transferred uint32 // Blocks completed.
	Requested   uint32 // Blocks asked for.
	Write       bool   // Failure was on write.
	Opcode      uint8  // Command that faulted.
}

// Pending fault state of one unit.
type Record struct {
	Pending  Condition // All latched conditions.
	Extended Extended  // Detail of last fault.
}

// Conditions as seen by host, fatal shadows lesser ones.
func (r Record) Conditions() Condition {
	if r.Pending&fatal != 0 {
		return r.Pending.Highest()
	}
	return r.Pending
}

// Highest pending condition.
func (r Record) Highest() Condition {
	return r.Pending.Highest()
}

// Check if any fault pending.
func (r Record) Faulted() bool {
	return r.Pending != None
}
