/*
 * HPDisk - Console command definitions.
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

package command

import "github.com/rcornwell/hpdisk/emu/master"

// Parsed console option.
type CmdOption struct {
	Name     string // Name of option.
	EqualOpt string // Value of string after =.
	Value    uint32 // Numeric value.
}

// List of option types.
const (
	OptionSwitch = 1 + iota
	OptionFile
	OptionNumber
	OptionHex
	OptionList
)

const (
	ValidAttach = 1 << iota
	ValidSet
	ValidFault
	ValidFormat
)

type Options struct {
	Name        string   // Name of option.
	OptionType  int      // Type of argument.
	OptionValid int      // Option valid for command type.
	OptionList  []string // List of valid options for this options.
}

// Conditions the operator may inject.
var Conditions = []string{
	"unknowncommand", "shorttransaction", "parametererror", "aborted",
	"writeprotect", "notready", "mediafault", "hardwarefault",
}

// Options understood by disk units.
var UnitOptions = []Options{
	{Name: "file", OptionType: OptionFile, OptionValid: ValidAttach},
	{Name: "ro", OptionType: OptionSwitch, OptionValid: ValidAttach | ValidSet},
	{Name: "rw", OptionType: OptionSwitch, OptionValid: ValidSet},
	{Name: "online", OptionType: OptionSwitch, OptionValid: ValidSet},
	{Name: "offline", OptionType: OptionSwitch, OptionValid: ValidSet},
	{Name: "fill", OptionType: OptionHex, OptionValid: ValidFormat},
	{Name: "condition", OptionType: OptionList, OptionValid: ValidFault, OptionList: Conditions},
}

// Sender carries console requests to the emulator core.
type Sender interface {
	Send(packet master.Packet) master.Result
}
