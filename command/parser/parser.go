/*
 * HPDisk - Console command parser.
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

package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	command "github.com/rcornwell/hpdisk/command/command"
	"github.com/rcornwell/hpdisk/emu/device"
)

// Where command output goes.
var Output io.Writer = os.Stdout

type cmd struct {
	Name     string // Command name.
	Min      int    // Minimum match size.
	Process  func(*cmdLine, command.Sender) (bool, error)
	Complete func(*cmdLine) []string
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

// Execute the command line given, returns true when console should exit.
func ProcessCommand(commandLine string, core command.Sender) (bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)
	if name == "" {
		if !line.isEOL() {
			return false, errors.New("invalid command: " + strings.TrimSpace(commandLine))
		}
		return false, nil
	}

	match := matchList(name)
	if len(match) == 0 {
		return false, errors.New("command not found: " + name)
	}

	if len(match) > 1 {
		return false, errors.New("unique command not found: " + name)
	}

	return match[0].Process(&line, core)
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, name string) bool {
	if len(name) > len(match.Name) {
		return false
	}
	return strings.HasPrefix(match.Name, name) && len(name) >= match.Min
}

// Check if command matches one of the commands.
func matchList(name string) []cmd {
	// If command empty just return.
	if name == "" {
		return []cmd{}
	}

	// Try and match one command.
	var match []cmd
	for _, m := range cmdList {
		if matchCommand(m, name) {
			match = append(match, m)
		}
	}
	return match
}

// Match list of options.
func matchOption(option string, optList []command.Options, cmdType int) command.Options {
	for _, opt := range optList {
		if (opt.OptionValid & cmdType) == 0 {
			continue
		}
		if opt.Name == option {
			return opt
		}
	}
	return command.Options{OptionType: -1}
}

// Skip forward over line until none whitespace character found.
func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *cmdLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}

	return line.line[line.pos] == '#'
}

// Return current character and advance to next.
func (line *cmdLine) getCurrent() byte {
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	line.pos++
	return by
}

// Look at current character without moving.
func (line *cmdLine) peek() byte {
	if line.isEOL() {
		return 0
	}
	return line.line[line.pos]
}

// Check if at end of word.
func (line *cmdLine) atSeparator() bool {
	return line.isEOL() || unicode.IsSpace(rune(line.line[line.pos]))
}

// Parse string that is "string" or just string.
func (line *cmdLine) parseQuoteString() (string, bool) {
	line.skipSpace()
	if line.isEOL() {
		return "", false
	}

	var value strings.Builder
	if line.line[line.pos] != '"' {
		for !line.atSeparator() {
			value.WriteByte(line.getCurrent())
		}
		return value.String(), true
	}

	// In a quoted string "" gets replaced by a single quote.
	line.pos++
	for line.pos < len(line.line) {
		by := line.line[line.pos]
		line.pos++
		if by == '"' {
			if line.pos < len(line.line) && line.line[line.pos] == '"' {
				line.pos++
			} else {
				return value.String(), true
			}
		}
		value.WriteByte(by)
	}
	return value.String(), false
}

// Parse a decimal number.
func (line *cmdLine) getNumber() (uint32, error) {
	line.skipSpace()

	// Check if end of line.
	if line.isEOL() {
		return 0, errors.New("not a number")
	}

	value := uint32(0)
	for !line.atSeparator() {
		by := line.getCurrent()
		if !unicode.IsDigit(rune(by)) {
			return 0, errors.New("not a number")
		}
		value = (value * 10) + uint32(by-'0')
	}

	return value, nil
}

const hex = "0123456789abcdef"

// Parse hex number.
func (line *cmdLine) getHex() (uint32, error) {
	line.skipSpace()
	if line.isEOL() {
		return 0, errors.New("not a number")
	}

	pos := line.pos
	value := uint32(0)
	for !line.atSeparator() {
		digit := strings.IndexByte(hex, byte(unicode.ToLower(rune(line.getCurrent()))))
		if digit == -1 {
			line.pos = pos
			return 0, errors.New("not a number")
		}
		value = (value << 4) + uint32(digit)
	}

	return value, nil
}

// Parse option name.
// Stops at = if equal set, the = is left in line.
func (line *cmdLine) getWord(equal bool) string {
	line.skipSpace()

	// Characters must be alphabetic
	pos := line.pos
	value := ""
	for !line.atSeparator() {
		by := line.line[line.pos]
		if by == '=' && equal {
			break
		}
		if !unicode.IsLetter(rune(by)) {
			line.pos = pos
			return ""
		}
		value += string([]byte{by})
		line.pos++
	}

	return strings.ToLower(value)
}

// Parse unit address as addr.unit, unit defaults to 0.
func (line *cmdLine) getAddress() (uint16, error) {
	line.skipSpace()
	if line.isEOL() {
		return device.NoDev, errors.New("device address required")
	}

	pos := line.pos
	part := []uint32{0}
	digits := 0
	for !line.atSeparator() {
		by := line.getCurrent()
		switch {
		case by == '.' && len(part) == 1 && digits != 0:
			part = append(part, 0)
			digits = 0
		case unicode.IsDigit(rune(by)):
			part[len(part)-1] = part[len(part)-1]*10 + uint32(by-'0')
			digits++
		default:
			line.pos = pos
			return device.NoDev, errors.New("invalid device address: " + line.line[pos:])
		}
	}
	if digits == 0 {
		return device.NoDev, errors.New("invalid device address: " + line.line[pos:line.pos])
	}
	if part[0] > uint32(device.MaxAddress) {
		return device.NoDev, fmt.Errorf("bus address %d too large", part[0])
	}
	unit := uint32(0)
	if len(part) == 2 {
		unit = part[1]
	}
	if unit >= uint32(device.MaxUnit) {
		return device.NoDev, fmt.Errorf("unit %d too large", unit)
	}
	return device.DevNum(uint8(part[0]), uint8(unit)), nil
}

// Parse address or all, all and empty return NoDev.
func (line *cmdLine) getAddressOrAll() (uint16, error) {
	line.skipSpace()
	if line.isEOL() {
		return device.NoDev, nil
	}
	pos := line.pos
	if line.getWord(false) == "all" {
		return device.NoDev, line.checkEOL()
	}
	line.pos = pos
	devNum, err := line.getAddress()
	if err != nil {
		return devNum, err
	}
	return devNum, line.checkEOL()
}

// Make sure nothing left on line.
func (line *cmdLine) checkEOL() error {
	line.skipSpace()
	if !line.isEOL() {
		return errors.New("unexpected text: " + line.line[line.pos:])
	}
	return nil
}

// Get an option.
func (line *cmdLine) getOption(opts []command.Options, cmdType int) (*command.CmdOption, error) {
	line.skipSpace()
	if line.isEOL() {
		return nil, nil
	}

	// Get a word, stoping at equal or space.
	pos := line.pos
	name := line.getWord(true)
	equal := line.peek() == '='
	match := matchOption(name, opts, cmdType)

	if !equal && match.OptionType != command.OptionSwitch {
		// Bare values.
		line.pos = pos
		switch cmdType {
		case command.ValidAttach:
			file, ok := line.parseQuoteString()
			if !ok {
				return nil, errors.New("file name not valid")
			}
			return &command.CmdOption{Name: "file", EqualOpt: file}, nil
		case command.ValidFault:
			return line.getListValue(matchOption("condition", opts, cmdType), "condition")
		}
		if name == "" || match.OptionType == -1 {
			return nil, errors.New("unknown option: " + line.line[pos:])
		}
		return nil, errors.New("option must be followed by =: " + name)
	}

	opt := command.CmdOption{Name: name}
	switch match.OptionType {
	case -1:
		return nil, errors.New("unknown option: " + name)
	case command.OptionSwitch:
		if equal {
			return nil, errors.New("switch option can't have arguments: " + name)
		}
		return &opt, nil
	}

	line.pos++
	switch match.OptionType {
	case command.OptionFile:
		file, ok := line.parseQuoteString()
		if !ok {
			return nil, errors.New("file name not valid: " + name)
		}
		opt.EqualOpt = file
	case command.OptionNumber:
		num, err := line.getNumber()
		if err != nil {
			return nil, errors.New("number options must be followed by number: " + name)
		}
		opt.Value = num
	case command.OptionHex:
		num, err := line.getHex()
		if err != nil {
			return nil, errors.New("hex options must be followed by hexadecimal number: " + name)
		}
		opt.Value = num
	case command.OptionList:
		return line.getListValue(match, name)
	default:
		return nil, errors.New("invalid option type: " + name)
	}
	return &opt, nil
}

// Read a list value and check it.
func (line *cmdLine) getListValue(match command.Options, name string) (*command.CmdOption, error) {
	value := line.getWord(false)
	if value == "" || !line.atSeparator() {
		return nil, errors.New("option must be followed by name: " + name)
	}
	for _, mod := range match.OptionList {
		if strings.ToLower(mod) == value {
			return &command.CmdOption{Name: name, EqualOpt: value}, nil
		}
	}
	return nil, errors.New("option not valid for type: " + value)
}

// Scan options and return a list of options.
func (line *cmdLine) getOptions(cmdType int) ([]*command.CmdOption, error) {
	optlist := []*command.CmdOption{}
	for {
		opt, err := line.getOption(command.UnitOptions, cmdType)
		if err != nil {
			return optlist, err
		}
		if opt == nil {
			return optlist, nil
		}
		optlist = append(optlist, opt)
	}
}
