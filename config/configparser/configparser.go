/*
 * HPDisk - Configuration file parser.
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

package configparser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	D "github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
)

// What configuration lines can build into.
type System interface {
	Device(addr uint8) D.Device   // Device at bus address, nil if none.
	AddDevice(dev D.Device) error // Put device on bus.
	Registry() *registry.Registry // Emulated units.
	Faults() *fault.Model         // Fault latches.
}

// List of options to pass to create routine.
type Option struct {
	Name     string    // Name of option.
	EqualOpt string    // Value of string after =.
	Value    []*string // Value of option.
}

// Option after model.
type FirstOption struct {
	devNum uint16 // Bus address and unit.
	isAddr bool   // Valid address in devNum
	value  string // String value of option.
}

// Current option line being parsed.
type optionLine struct {
	line string // Current option line.
	pos  int    // Current position in line.
}

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <model> <whitespace> <address> <whitespace> <options> |
 *            <file> <quoteopt> |
 *            <option> <string> *(<commaopt>)
 * <model> := <string>
 * <address> ::= <number> ['.' <number>]
 * <options> ::= *(<option> *(<whitespace>))
 * <option> ::= *<value> (<whitespace> | <eol>
 * <value> ::= <opt> *(',' *(<whitespace>) <string>
 * <opt> := <valueopt> | <string>
 * <commaopt> ::= ',' *(<whitespace>) <string>
 * <optvalue> ::= <string>' =' <quoteopt>
 * <quoteopt> ::= <word> | '"' *(<letter> | <whitespace>) '"'
 * <word> ::= *(any character but whitespace or ',')
 * <string> ::= *(<letter> | <number>)
 */

const (
	TypeModel   = 1 + iota // Generic device.
	TypeFile               // Takes a file name.
	TypeOption             // Accepts a option parameter.
	TypeOptions            // Accepts a list of options.
	TypeSwitch             // Option only used to set a flag.
)

type createFunc func(System, uint16, string, []Option) error

// Model creation list.
type modelDef struct {
	create createFunc
	ty     int
}

var models = map[string]modelDef{}

func register(mod string, ty int, fn createFunc) {
	models[strings.ToUpper(mod)] = modelDef{create: fn, ty: ty}
}

// Register should be called from init functions.
func RegisterModel(mod string, ty int, fn func(System, uint16, string, []Option) error) {
	register(mod, ty, fn)
}

// Register should be called from init functions.
func RegisterSwitch(mod string, fn func(System, uint16, string, []Option) error) {
	register(mod, TypeSwitch, fn)
}

// Register should be called from init functions.
func RegisterOption(mod string, fn func(System, uint16, string, []Option) error) {
	register(mod, TypeOption, fn)
}

// Register an option that names a file.
func RegisterFile(mod string, fn func(System, uint16, string, []Option) error) {
	register(mod, TypeFile, fn)
}

// Load in a configuration file.
func LoadConfigFile(sys System, name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(sys, file)
}

// Load configuration from reader.
func LoadConfig(sys System, rd io.Reader) error {
	scanner := bufio.NewScanner(rd)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := optionLine{line: scanner.Text()}
		if err := line.parseLine(sys); err != nil {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}
	}
	return scanner.Err()
}

// Parse one line from file.
func (line *optionLine) parseLine(sys System) error {
	name := line.parseModel()
	if name == "" {
		if !line.isEOL() {
			return fmt.Errorf("invalid line at [%d]", line.pos)
		}
		return nil
	}
	def, ok := models[name]
	if !ok {
		return fmt.Errorf("no type: %s registered", name)
	}

	switch def.ty {
	case TypeModel:
		// Get device number
		first := line.parseFirst()
		if first == nil || !first.isAddr {
			return fmt.Errorf("device %s requires bus address", name)
		}
		// Get any remaining options.
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return def.create(sys, first.devNum, "", options)

	case TypeFile:
		line.skipSpace()
		if line.isEOL() {
			return fmt.Errorf("option: %s not followed by file name", name)
		}
		line.pos--
		file, ok := line.parseQuoteString()
		line.skipSpace()
		if !ok || !line.isEOL() || file == "" {
			return fmt.Errorf("option: %s invalid file name", name)
		}
		return def.create(sys, D.NoDev, file, nil)

	case TypeOption:
		first := line.parseFirst()
		line.skipSpace()
		if !line.isEOL() || first == nil {
			return fmt.Errorf("option: %s not followed by value", name)
		}
		return def.create(sys, first.devNum, first.value, nil)

	case TypeOptions:
		first := line.parseFirst()
		if first == nil {
			return fmt.Errorf("option: %s not followed by value", name)
		}
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return def.create(sys, first.devNum, first.value, options)

	case TypeSwitch:
		line.skipSpace()
		if !line.isEOL() {
			return fmt.Errorf("switch option: %s followed by options", name)
		}
		return def.create(sys, D.NoDev, "", nil)
	}
	return fmt.Errorf("invalid type %d for %s", def.ty, name)
}

// Skip forward over line until none whitespace character found.
func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line or at comment.
func (line *optionLine) isEOL() bool {
	return line.pos >= len(line.line) || line.line[line.pos] == '#'
}

// Return next letter or digit in line. 0 if EOL or space.
func (line *optionLine) getNext(inQuote bool) byte {
	line.pos++
	if line.pos >= len(line.line) {
		return 0
	}
	by := line.line[line.pos]
	if inQuote {
		return by
	}
	if line.isEOL() {
		return 0
	}
	if unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by)) {
		return by
	}
	return 0
}

// Return next character of an unquoted word. 0 at end.
func (line *optionLine) getWordNext() byte {
	line.pos++
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	if unicode.IsSpace(rune(by)) || by == ',' {
		return 0
	}
	return by
}

// Peek at next character.
func (line *optionLine) getPeek() byte {
	if (line.pos + 1) >= len(line.line) {
		return 0
	}
	return line.line[line.pos+1]
}

// Parse model name, empty on blank line.
func (line *optionLine) parseModel() string {
	line.skipSpace()
	start := line.pos
	for !line.isEOL() {
		by := rune(line.line[line.pos])
		if !unicode.IsLetter(by) && !unicode.IsNumber(by) {
			break
		}
		line.pos++
	}
	return strings.ToUpper(line.line[start:line.pos])
}

// Parse bus address as addr or addr.unit.
func parseAddress(value string) (uint16, bool) {
	addrStr, unitStr, hasUnit := strings.Cut(value, ".")
	addr, err := strconv.ParseUint(addrStr, 10, 8)
	if err != nil || addr > uint64(D.MaxAddress) {
		return D.NoDev, false
	}
	unit := uint64(0)
	if hasUnit {
		unit, err = strconv.ParseUint(unitStr, 10, 8)
		if err != nil || unit > uint64(D.MaxUnit) {
			return D.NoDev, false
		}
	}
	return D.DevNum(uint8(addr), uint8(unit)), true
}

// Parse first option parameter.
func (line *optionLine) parseFirst() *FirstOption {
	// Skip leading space
	line.skipSpace()
	// Check if end of line.
	if line.isEOL() {
		return nil
	}

	value := ""
	for {
		if line.isEOL() {
			break
		}
		by := line.line[line.pos]
		if unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by)) || by == '.' {
			value += string([]byte{by})
			line.pos++
			continue
		}
		break
	}

	option := FirstOption{devNum: D.NoDev, value: value}

	devNum, ok := parseAddress(value)
	if ok {
		option.devNum = devNum
		option.isAddr = true
	}
	return &option
}

// Parse string that is "string" or just string.
func (line *optionLine) parseQuoteString() (string, bool) {
	inQuote := false
	value := ""

	// If quote, set we are in quoted string
	if line.getPeek() == '"' {
		inQuote = true
		_ = line.getNext(true)
	}

	for {
		var by byte
		if inQuote {
			by = line.getNext(true)
		} else {
			by = line.getWordNext()
		}
		// If processing a quoted string "" gets replaced by signal quote
		if by == '"' && inQuote {
			by = line.getNext(inQuote)
			if by != '"' {
				// Hit end of string.
				return value, true
			}
		}

		// Space or comma terminates a no quoted string.
		if by == 0 || (by == '\n' && inQuote) {
			return value, !inQuote
		}

		value += string(by)
	}
}

// Parse option name.
func (line *optionLine) getName() (string, error) {
	// Check if end of line.
	if line.isEOL() {
		return "", nil
	}

	// First character must be alphabetic.
	by := line.line[line.pos]
	if !unicode.IsLetter(rune(by)) {
		if !line.isEOL() {
			return "", fmt.Errorf("invalid option encountered [%d]", line.pos)
		}
		return "", nil
	}
	value := ""

	// Already verified that first character is letter,
	// so grab until not letter or number.
	for {
		value += string([]byte{by})
		by = line.getNext(false)
		if by == 0 {
			break
		}
	}

	return value, nil
}

// Parse options for a line.
func (line *optionLine) parseOption() (*Option, error) {
	// Skip leading space
	line.skipSpace()

	// Grab option name
	value, err := line.getName()
	if value == "" {
		return nil, err
	}

	// Empty option.
	option := Option{Name: value}

	// If at end of line done.
	if line.isEOL() {
		return &option, nil
	}

	// Check if equals option.
	if line.line[line.pos] == '=' {
		v, ok := line.parseQuoteString()
		if ok {
			option.EqualOpt = v
		} else {
			return nil, fmt.Errorf("invalid quoted string [%d]", line.pos)
		}
	}

	// Skip any spaces.
	line.skipSpace()

	// Grab all , options
	for !line.isEOL() && line.line[line.pos] == ',' {
		line.pos++ // Skip comma
		// Skip space between , and next option
		line.skipSpace()
		v, err := line.getName()
		if err != nil {
			return nil, err
		}
		if v != "" {
			option.Value = append(option.Value, &v)
		}
		// Skip any trailing spaces.
		line.skipSpace()
	}

	return &option, nil
}

// Collect all options for line.
func (line *optionLine) parseOptions() ([]Option, error) {
	options := []Option{}
	for {
		option, err := line.parseOption()
		if err != nil {
			return nil, err
		}
		if option == nil {
			break
		}
		options = append(options, *option)
	}
	return options, nil
}
