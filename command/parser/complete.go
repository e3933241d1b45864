/*
 * HPDisk - Console command completion.
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
	"slices"
	"strings"
	"unicode"

	command "github.com/rcornwell/hpdisk/command/command"
)

// Called to complete a command line, during line editing.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)

	// We have a command, let it try and complete it.
	if !line.isEOL() {
		// See if there is a completer for this command.
		match := matchList(name)
		if len(match) != 1 || match[0].Complete == nil {
			return nil
		}
		return match[0].Complete(&line)
	}

	// Try and match one command.
	var matches []string
	for _, m := range cmdList {
		if strings.HasPrefix(m.Name, name) {
			matches = append(matches, m.Name)
		}
	}
	slices.Sort(matches)
	return matches
}

// Split rest of line into text before last word and last word.
func (line *cmdLine) lastWord() (string, string) {
	rest := line.line[line.pos:]
	cut := strings.LastIndexFunc(rest, unicode.IsSpace) + 1
	return line.line[:line.pos+cut], strings.ToLower(rest[cut:])
}

// Options that start with name.
func scanOpt(name string, opts []command.Options, cmdType int) []command.Options {
	matches := []command.Options{}
	for _, opt := range opts {
		if (opt.OptionValid & cmdType) == 0 {
			continue
		}
		if opt.Name == name {
			return []command.Options{opt}
		}

		if name == "" || strings.HasPrefix(opt.Name, name) {
			matches = append(matches, opt)
		}
	}

	return matches
}

// Complete options after unit address.
func optionComplete(cmdType int) func(*cmdLine) []string {
	return func(line *cmdLine) []string {
		if _, err := line.getAddress(); err != nil || line.isEOL() {
			return nil
		}
		leading, last := line.lastWord()
		matches := []string{}

		if name, value, ok := strings.Cut(last, "="); ok {
			opt := matchOption(name, command.UnitOptions, cmdType)
			if opt.OptionType != command.OptionList {
				return nil
			}
			for _, v := range opt.OptionList {
				if strings.HasPrefix(v, value) {
					matches = append(matches, leading+name+"="+v+" ")
				}
			}
			return matches
		}

		for _, opt := range scanOpt(last, command.UnitOptions, cmdType) {
			eq := " "
			if opt.OptionType != command.OptionSwitch {
				eq = "="
			}
			matches = append(matches, leading+opt.Name+eq)
		}
		if cmdType == command.ValidFault {
			for _, c := range command.Conditions {
				if strings.HasPrefix(c, last) {
					matches = append(matches, leading+c+" ")
				}
			}
		}
		slices.Sort(matches)
		return matches
	}
}

// Complete commands that take all.
func allComplete(line *cmdLine) []string {
	leading, last := line.lastWord()
	if strings.TrimSpace(leading) != strings.TrimSpace(line.line[:line.pos]) {
		return nil
	}
	if strings.HasPrefix("all", last) {
		return []string{leading + "all"}
	}
	return nil
}
