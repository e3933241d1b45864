/*
 * HPDisk - Debug trace output.
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

package debug

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	config "github.com/rcornwell/hpdisk/config/configparser"
)

var (
	mu      sync.Mutex
	logFile io.Writer
	file    *os.File
)

func output(prefix string, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return
	}
	fmt.Fprintf(logFile, prefix+": "+format+"\n", a...)
}

// Generic debug message.
func Debugf(module string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		output(module, format, a...)
	}
}

// Device debug message, tagged with bus address.
func DebugDevf(addr uint8, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		output("HPIB "+strconv.FormatUint(uint64(addr), 10), format, a...)
	}
}

// Direct debug output to writer, nil disables.
func SetOutput(w io.Writer) {
	mu.Lock()
	logFile = w
	mu.Unlock()
}

// Close debug file if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logFile = nil
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// register a device on initialize.
func init() {
	config.RegisterFile("DEBUGFILE", create)
}

// Open debug trace file.
func create(_ config.System, _ uint16, fileName string, _ []config.Option) error {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		return fmt.Errorf("can't have more then one debug file, previous: %s", file.Name())
	}

	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %s", fileName)
	}

	file = f
	logFile = f
	return nil
}
