/*
 * HPDisk - Log output handler test set.
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

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTest(debug bool) (*LogHandler, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	h := NewHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}, &debug)
	h.stderr = &errOut
	return h, &out, &errOut
}

func TestHandlerAttrs(t *testing.T) {
	h, out, _ := newTest(false)
	log := slog.New(h).With("unit", "2.0").WithGroup("io")
	log.Info("read", "block", 12)
	line := out.String()
	assert.Contains(t, line, "INFO: read")
	assert.Contains(t, line, "unit=2.0")
	assert.Contains(t, line, "io.block=12")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestHandlerStderr(t *testing.T) {
	h, out, errOut := newTest(false)
	log := slog.New(h)
	log.Debug("trace")
	assert.Contains(t, out.String(), "DEBUG: trace")
	assert.Empty(t, errOut.String())

	log.Warn("offline")
	assert.Contains(t, errOut.String(), "WARN: offline")

	debug := true
	h.SetDebug(&debug)
	log.Debug("again")
	assert.Contains(t, errOut.String(), "DEBUG: again")
}
