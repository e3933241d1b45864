/*
 * HPDisk - Hex formatting test set.
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

package hex

import (
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	var str strings.Builder
	FormatBytes(&str, true, []byte{0x00, 0x5a, 0xff})
	if str.String() != "00 5A FF " {
		t.Errorf("FormatBytes got: '%s'", str.String())
	}
	str.Reset()
	FormatBytes(&str, false, []byte{0x12, 0x34})
	FormatByte(&str, 0xab)
	if str.String() != "1234AB" {
		t.Errorf("FormatBytes no space got: '%s'", str.String())
	}
	str.Reset()
	FormatHalf(&str, 0x0a10)
	if str.String() != "0A10" {
		t.Errorf("FormatHalf got: '%s'", str.String())
	}
}

func TestDump(t *testing.T) {
	data := []byte("HP-IB disk\x00\x01")
	for i := 0; i < 6; i++ {
		data = append(data, byte(0x30+i))
	}
	out := Dump(data)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Dump line count %d: %s", len(lines), out)
	}
	expect := "0000  48 50 2D 49 42 20 64 69 73 6B 00 01 30 31 32 33  HP-IB disk..0123"
	if lines[0] != expect {
		t.Errorf("Dump line 0 got: '%s'", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0010  34 35 ") || !strings.HasSuffix(lines[1], " 45") {
		t.Errorf("Dump line 1 got: '%s'", lines[1])
	}
	if Dump(nil) != "" {
		t.Errorf("Dump of empty data not empty")
	}
}
