/*
 * HPDisk - Hex formatting for trace output.
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

import "strings"

var hexMap = "0123456789ABCDEF"

// Bytes per line of a dump.
const dumpWidth = 16

func FormatHalf(str *strings.Builder, half uint16) {
	shift := 12
	for i := 0; i < 4; i++ {
		str.WriteByte(hexMap[(half>>shift)&0xf])
		shift -= 4
	}
}

func FormatBytes(str *strings.Builder, space bool, data []uint8) {
	for _, by := range data {
		str.WriteByte(hexMap[(by>>4)&0xf])
		str.WriteByte(hexMap[by&0xf])
		if space {
			str.WriteByte(' ')
		}
	}
}

func FormatByte(str *strings.Builder, data byte) {
	str.WriteByte(hexMap[(data>>4)&0xf])
	str.WriteByte(hexMap[data&0xf])
}

// Format data as offset, hex bytes and printable characters, 16 bytes a line.
func Dump(data []byte) string {
	var str strings.Builder
	for off := 0; off < len(data); off += dumpWidth {
		end := min(off+dumpWidth, len(data))
		line := data[off:end]
		FormatHalf(&str, uint16(off))
		str.WriteString("  ")
		FormatBytes(&str, true, line)
		for i := 0; i < dumpWidth-len(line); i++ {
			str.WriteString("   ")
		}
		str.WriteByte(' ')
		for _, by := range line {
			if by < 0x20 || by > 0x7e {
				by = '.'
			}
			str.WriteByte(by)
		}
		str.WriteByte('\n')
	}
	return str.String()
}
