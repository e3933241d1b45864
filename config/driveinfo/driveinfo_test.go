/*
 * HPDisk - Drive model database test set.
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

package driveinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/hpdisk/emu/device"
)

const hpdir = `
; Drive list
[fsinfo]
9121 = 1

[driveinfo]
9895X = "HP9895A dual 1.15M AMIGO floppy disc", AMIGO, 0x0081, 0x00, 0x00, 0x000000, 1, 77, 2, 30, 256, 7, 1
7908  = "HP7908 16M CS80, with tape", CS80, 0x0200, 0x00, 0x00, 0x079080, 1, 370, 5, 35, 256, 1, 0
`

func TestBuiltin(t *testing.T) {
	m, ok := Lookup("9134l")
	require.True(t, ok)
	assert.Equal(t, device.SS80, m.Family)
	assert.Equal(t, uint16(0x0221), m.ID)
	assert.Equal(t, uint64(58176), m.Geometry.Blocks())
	assert.Equal(t, uint32(0x091340), m.DeviceNumber)

	m, ok = Lookup("9121")
	require.True(t, ok)
	assert.Equal(t, device.AMIGO, m.Family)
	assert.Equal(t, uint16(0x0104), m.ID)
	assert.Equal(t, uint8(0x0d), m.IDStat2)

	m, ok = Lookup("9122")
	require.True(t, ok)
	assert.Equal(t, uint64(2464), m.Geometry.Blocks())
	assert.False(t, m.Fixed)

	_, ok = Lookup("1234")
	assert.False(t, ok)
}

func TestNewUnit(t *testing.T) {
	m, ok := Lookup("9134L")
	require.True(t, ok)
	u := m.NewUnit(2, 0)
	assert.Equal(t, "9134L", u.Model)
	assert.Equal(t, uint8(2), u.Bus)
	assert.True(t, u.Fixed)
	assert.Equal(t, uint8(7), u.Interleave)
	assert.Equal(t, m.Geometry, u.Geometry)
}

func TestLoad(t *testing.T) {
	count, err := Load([]byte(hpdir))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	m, ok := Lookup("9895x")
	require.True(t, ok)
	assert.Equal(t, "HP9895A dual 1.15M AMIGO floppy disc", m.Comment)
	assert.Equal(t, device.AMIGO, m.Family)
	assert.Equal(t, uint16(0x0081), m.ID)
	assert.Equal(t, uint32(77), m.Geometry.Cylinders)
	assert.Equal(t, uint32(30), m.Geometry.Sectors)
	assert.False(t, m.Fixed)

	m, ok = Lookup("7908")
	require.True(t, ok)
	assert.Equal(t, device.SS80, m.Family)
	assert.Equal(t, uint32(0x079080), m.DeviceNumber)
	assert.True(t, m.Fixed)
	assert.Contains(t, Names(), "7908")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]byte("[other]\na = 1\n"))
	assert.Error(t, err)

	_, err = Load([]byte("[driveinfo]\nbad = \"x\", TAPE, 1, 0, 0, 0, 1, 1, 1, 1, 256, 1\n"))
	assert.Error(t, err)

	_, err = Load([]byte("[driveinfo]\nbad = \"x\", SS80, 1, 0\n"))
	assert.Error(t, err)

	_, err = Load([]byte("[driveinfo]\nbad = \"x\", SS80, 1, 0, 0, 0, 1, 0, 1, 1, 256, 1\n"))
	assert.Error(t, err)

	_, err = Load([]byte("[driveinfo]\nbad = \"x\", SS80, zz, 0, 0, 0, 1, 1, 1, 1, 256, 1\n"))
	assert.Error(t, err)
}
