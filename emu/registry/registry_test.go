/*
 * HPDisk - Unit registry tests.
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

package registry

import (
	"bytes"
	"testing"

	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	testdev "github.com/rcornwell/hpdisk/emu/test_dev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var small = Geometry{Cylinders: 2, Heads: 1, Sectors: 4, BytesPerSector: 256}

func newUnit(t *testing.T) (*Unit, *testdev.Store) {
	t.Helper()
	st := testdev.New()
	reg := New(4, st)
	u := NewUnit(2, 0, device.SS80, small)
	require.NoError(t, reg.Add(u))
	require.NoError(t, u.Attach("hd0", false))
	return u, st
}

func TestOffsetFormula(t *testing.T) {
	g := Geometry{Cylinders: 77, Heads: 2, Sectors: 30, BytesPerSector: 256}
	for c := uint32(0); c < g.Cylinders; c += 7 {
		for h := uint32(0); h < g.Heads; h++ {
			for s := uint32(0); s < g.Sectors; s++ {
				a := Address{c, h, s}
				want := int64((((c*g.Heads)+h)*g.Sectors)+s) * int64(g.BytesPerSector)
				require.Equal(t, want, g.Offset(a))
				require.Equal(t, want, g.Offset(a), "offset must be stable")
				back, err := g.Address(g.Block(a))
				require.NoError(t, err)
				require.Equal(t, a, back)
			}
		}
	}
	assert.Equal(t, uint64(77*2*30), g.Blocks())
	assert.Equal(t, int64(77*2*30*256), g.Size())
}

func TestGeometryCheck(t *testing.T) {
	require.NoError(t, small.Check(Address{1, 0, 3}))
	for _, a := range []Address{{2, 0, 0}, {0, 1, 0}, {0, 0, 4}} {
		require.ErrorIs(t, small.Check(a), fault.ErrParameter)
	}
	_, err := small.Address(8)
	require.ErrorIs(t, err, fault.ErrParameter)
	assert.False(t, Geometry{}.Valid())
	assert.True(t, small.Fits(Geometry{Cylinders: 1, Heads: 2, Sectors: 4, BytesPerSector: 256}))
	assert.False(t, small.Fits(Geometry{Cylinders: 3, Heads: 1, Sectors: 4, BytesPerSector: 256}))
	assert.False(t, small.Fits(Geometry{Cylinders: 1, Heads: 1, Sectors: 1, BytesPerSector: 512}))
}

func TestNext(t *testing.T) {
	g := Geometry{Cylinders: 2, Heads: 2, Sectors: 2, BytesPerSector: 256}
	a := Address{}
	for i := 1; i < 8; i++ {
		var ok bool
		a, ok = g.Next(a)
		require.True(t, ok)
		require.Equal(t, uint64(i), g.Block(a))
	}
	_, ok := g.Next(a)
	assert.False(t, ok)
}

func TestSeekUnchangedOnError(t *testing.T) {
	u, _ := newUnit(t)
	require.NoError(t, u.Seek(Address{0, 0, 3}))
	require.ErrorIs(t, u.Seek(Address{0, 0, 4}), fault.ErrParameter)
	assert.Equal(t, Address{0, 0, 3}, u.Address())
	require.ErrorIs(t, u.SeekBlock(99), fault.ErrParameter)
	assert.Equal(t, uint64(3), u.Block())
	require.NoError(t, u.SeekBlock(5))
	assert.Equal(t, Address{1, 0, 1}, u.Address())
}

func TestReadWriteRoundTrip(t *testing.T) {
	u, st := newUnit(t)
	a := Address{1, 0, 2}
	block := bytes.Repeat([]byte{0xaa}, 256)
	require.NoError(t, u.WriteBlock(a, block))
	data, err := u.ReadBlock(a)
	require.NoError(t, err)
	assert.Equal(t, block, data)
	assert.Equal(t, block, st.Images["hd0"][small.Offset(a):small.Offset(a)+256])
	assert.Equal(t, 1, st.Opens)

	require.ErrorIs(t, u.WriteBlock(a, block[:10]), fault.ErrParameter)
}

func TestNotReadyNoStoreAccess(t *testing.T) {
	u, st := newUnit(t)
	u.SetOnline(false)
	_, err := u.ReadBlock(Address{})
	require.ErrorIs(t, err, fault.ErrNotReady)
	require.ErrorIs(t, u.WriteBlock(Address{}, make([]byte, 256)), fault.ErrNotReady)
	assert.Equal(t, 0, st.Calls())

	u.SetOnline(true)
	require.NoError(t, u.Eject())
	_, err = u.ReadBlock(Address{})
	require.ErrorIs(t, err, fault.ErrNotReady)
	assert.Equal(t, 0, st.Calls())
}

func TestWriteProtect(t *testing.T) {
	u, st := newUnit(t)
	require.NoError(t, u.SetReadOnly(true))
	require.ErrorIs(t, u.WriteBlock(Address{}, make([]byte, 256)), fault.ErrWriteProtect)
	assert.Equal(t, 0, st.Writes)
}

func TestMediaFault(t *testing.T) {
	u, st := newUnit(t)
	st.FailRead(1)
	_, err := u.ReadBlock(Address{})
	require.ErrorIs(t, err, fault.ErrMedia)
	require.ErrorIs(t, err, testdev.ErrInjected)
	assert.Equal(t, fault.MediaFault, fault.Classify(err))
}

func TestEjectLocked(t *testing.T) {
	u, st := newUnit(t)
	_, err := u.ReadBlock(Address{})
	require.NoError(t, err)
	u.SetLocked(true)
	require.Error(t, u.Eject())
	assert.True(t, u.Present())
	u.SetLocked(false)
	require.NoError(t, u.Eject())
	assert.False(t, u.Present())
	assert.Equal(t, 1, st.Closes)

	u.Fixed = true
	require.NoError(t, u.Attach("hd1", false))
	require.Error(t, u.Eject())
	require.NoError(t, u.Detach())
	assert.Equal(t, "", u.FileName())
}

func TestRegistry(t *testing.T) {
	reg := New(2, testdev.New())
	require.NoError(t, reg.Add(NewUnit(2, 1, device.SS80, small)))
	require.NoError(t, reg.Add(NewUnit(2, 0, device.SS80, small)))
	require.Error(t, reg.Add(NewUnit(2, 0, device.SS80, small)))
	require.Error(t, reg.Add(NewUnit(3, 0, device.SS80, small)), "registry full")
	require.Error(t, reg.Add(NewUnit(2, 3, device.AMIGO, small)))
	require.Error(t, reg.Add(NewUnit(4, 0, device.SS80, Geometry{})))

	_, err := reg.Lookup(2, 5)
	require.ErrorIs(t, err, fault.ErrNotReady)
	u, err := reg.Lookup(2, 1)
	require.NoError(t, err)
	assert.Equal(t, "2.1", u.Name())

	units := reg.Units()
	require.Len(t, units, 2)
	assert.Equal(t, uint8(0), units[0].Number)
	assert.Len(t, reg.Bus(2), 2)
	assert.Empty(t, reg.Bus(3))

	reg.Seal()
	require.ErrorIs(t, reg.Add(NewUnit(5, 0, device.SS80, small)), ErrSealed)
	require.NoError(t, reg.Close())
}

func TestExampleScenario(t *testing.T) {
	u, _ := newUnit(t)
	require.NoError(t, u.Seek(Address{0, 0, 3}))
	block := bytes.Repeat([]byte{0xaa}, 256)
	require.NoError(t, u.WriteBlock(u.Address(), block))
	data, err := u.ReadBlock(u.Address())
	require.NoError(t, err)
	assert.Equal(t, block, data)
	require.ErrorIs(t, u.Seek(Address{0, 0, 4}), fault.ErrParameter)
	assert.Equal(t, Address{0, 0, 3}, u.Address())
}
