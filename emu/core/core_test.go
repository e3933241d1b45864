/*
 * HPDisk - Core emulator loop tests.
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

package core

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/hpdisk/emu/amigo"
	"github.com/rcornwell/hpdisk/emu/bus"
	dev "github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/master"
	"github.com/rcornwell/hpdisk/emu/registry"
	"github.com/rcornwell/hpdisk/emu/ss80"
	"github.com/rcornwell/hpdisk/util/image"
)

var testGeom = registry.Geometry{Cylinders: 4, Heads: 2, Sectors: 8, BytesPerSector: 256}

type testCore struct {
	t     *testing.T
	core  *Core
	host  *bus.Host
	buf   *bus.Buffer
	store *image.MemoryStore
	ctx   context.Context
	errc  chan error
}

// Core with SS80 disk at 2 and AMIGO floppy at 3.
func newCore(t *testing.T) *testCore {
	t.Helper()
	buf := bus.NewBuffer(64, time.Second)
	st := image.NewMemoryStore()
	c := New(buf, st)
	c.SetPoll(10 * time.Millisecond)

	hd := registry.NewUnit(2, 0, dev.SS80, testGeom)
	hd.Fixed = true
	require.NoError(t, c.Registry().Add(hd))
	require.NoError(t, hd.Attach("hd0", false))
	fd := registry.NewUnit(3, 0, dev.AMIGO, testGeom)
	fd.Stat2 = 0x0d
	require.NoError(t, c.Registry().Add(fd))
	require.NoError(t, fd.Attach("fd0", false))

	require.NoError(t, c.AddDevice(ss80.New(2, 2, 0x0221, c.Registry(), c.Faults())))
	require.NoError(t, c.AddDevice(amigo.New(3, 3, 0x0104, c.Registry(), c.Faults())))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tc := &testCore{t: t, core: c, host: buf.Host(), buf: buf, store: st, ctx: ctx, errc: make(chan error, 1)}
	go func() { tc.errc <- c.Start(ctx) }()
	t.Cleanup(func() {
		c.Stop()
		cancel()
		buf.Close()
	})
	return tc
}

func (tc *testCore) listen(addr, sec uint8, data ...byte) {
	tc.t.Helper()
	require.NoError(tc.t, tc.host.Listen(tc.ctx, addr, sec, data))
}

func (tc *testCore) talk(addr, sec uint8) []byte {
	tc.t.Helper()
	out, err := tc.host.Talk(tc.ctx, addr, sec)
	require.NoError(tc.t, err)
	return out
}

func (tc *testCore) send(msg master.Msg, devNum uint16, name string) master.Result {
	p := master.NewPacket(msg, devNum)
	p.Name = name
	return tc.core.Send(p)
}

func TestAddDevice(t *testing.T) {
	c := New(bus.NewBuffer(4, 0), image.NewMemoryStore())
	d := ss80.New(4, 4, 0x0222, c.Registry(), c.Faults())
	require.NoError(t, c.AddDevice(d))
	assert.Equal(t, d, c.Device(4))
	assert.Nil(t, c.Device(5))

	err := c.AddDevice(amigo.New(4, 4, 0x0104, c.Registry(), c.Faults()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by SS80")

	err = c.AddDevice(ss80.New(31, 0, 0x0222, c.Registry(), c.Faults()))
	assert.Error(t, err)

	c.Registry().Seal()
	assert.ErrorIs(t, c.AddDevice(ss80.New(5, 5, 0x0222, c.Registry(), c.Faults())), registry.ErrSealed)
}

func TestIdentifyAndPoll(t *testing.T) {
	tc := newCore(t)
	out, err := tc.host.Identify(tc.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x21}, out)
	out, err = tc.host.Identify(tc.ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x04}, out)
	assert.Eventually(t, func() bool { return tc.host.ParallelPoll() == 0x30 },
		time.Second, 5*time.Millisecond)
}

func TestNoDevice(t *testing.T) {
	tc := newCore(t)
	assert.Empty(t, tc.talk(9, 0x70))
	tc.listen(9, 0x65, 0x20, 0x00)
}

func TestSS80RoundTrip(t *testing.T) {
	tc := newCore(t)
	assert.Equal(t, []byte{2}, tc.talk(2, 0x70))

	data := bytes.Repeat([]byte{0xaa, 0x55}, 128)
	tc.listen(2, 0x65, 0x20, 0x10, 0, 0, 0, 0, 0, 1, 0x18, 0, 0, 1, 0, 0x02)
	tc.listen(2, 0x6e, data...)
	assert.Equal(t, []byte{0}, tc.talk(2, 0x70))
	assert.Equal(t, data, tc.store.Image("hd0")[256:512])

	tc.listen(2, 0x65, 0x20, 0x10, 0, 0, 0, 0, 0, 1, 0x18, 0, 0, 1, 0, 0x00)
	assert.Equal(t, data, tc.talk(2, 0x6e))
	assert.Equal(t, []byte{0}, tc.talk(2, 0x70))
}

func TestAMIGORoundTrip(t *testing.T) {
	tc := newCore(t)
	assert.Equal(t, []byte{2}, tc.talk(3, 0x70))
	tc.listen(3, 0x70, 0)
	assert.Equal(t, []byte{0}, tc.talk(3, 0x70))

	data := bytes.Repeat([]byte{0x5a}, 256)
	tc.listen(3, 0x68, 0x02, 0, 0, 0, 1)
	tc.listen(3, 0x68, 0x08, 0)
	tc.listen(3, 0x60, data...)
	assert.Equal(t, []byte{0}, tc.talk(3, 0x70))
	assert.Equal(t, data, tc.store.Image("fd0")[256:512])

	tc.listen(3, 0x68, 0x02, 0, 0, 0, 1)
	tc.listen(3, 0x68, 0x05, 0)
	assert.Equal(t, data, tc.talk(3, 0x60))
	assert.Equal(t, []byte{0}, tc.talk(3, 0x70))
}

func TestUniversalClear(t *testing.T) {
	tc := newCore(t)
	require.NoError(t, tc.host.UniversalClear(tc.ctx))
	assert.Equal(t, []byte{0}, tc.talk(2, 0x70))
	assert.Equal(t, []byte{0}, tc.talk(3, 0x70))
}

func TestConsoleFault(t *testing.T) {
	tc := newCore(t)
	tc.listen(3, 0x70, 0)

	r := tc.send(master.Status, dev.DevNum(3, 0), "")
	require.NoError(t, r.Err)
	assert.Equal(t, "3.0: no faults", r.Text)

	r = tc.send(master.Inject, dev.DevNum(3, 0), "mediafault")
	require.NoError(t, r.Err)
	r = tc.send(master.Status, dev.DevNum(3, 0), "")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "media fault")
	assert.Equal(t, []byte{1}, tc.talk(3, 0x70))

	r = tc.send(master.Inject, dev.DevNum(3, 0), "bogus")
	assert.Error(t, r.Err)

	require.NoError(t, tc.send(master.Reset, dev.DevNum(3, 0), "").Err)
	assert.Equal(t, []byte{2}, tc.talk(3, 0x70))

	r = tc.send(master.Reset, dev.DevNum(7, 0), "")
	assert.Error(t, r.Err)
}

func TestConsoleMedia(t *testing.T) {
	tc := newCore(t)

	r := tc.send(master.Show, dev.NoDev, "")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "SS80")
	assert.Contains(t, r.Text, "AMIGO")
	assert.Contains(t, r.Text, "fd0")

	r = tc.send(master.Eject, dev.DevNum(2, 0), "")
	assert.Error(t, r.Err)
	r = tc.send(master.Load, dev.DevNum(2, 0), "hd1")
	assert.Error(t, r.Err)

	r = tc.send(master.Load, dev.DevNum(3, 0), "fd1")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "fd1")

	r = tc.send(master.SetReadOnly, dev.DevNum(3, 0), "")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "fd1 ro")
	require.NoError(t, tc.send(master.SetReadWrite, dev.DevNum(3, 0), "").Err)

	p := master.NewPacket(master.Format, dev.DevNum(3, 0))
	p.Fill = 0xe5
	require.NoError(t, tc.core.Send(p).Err)
	assert.Equal(t, bytes.Repeat([]byte{0xe5}, int(testGeom.Size())), tc.store.Image("fd1"))

	r = tc.send(master.Format, dev.DevNum(2, 0), "")
	require.NoError(t, r.Err)
	assert.Equal(t, make([]byte, testGeom.Size()), tc.store.Image("hd0"))

	r = tc.send(master.SetOffline, dev.DevNum(2, 0), "")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "offline")
	require.NoError(t, tc.send(master.SetOnline, dev.DevNum(2, 0), "").Err)

	r = tc.send(master.Detach, dev.DevNum(3, 0), "")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "no media")

	r = tc.send(master.Attach, dev.DevNum(5, 0), "x")
	assert.True(t, errors.Is(r.Err, fault.ErrNotReady))
	r = tc.send(master.Attach, dev.NoDev, "x")
	assert.Error(t, r.Err)
}

func TestStop(t *testing.T) {
	tc := newCore(t)
	tc.core.Stop()
	select {
	case err := <-tc.errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("core did not stop")
	}
	r := tc.send(master.Show, dev.NoDev, "")
	assert.ErrorIs(t, r.Err, ErrStopped)
}

func TestBusClosed(t *testing.T) {
	tc := newCore(t)
	tc.buf.Close()
	select {
	case err := <-tc.errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("core did not stop")
	}
}
