/*
 * HPDisk - SS80 configuration test set.
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

package ss80

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/rcornwell/hpdisk/config/configparser"
	"github.com/rcornwell/hpdisk/emu/bus"
	dev "github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
	testdev "github.com/rcornwell/hpdisk/emu/test_dev"
)

type testSystem struct {
	devices map[uint8]dev.Device
	reg     *registry.Registry
	faults  *fault.Model
}

func newSystem() *testSystem {
	return &testSystem{
		devices: map[uint8]dev.Device{},
		reg:     registry.New(16, testdev.New()),
		faults:  fault.NewModel(),
	}
}

func (sys *testSystem) Device(addr uint8) dev.Device {
	d, ok := sys.devices[addr]
	if !ok {
		return nil
	}
	return d
}

func (sys *testSystem) AddDevice(d dev.Device) error {
	if _, ok := sys.devices[d.Address()]; ok {
		return errors.New("address in use")
	}
	sys.devices[d.Address()] = d
	return nil
}

func (sys *testSystem) Registry() *registry.Registry {
	return sys.reg
}

func (sys *testSystem) Faults() *fault.Model {
	return sys.faults
}

func TestConfigCreate(t *testing.T) {
	sys := newSystem()
	cfg := `# Two SS80 units on address 2
SS80 2.0 MODEL=9134L FILE=hd0.img PPR=5
SS80 2.1 MODEL=9122 FILE="floppy 1.img" RO
SS80FAULT sticky
`
	require.NoError(t, config.LoadConfig(sys, strings.NewReader(cfg)))

	d, ok := sys.devices[2].(*Drive)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0221), d.id)
	assert.Equal(t, uint8(5), d.ppr)

	u, err := sys.reg.Lookup(2, 0)
	require.NoError(t, err)
	assert.Equal(t, "9134L", u.Model)
	assert.Equal(t, "hd0.img", u.FileName())
	assert.True(t, u.Fixed)

	u, err = sys.reg.Lookup(2, 1)
	require.NoError(t, err)
	assert.Equal(t, "floppy 1.img", u.FileName())
	assert.True(t, u.ReadOnly())
	assert.False(t, u.Fixed)

	assert.Equal(t, fault.Sticky, sys.faults.Policy(dev.SS80))
}

func TestConfigGeometry(t *testing.T) {
	sys := newSystem()
	cfg := "SS80 3 CYL=10 HEADS=2 SECTORS=16 BYTES=256 ID=0x0222 OFFLINE REMOVABLE\n"
	require.NoError(t, config.LoadConfig(sys, strings.NewReader(cfg)))
	u, err := sys.reg.Lookup(3, 0)
	require.NoError(t, err)
	assert.Equal(t, registry.Geometry{Cylinders: 10, Heads: 2, Sectors: 16, BytesPerSector: 256}, u.Geometry)
	assert.Equal(t, uint16(0x0222), u.ID)
	assert.False(t, u.Online())
	assert.False(t, u.Fixed)
	assert.False(t, u.Present())
}

func TestConfigErrors(t *testing.T) {
	bad := []string{
		"SS80 2.15\n",
		"SS80 2.0 MODEL=9121\n",
		"SS80 2.0 MODEL=1111\n",
		"SS80 2.0 BOGUS\n",
		"SS80 2.0 CYL=abc\n",
		"SS80 2.0 FILE=\n",
		"SS80 2.0\nSS80 2.0\n",
		"SS80FAULT maybe\n",
	}
	for _, cfg := range bad {
		sys := newSystem()
		err := config.LoadConfig(sys, strings.NewReader(cfg))
		assert.Error(t, err, cfg)
	}

	sys := newSystem()
	sys.devices[4] = &otherDevice{addr: 4}
	err := config.LoadConfig(sys, strings.NewReader("SS80 4.0\n"))
	assert.ErrorContains(t, err, "unable to create SS80 at 4.0")
}

type otherDevice struct {
	addr uint8
}

func (o *otherDevice) Address() uint8       { return o.addr }
func (o *otherDevice) Family() dev.Family   { return dev.AMIGO }
func (o *otherDevice) Reset()               {}
func (o *otherDevice) Debug(_ string) error { return nil }
func (o *otherDevice) Show() string         { return "" }

func (o *otherDevice) Transaction(_ bus.Transport, _ *bus.Transaction) error {
	return nil
}
