/*
 * HPDisk - AMIGO configuration tests.
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

package amigo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/rcornwell/hpdisk/config/configparser"
	dev "github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
	"github.com/rcornwell/hpdisk/emu/ss80"
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
	return sys.devices[addr]
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
	cfg := `# Dual floppy on address 0
AMIGO 0.0 FILE=fd0.lif PPR=7
AMIGO 0.1 MODEL=9121 FILE="fd 1.lif" RO
AMIGOFAULT read
`
	require.NoError(t, config.LoadConfig(sys, strings.NewReader(cfg)))

	d, ok := sys.devices[0].(*Drive)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0104), d.id)
	assert.Equal(t, uint8(7), d.ppr)

	u, err := sys.reg.Lookup(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "9121", u.Model)
	assert.Equal(t, uint8(0x0d), u.Stat2)
	assert.Equal(t, dev.AMIGO, u.Family)

	u, err = sys.reg.Lookup(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "fd 1.lif", u.FileName())
	assert.True(t, u.ReadOnly())

	assert.Equal(t, fault.ClearOnRead, sys.faults.Policy(dev.AMIGO))
}

func TestConfigErrors(t *testing.T) {
	bad := []string{
		"AMIGO 1.15\n",
		"AMIGO 1.0 MODEL=9134L\n",
		"AMIGO 1.0 STAT2=0x100\n",
		"AMIGO 1.0\nAMIGO 1.0\n",
		"AMIGOFAULT never\n",
	}
	for _, cfg := range bad {
		sys := newSystem()
		assert.Error(t, config.LoadConfig(sys, strings.NewReader(cfg)), cfg)
	}

	sys := newSystem()
	sys.devices[4] = ss80.New(4, 4, 0x0221, sys.reg, sys.faults)
	err := config.LoadConfig(sys, strings.NewReader("AMIGO 4.0\n"))
	assert.ErrorContains(t, err, "unable to create AMIGO at 4.0: address used by SS80")
}
