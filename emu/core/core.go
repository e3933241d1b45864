/*
 * HPDisk - Core emulator loop.
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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rcornwell/hpdisk/emu/bus"
	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/master"
	"github.com/rcornwell/hpdisk/emu/registry"
	"github.com/rcornwell/hpdisk/emu/store"
)

const (
	MaxUnits     = 64                    // Units held by registry.
	DefaultPoll  = 50 * time.Millisecond // Time between console checks while bus idle.
	stopTimeout  = time.Second
	masterBuffer = 16
)

var ErrStopped = errors.New("core stopped")

// Devices that report their parallel poll bit.
type poller interface {
	PPR() uint8
}

// Devices that can format media from the console.
type formatter interface {
	Format(unit uint8, fill byte) error
}

// Core owns the registry, the fault model and every device. Only the
// goroutine running Start touches them once the bus is running.
type Core struct {
	wg        sync.WaitGroup
	done      chan struct{} // Signal to shutdown emulator.
	once      sync.Once
	Master    chan master.Packet
	transport bus.Transport
	units     *registry.Registry
	faults    *fault.Model
	devices   map[uint8]device.Device
	poll      time.Duration
}

// Create core using transport, images come from st.
func New(t bus.Transport, st store.Store) *Core {
	return &Core{
		Master:    make(chan master.Packet, masterBuffer),
		done:      make(chan struct{}),
		transport: t,
		units:     registry.New(MaxUnits, st),
		faults:    fault.NewModel(),
		devices:   map[uint8]device.Device{},
		poll:      DefaultPoll,
	}
}

// Set how long bus waits before checking console.
func (core *Core) SetPoll(poll time.Duration) {
	if poll > 0 {
		core.poll = poll
	}
}

// Return device at bus address, nil if none.
func (core *Core) Device(addr uint8) device.Device {
	return core.devices[addr]
}

// Add device to bus.
func (core *Core) AddDevice(d device.Device) error {
	if core.units.Sealed() {
		return registry.ErrSealed
	}
	addr := d.Address()
	if addr > device.MaxAddress {
		return fmt.Errorf("bus address %d out of range", addr)
	}
	if old, ok := core.devices[addr]; ok {
		return fmt.Errorf("bus address %d already used by %s", addr, old.Family())
	}
	core.devices[addr] = d
	return nil
}

func (core *Core) Registry() *registry.Registry {
	return core.units
}

func (core *Core) Faults() *fault.Model {
	return core.faults
}

// Devices ordered by address.
func (core *Core) sorted() []device.Device {
	list := make([]device.Device, 0, len(core.devices))
	for _, d := range core.devices {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Address() < list[j].Address() })
	return list
}

// Run emulator until stopped or ctx canceled.
func (core *Core) Start(ctx context.Context) error {
	core.wg.Add(1)
	defer core.wg.Done()
	core.units.Seal()
	if p, ok := core.transport.(bus.Poller); ok {
		for _, d := range core.sorted() {
			if pp, ok := d.(poller); ok {
				p.EnablePPR(pp.PPR())
			}
		}
	}
	slog.Info("Bus running", "devices", len(core.devices), "units", len(core.units.Units()))

	for {
		select {
		case <-core.done:
			return core.shutdown()
		case <-ctx.Done():
			return core.shutdown()
		case packet := <-core.Master:
			core.processPacket(packet)
			continue
		default:
		}
		if err := core.step(ctx); err != nil {
			serr := core.shutdown()
			if errors.Is(err, bus.ErrClosed) {
				return serr
			}
			slog.Error("Bus failed: " + err.Error())
			return errors.Join(err, serr)
		}
	}
}

// Wait for and service one bus transaction.
func (core *Core) step(ctx context.Context) error {
	wait, cancel := context.WithTimeout(ctx, core.poll)
	tr, err := core.transport.BeginTransaction(wait)
	cancel()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	core.dispatch(tr)
	return nil
}

// Hand transaction to device at its address.
func (core *Core) dispatch(tr *bus.Transaction) {
	switch tr.Kind {
	case bus.UniversalClear, bus.Reset:
		for _, d := range core.sorted() {
			core.run(d, tr)
		}
		return
	}
	d, ok := core.devices[tr.Address]
	if !ok {
		slog.Debug("No device", "address", tr.Address, "kind", tr.Kind.String())
		return
	}
	core.run(d, tr)
}

func (core *Core) run(d device.Device, tr *bus.Transaction) {
	err := d.Transaction(core.transport, tr)
	if err != nil && !errors.Is(err, bus.ErrClosed) {
		slog.Debug("Transaction ended", "address", d.Address(), "error", err.Error())
	}
}

// Close every image.
func (core *Core) shutdown() error {
	slog.Info("Closing disk images")
	return core.units.Close()
}

// Stop a running core.
func (core *Core) Stop() {
	slog.Info("Shutting down bus")
	core.once.Do(func() { close(core.done) })
	done := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(stopTimeout):
		slog.Warn("Timed out waiting for bus to finish.")
		return
	}
}

// Send packet to core and wait for answer.
func (core *Core) Send(packet master.Packet) master.Result {
	if packet.Reply == nil {
		packet.Reply = make(chan master.Result, 1)
	}
	select {
	case core.Master <- packet:
	case <-core.done:
		return master.Result{Err: ErrStopped}
	}
	select {
	case r := <-packet.Reply:
		return r
	case <-core.done:
		return master.Result{Err: ErrStopped}
	}
}

// Process a packet sent from console.
func (core *Core) processPacket(packet master.Packet) {
	text, err := core.handle(packet)
	if err != nil {
		slog.Debug("Console request failed", "msg", packet.Msg.String(), "error", err.Error())
	}
	if packet.Reply != nil {
		packet.Reply <- master.Result{Text: text, Err: err}
	}
}

func (core *Core) handle(packet master.Packet) (string, error) {
	switch packet.Msg {
	case master.Show:
		return core.show(packet.DevNum)
	case master.Reset:
		return "", core.reset(packet.DevNum)
	}

	u, err := core.lookup(packet.DevNum)
	if err != nil {
		return "", err
	}
	switch packet.Msg {
	case master.Attach:
		err = u.Attach(packet.Name, packet.Flag)
	case master.Load:
		err = load(u, packet.Name)
	case master.Detach:
		err = u.Detach()
	case master.Eject:
		err = u.Eject()
	case master.SetOnline:
		u.SetOnline(true)
	case master.SetOffline:
		u.SetOnline(false)
	case master.SetReadOnly:
		err = u.SetReadOnly(true)
	case master.SetReadWrite:
		err = u.SetReadOnly(false)
	case master.Status:
		return status(u, core.faults.Current(u.FaultID())), nil
	case master.Inject:
		cond, ok := fault.Parse(packet.Name)
		if !ok {
			return "", errors.New("unknown condition: " + packet.Name)
		}
		core.faults.Latch(u.FaultID(), cond)
	case master.Format:
		err = core.format(u, packet.Fill)
	default:
		err = fmt.Errorf("invalid request %d", packet.Msg)
	}
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Find unit addressed by packet.
func (core *Core) lookup(devNum uint16) (*registry.Unit, error) {
	if devNum == device.NoDev {
		return nil, errors.New("unit address required")
	}
	addr, unit := device.Split(devNum)
	return core.units.Lookup(addr, unit)
}

// Insert removable media.
func load(u *registry.Unit, name string) error {
	if u.Fixed {
		return fmt.Errorf("unit %s has fixed media", u.Name())
	}
	if u.Present() {
		if err := u.Eject(); err != nil {
			return err
		}
	}
	return u.Attach(name, false)
}

func (core *Core) format(u *registry.Unit, fill byte) error {
	d, ok := core.devices[u.Bus]
	if !ok {
		return fmt.Errorf("no device at address %d", u.Bus)
	}
	f, ok := d.(formatter)
	if !ok {
		return fmt.Errorf("%s device can't format", d.Family())
	}
	return f.Format(u.Number, fill)
}

// Describe devices, one or all.
func (core *Core) show(devNum uint16) (string, error) {
	if devNum == device.NoDev {
		list := []string{}
		for _, d := range core.sorted() {
			list = append(list, d.Show())
		}
		return strings.Join(list, "\n"), nil
	}
	addr, _ := device.Split(devNum)
	d, ok := core.devices[addr]
	if !ok {
		return "", fmt.Errorf("no device at address %d", addr)
	}
	return d.Show(), nil
}

// Power on reset of one or all devices.
func (core *Core) reset(devNum uint16) error {
	if devNum == device.NoDev {
		for _, d := range core.sorted() {
			d.Reset()
		}
		core.faults.Reset()
		return nil
	}
	addr, _ := device.Split(devNum)
	d, ok := core.devices[addr]
	if !ok {
		return fmt.Errorf("no device at address %d", addr)
	}
	d.Reset()
	return nil
}

// Format fault record of unit.
func status(u *registry.Unit, rec fault.Record) string {
	if !rec.Faulted() {
		return u.Name() + ": no faults"
	}
	ext := rec.Extended
	str := fmt.Sprintf("%s: %s (reported %s) block=%d", u.Name(), rec.Pending, rec.Conditions(), ext.Block)
	if ext.Requested != 0 {
		str += fmt.Sprintf(" transferred=%d/%d", ext.Transferred, ext.Requested)
	}
	if ext.Write {
		str += " write"
	}
	if ext.Opcode != 0 {
		str += fmt.Sprintf(" opcode=%02x", ext.Opcode)
	}
	return str
}
