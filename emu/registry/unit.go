/*
 * HPDisk - Emulated disk unit.
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
	"errors"
	"fmt"
	"os"

	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/store"
)

// One emulated disk drive.
type Unit struct {
	Bus          uint8         // Primary bus address.
	Number       uint8         // Unit number at address.
	Model        string        // Product name.
	ID           uint16        // Identify bytes.
	Family       device.Family // Protocol unit answers to.
	Geometry     Geometry      // Physical layout.
	Fixed        bool          // Media can't be removed.
	DeviceNumber uint32        // SS80 describe device number.
	Interleave   uint8         // SS80 describe interleave.
	Stat2        uint8         // AMIGO status-2 identity.
	online       bool          // Unit responds to commands.
	readOnly     bool          // Media write protected.
	present      bool          // Media loaded.
	locked       bool          // Door locked by host.
	fileName     string        // Backing image name.
	address      Address       // Current logical address.
	store        store.Store   // Where images come from.
	image        store.Image   // Open image, nil until first access.
}

// Create a unit, it starts online with no media.
func NewUnit(bus, number uint8, family device.Family, geom Geometry) *Unit {
	return &Unit{
		Bus:      bus,
		Number:   number,
		Family:   family,
		Geometry: geom,
		online:   true,
	}
}

// Key of unit in fault model.
func (u *Unit) FaultID() fault.UnitID {
	return fault.UnitID{Family: u.Family, Bus: u.Bus, Unit: u.Number}
}

// Name of unit as addr.unit.
func (u *Unit) Name() string {
	return fmt.Sprintf("%d.%d", u.Bus, u.Number)
}

// Capacity in blocks.
func (u *Unit) Capacity() uint64 {
	return u.Geometry.Blocks()
}

func (u *Unit) Online() bool {
	return u.online
}

func (u *Unit) Present() bool {
	return u.present
}

func (u *Unit) ReadOnly() bool {
	return u.readOnly
}

func (u *Unit) Locked() bool {
	return u.locked
}

func (u *Unit) FileName() string {
	return u.fileName
}

// Current logical address.
func (u *Unit) Address() Address {
	return u.address
}

// Current address as linear block.
func (u *Unit) Block() uint64 {
	return u.Geometry.Block(u.address)
}

// Check unit can be operated on.
func (u *Unit) Ready() error {
	if !u.online {
		return fmt.Errorf("unit %s offline: %w", u.Name(), fault.ErrNotReady)
	}
	if !u.present {
		return fmt.Errorf("unit %s no media: %w", u.Name(), fault.ErrNotReady)
	}
	return nil
}

// Move to address, out of range leaves address unchanged.
func (u *Unit) Seek(a Address) error {
	if err := u.Geometry.Check(a); err != nil {
		return err
	}
	u.address = a
	return nil
}

// Move to linear block.
func (u *Unit) SeekBlock(block uint64) error {
	a, err := u.Geometry.Address(block)
	if err != nil {
		return err
	}
	u.address = a
	return nil
}

// Step current address to next sector, false if past end.
func (u *Unit) Advance() bool {
	next, ok := u.Geometry.Next(u.address)
	if ok {
		u.address = next
	}
	return ok
}

// Open backing image on first access.
func (u *Unit) open() (store.Image, error) {
	if u.image != nil {
		return u.image, nil
	}
	if u.store == nil {
		return nil, fmt.Errorf("unit %s has no store: %w", u.Name(), fault.ErrNotReady)
	}
	img, err := u.store.Open(u.fileName, u.Geometry.Size(), u.readOnly)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("unit %s image %s: %w", u.Name(), u.fileName, fault.ErrNotReady)
		}
		return nil, fmt.Errorf("unit %s open %s: %w: %w", u.Name(), u.fileName, fault.ErrMedia, err)
	}
	u.image = img
	return img, nil
}

// Read one block at address.
func (u *Unit) ReadBlock(a Address) ([]byte, error) {
	if err := u.Ready(); err != nil {
		return nil, err
	}
	if err := u.Geometry.Check(a); err != nil {
		return nil, err
	}
	img, err := u.open()
	if err != nil {
		return nil, err
	}
	data, err := img.ReadBlock(u.Geometry.Offset(a), int(u.Geometry.BytesPerSector))
	if err != nil {
		return nil, fmt.Errorf("unit %s read %s: %w: %w", u.Name(), a, fault.ErrMedia, err)
	}
	return data, nil
}

// Write one block at address, data must be one block long.
func (u *Unit) WriteBlock(a Address, data []byte) error {
	if err := u.Ready(); err != nil {
		return err
	}
	if u.readOnly {
		return fmt.Errorf("unit %s: %w", u.Name(), fault.ErrWriteProtect)
	}
	if err := u.Geometry.Check(a); err != nil {
		return err
	}
	if len(data) != int(u.Geometry.BytesPerSector) {
		return fmt.Errorf("unit %s block length %d: %w", u.Name(), len(data), fault.ErrParameter)
	}
	img, err := u.open()
	if err != nil {
		return err
	}
	err = img.WriteBlock(u.Geometry.Offset(a), data)
	if err != nil {
		if errors.Is(err, fault.ErrWriteProtect) {
			return fmt.Errorf("unit %s write %s: %w", u.Name(), a, err)
		}
		return fmt.Errorf("unit %s write %s: %w: %w", u.Name(), a, fault.ErrMedia, err)
	}
	return nil
}

// Release open image.
func (u *Unit) Close() error {
	if u.image == nil {
		return nil
	}
	err := u.image.Close()
	u.image = nil
	return err
}

// Load media from file, replaces current media.
func (u *Unit) Attach(name string, readOnly bool) error {
	if name == "" {
		return errors.New("attach requires a file name")
	}
	if err := u.Close(); err != nil {
		return err
	}
	u.fileName = name
	u.readOnly = readOnly
	u.present = true
	u.address = Address{}
	return nil
}

// Remove media regardless of lock.
func (u *Unit) Detach() error {
	err := u.Close()
	u.fileName = ""
	u.present = false
	u.locked = false
	u.address = Address{}
	return err
}

// Remove media as an operator would.
func (u *Unit) Eject() error {
	if u.Fixed {
		return fmt.Errorf("unit %s has fixed media", u.Name())
	}
	if u.locked {
		return fmt.Errorf("unit %s door locked", u.Name())
	}
	return u.Detach()
}

func (u *Unit) SetOnline(online bool) {
	u.online = online
}

// Change write protect, image reopened on next access.
func (u *Unit) SetReadOnly(readOnly bool) error {
	if u.readOnly == readOnly {
		return nil
	}
	u.readOnly = readOnly
	return u.Close()
}

func (u *Unit) SetLocked(locked bool) {
	u.locked = locked
}

// Reset current address to origin.
func (u *Unit) Rewind() {
	u.address = Address{}
}

// Describe unit for console.
func (u *Unit) String() string {
	str := fmt.Sprintf("%s %s %s", u.Name(), u.Model, u.Geometry)
	if !u.online {
		str += " offline"
	}
	if u.present {
		str += " " + u.fileName
		if u.readOnly {
			str += " ro"
		}
	} else {
		str += " no media"
	}
	if u.locked {
		str += " locked"
	}
	return str + " at " + u.address.String()
}
