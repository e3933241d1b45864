/*
 * HPDisk - Fixed table of emulated units.
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
	"sort"

	"github.com/rcornwell/hpdisk/emu/device"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/store"
)

var ErrSealed = errors.New("unit registry sealed")

// Registry is filled during configuration and sealed before the bus runs.
type Registry struct {
	units  map[uint16]*Unit
	max    int
	sealed bool
	store  store.Store
}

// Create registry holding up to size units.
func New(size int, st store.Store) *Registry {
	return &Registry{units: map[uint16]*Unit{}, max: size, store: st}
}

// Add unit to registry.
func (r *Registry) Add(u *Unit) error {
	if r.sealed {
		return ErrSealed
	}
	if u.Bus > device.MaxAddress || u.Number > device.MaxUnit {
		return fmt.Errorf("unit %s address out of range", u.Name())
	}
	if !u.Geometry.Valid() {
		return fmt.Errorf("unit %s has invalid geometry %s", u.Name(), u.Geometry)
	}
	key := device.DevNum(u.Bus, u.Number)
	if _, ok := r.units[key]; ok {
		return fmt.Errorf("unit %s already defined", u.Name())
	}
	for _, other := range r.units {
		if other.Bus == u.Bus && other.Family != u.Family {
			return fmt.Errorf("unit %s family %s conflicts with %s", u.Name(), u.Family, other.Family)
		}
	}
	if len(r.units) >= r.max {
		return fmt.Errorf("unit %s: registry full (%d units)", u.Name(), r.max)
	}
	u.store = r.store
	r.units[key] = u
	return nil
}

// Stop further additions.
func (r *Registry) Seal() {
	r.sealed = true
}

func (r *Registry) Sealed() bool {
	return r.sealed
}

// Find unit, missing units are not ready.
func (r *Registry) Lookup(bus, unit uint8) (*Unit, error) {
	u, ok := r.units[device.DevNum(bus, unit)]
	if !ok {
		return nil, fmt.Errorf("unit %d.%d not present: %w", bus, unit, fault.ErrNotReady)
	}
	return u, nil
}

// All units ordered by address.
func (r *Registry) Units() []*Unit {
	list := make([]*Unit, 0, len(r.units))
	for _, u := range r.units {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool {
		return device.DevNum(list[i].Bus, list[i].Number) < device.DevNum(list[j].Bus, list[j].Number)
	})
	return list
}

// Units answering on bus address.
func (r *Registry) Bus(addr uint8) []*Unit {
	list := []*Unit{}
	for _, u := range r.Units() {
		if u.Bus == addr {
			list = append(list, u)
		}
	}
	return list
}

// Close every open image.
func (r *Registry) Close() error {
	var errs []error
	for _, u := range r.units {
		if err := u.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
