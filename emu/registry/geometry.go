/*
 * HPDisk - Unit geometry and address translation.
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
	"fmt"

	"github.com/rcornwell/hpdisk/emu/fault"
)

// Physical layout of a unit.
type Geometry struct {
	Cylinders      uint32
	Heads          uint32
	Sectors        uint32 // Sectors per track.
	BytesPerSector uint32
}

// Cylinder, head, sector address.
type Address struct {
	Cylinder uint32
	Head     uint32
	Sector   uint32
}

func (a Address) String() string {
	return fmt.Sprintf("(%d,%d,%d)", a.Cylinder, a.Head, a.Sector)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", g.Cylinders, g.Heads, g.Sectors, g.BytesPerSector)
}

// Check that every dimension is set.
func (g Geometry) Valid() bool {
	return g.Cylinders != 0 && g.Heads != 0 && g.Sectors != 0 && g.BytesPerSector != 0
}

// Number of blocks on unit.
func (g Geometry) Blocks() uint64 {
	return uint64(g.Cylinders) * uint64(g.Heads) * uint64(g.Sectors)
}

// Size of unit in bytes.
func (g Geometry) Size() int64 {
	return int64(g.Blocks()) * int64(g.BytesPerSector)
}

// Check address falls inside geometry.
func (g Geometry) Check(a Address) error {
	if a.Cylinder >= g.Cylinders || a.Head >= g.Heads || a.Sector >= g.Sectors {
		return fmt.Errorf("address %s outside %s: %w", a, g, fault.ErrParameter)
	}
	return nil
}

// Linear block number of address.
func (g Geometry) Block(a Address) uint64 {
	return (uint64(a.Cylinder)*uint64(g.Heads)+uint64(a.Head))*uint64(g.Sectors) + uint64(a.Sector)
}

// Linear byte offset of address in backing store.
func (g Geometry) Offset(a Address) int64 {
	return int64(g.Block(a)) * int64(g.BytesPerSector)
}

// Convert block number to address.
func (g Geometry) Address(block uint64) (Address, error) {
	if !g.Valid() || block >= g.Blocks() {
		return Address{}, fmt.Errorf("block %d outside %s: %w", block, g, fault.ErrParameter)
	}
	sectors := uint64(g.Sectors)
	heads := uint64(g.Heads)
	return Address{
		Cylinder: uint32(block / (sectors * heads)),
		Head:     uint32((block / sectors) % heads),
		Sector:   uint32(block % sectors),
	}, nil
}

// Step to next sector, then head, then cylinder. Returns false past end of unit.
func (g Geometry) Next(a Address) (Address, bool) {
	a.Sector++
	if a.Sector < g.Sectors {
		return a, true
	}
	a.Sector = 0
	a.Head++
	if a.Head < g.Heads {
		return a, true
	}
	a.Head = 0
	a.Cylinder++
	if a.Cylinder < g.Cylinders {
		return a, true
	}
	return Address{Cylinder: g.Cylinders}, false
}

// Check whether requested geometry fits in this one.
func (g Geometry) Fits(req Geometry) bool {
	return req.Valid() && req.BytesPerSector == g.BytesPerSector && req.Size() <= g.Size()
}
