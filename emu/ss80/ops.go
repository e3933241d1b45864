/*
 * HPDisk - SS80 disk operations.
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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rcornwell/hpdisk/emu/bus"
	"github.com/rcornwell/hpdisk/emu/decoder"
	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/registry"
	"github.com/rcornwell/hpdisk/util/debug"
)

// Opcodes recorded with faults raised through the Go API.
const (
	opLocateRead   uint8 = 0x00
	opLocateWrite  uint8 = 0x02
	opLocateVerify uint8 = 0x04
	opSetAddress   uint8 = 0x10
	opDescribe     uint8 = 0x35
	opInitMedia    uint8 = 0x37
)

// Largest loopback transfer.
const maxLoopback = 65536

// Failure with transfer detail for extended status.
type transferError struct {
	err error
	ext fault.Extended
}

func (e *transferError) Error() string {
	return e.err.Error()
}

func (e *transferError) Unwrap() error {
	return e.err
}

// Latch fault on unit and flag hard error in QSTAT.
func (device *Drive) fail(unit uint8, err error, opcode uint8) {
	ext := fault.Extended{}
	var te *transferError
	if errors.As(err, &te) {
		ext = te.ext
	} else if u, lerr := device.units.Lookup(device.addr, unit); lerr == nil {
		ext.Block = u.Block()
	}
	ext.Opcode = opcode
	cond := fault.Classify(err)
	device.faults.LatchExtended(device.faultID(unit), cond, ext)
	device.qstat = qstatError
	debug.DebugDevf(device.addr, device.debugMsk, debugStatus, "unit %d %s: %v", unit, cond, err)
}

// Latch errors raised by the drive, not the caller.
func (device *Drive) failTransfer(unit uint8, err error, opcode uint8) {
	var te *transferError
	if errors.As(err, &te) {
		device.fail(unit, err, opcode)
	}
}

// Find unit ready for access.
func (device *Drive) ready(unit uint8) (*registry.Unit, error) {
	u, err := device.units.Lookup(device.addr, unit)
	if err != nil {
		return nil, err
	}
	if err := u.Ready(); err != nil {
		return nil, err
	}
	return u, nil
}

// Bytes to move for current length.
func (device *Drive) transferBytes(u *registry.Unit) uint64 {
	if device.length == fullLength {
		return (u.Capacity() - u.Block()) * uint64(u.Geometry.BytesPerSector)
	}
	return uint64(device.length)
}

func blocksFor(u *registry.Unit, count uint64) uint32 {
	bps := uint64(u.Geometry.BytesPerSector)
	return uint32((count + bps - 1) / bps)
}

// Transfer must fit between current address and end of volume.
func (device *Drive) bounds(u *registry.Unit, blocks uint32, write bool) error {
	if u.Block()+uint64(blocks) <= u.Capacity() {
		return nil
	}
	return &transferError{
		err: fmt.Errorf("unit %s %d blocks at %d: %w", u.Name(), blocks, u.Block(), fault.ErrParameter),
		ext: fault.Extended{Block: u.Block(), Requested: blocks, Write: write},
	}
}

func (device *Drive) seek(unit uint8, a registry.Address) error {
	u, err := device.ready(unit)
	if err != nil {
		return err
	}
	return u.Seek(a)
}

func (device *Drive) seekBlock(unit uint8, block uint64) error {
	u, err := device.ready(unit)
	if err != nil {
		return err
	}
	return u.SeekBlock(block)
}

// Move unit to address. On error the address is unchanged.
func (device *Drive) Seek(unit uint8, a registry.Address) error {
	err := device.seek(unit, a)
	if err != nil {
		device.fail(unit, err, opSetAddress)
	}
	return err
}

// Move unit to linear block.
func (device *Drive) SeekBlock(unit uint8, block uint64) error {
	err := device.seekBlock(unit, block)
	if err != nil {
		device.fail(unit, err, opSetAddress)
	}
	return err
}

// Read blocks from current address, passing each to fn.
func (device *Drive) read(u *registry.Unit, blocks uint32, fn func([]byte) error) (uint32, error) {
	if err := device.bounds(u, blocks, false); err != nil {
		return 0, err
	}
	for n := uint32(0); n < blocks; n++ {
		a := u.Address()
		data, err := u.ReadBlock(a)
		if err != nil {
			return n, &transferError{
				err: err,
				ext: fault.Extended{Block: u.Geometry.Block(a), Transferred: n, Requested: blocks},
			}
		}
		if err := fn(data); err != nil {
			return n, err
		}
		u.Advance()
	}
	return blocks, nil
}

// Read blocks from unit at current address.
func (device *Drive) Read(unit uint8, blocks uint32, fn func([]byte) error) (uint32, error) {
	u, err := device.ready(unit)
	if err != nil {
		device.fail(unit, err, opLocateRead)
		return 0, err
	}
	n, err := device.read(u, blocks, fn)
	if err != nil {
		device.failTransfer(unit, err, opLocateRead)
	}
	return n, err
}

// Verify blocks can be read.
func (device *Drive) Verify(unit uint8, blocks uint32) (uint32, error) {
	u, err := device.ready(unit)
	if err != nil {
		device.fail(unit, err, opLocateVerify)
		return 0, err
	}
	n, err := device.read(u, blocks, func([]byte) error { return nil })
	if err != nil {
		device.failTransfer(unit, err, opLocateVerify)
	}
	return n, err
}

// Collects bytes into blocks and writes each as it fills.
type blockWriter struct {
	unit    *registry.Unit
	buf     []byte
	total   uint64 // Bytes expected.
	got     uint64 // Bytes received.
	blocks  uint32 // Blocks expected.
	written uint32 // Blocks written.
	err     error
}

func (device *Drive) newWriter(u *registry.Unit, total uint64) (*blockWriter, error) {
	if u.ReadOnly() {
		return nil, &transferError{
			err: fmt.Errorf("unit %s: %w", u.Name(), fault.ErrWriteProtect),
			ext: fault.Extended{Block: u.Block(), Write: true},
		}
	}
	blocks := blocksFor(u, total)
	if err := device.bounds(u, blocks, true); err != nil {
		return nil, err
	}
	return &blockWriter{
		unit:   u,
		buf:    make([]byte, 0, u.Geometry.BytesPerSector),
		total:  total,
		blocks: blocks,
	}, nil
}

func (w *blockWriter) flush() error {
	a := w.unit.Address()
	if err := w.unit.WriteBlock(a, w.buf); err != nil {
		w.err = &transferError{
			err: err,
			ext: fault.Extended{Block: w.unit.Geometry.Block(a), Transferred: w.written, Requested: w.blocks, Write: true},
		}
		return w.err
	}
	w.written++
	w.buf = w.buf[:0]
	w.unit.Advance()
	return nil
}

// Bytes past the expected length are dropped.
func (w *blockWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	for i, by := range p {
		if w.got >= w.total {
			break
		}
		w.buf = append(w.buf, by)
		w.got++
		if len(w.buf) == cap(w.buf) {
			if err := w.flush(); err != nil {
				return i, err
			}
		}
	}
	return len(p), nil
}

// Finish transfer, a partial block is padded only when all bytes arrived.
func (w *blockWriter) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.got < w.total {
		return &transferError{
			err: fmt.Errorf("unit %s got %d of %d bytes: %w", w.unit.Name(), w.got, w.total, fault.ErrShortTransaction),
			ext: fault.Extended{Block: w.unit.Block(), Transferred: w.written, Requested: w.blocks, Write: true},
		}
	}
	if len(w.buf) > 0 {
		n := len(w.buf)
		w.buf = w.buf[:cap(w.buf)]
		clear(w.buf[n:])
		return w.flush()
	}
	return nil
}

// Write data at current address, final partial block is zero filled.
func (device *Drive) Write(unit uint8, data []byte) (uint32, error) {
	u, err := device.ready(unit)
	if err != nil {
		device.fail(unit, err, opLocateWrite)
		return 0, err
	}
	w, err := device.newWriter(u, uint64(len(data)))
	if err != nil {
		device.fail(unit, err, opLocateWrite)
		return 0, err
	}
	_, err = w.Write(data)
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		device.fail(unit, err, opLocateWrite)
	}
	return w.written, err
}

func (device *Drive) initialize(u *registry.Unit, geom registry.Geometry) error {
	if !u.Geometry.Fits(geom) {
		return fmt.Errorf("unit %s geometry %s does not fit %s: %w", u.Name(), geom, u.Geometry, fault.ErrParameter)
	}
	if u.ReadOnly() {
		return fmt.Errorf("unit %s: %w", u.Name(), fault.ErrWriteProtect)
	}
	zero := make([]byte, u.Geometry.BytesPerSector)
	blocks := geom.Blocks()
	for n := uint64(0); n < blocks; n++ {
		a, err := u.Geometry.Address(n)
		if err != nil {
			return err
		}
		if err := u.WriteBlock(a, zero); err != nil {
			return &transferError{
				err: err,
				ext: fault.Extended{Block: n, Transferred: uint32(n), Requested: uint32(blocks), Write: true},
			}
		}
	}
	u.Rewind()
	return nil
}

// Zero fill unit media for geometry.
func (device *Drive) Initialize(unit uint8, geom registry.Geometry) error {
	u, err := device.ready(unit)
	if err == nil {
		err = device.initialize(u, geom)
	}
	if err != nil {
		device.fail(unit, err, opInitMedia)
	}
	return err
}

// Zero fill whole unit. SS80 media is always cleared to zero.
func (device *Drive) Format(unit uint8, _ byte) error {
	u, err := device.ready(unit)
	if err != nil {
		device.fail(unit, err, opInitMedia)
		return err
	}
	return device.Initialize(unit, u.Geometry)
}

// Complementary and immediate commands.

func (device *Drive) accept(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	return nil
}

func (device *Drive) setUnit(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	device.switchUnit(cmd.Index())
	return nil
}

// Only volume 0 exists.
func (device *Drive) setVolume(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	if cmd.Index() != 0 {
		return fmt.Errorf("volume %d: %w", cmd.Index(), fault.ErrParameter)
	}
	device.volume = 0
	return nil
}

func (device *Drive) setAddress(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	p := cmd.Params
	if device.threeVector {
		a := registry.Address{
			Cylinder: uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2]),
			Head:     uint32(p[3]),
			Sector:   uint32(p[4])<<8 | uint32(p[5]),
		}
		return device.seek(device.unit, a)
	}
	var block uint64
	for _, by := range p {
		block = block<<8 | uint64(by)
	}
	return device.seekBlock(device.unit, block)
}

func (device *Drive) setLength(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	device.length = binary.BigEndian.Uint32(cmd.Params)
	return nil
}

func (device *Drive) setStatusMask(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	copy(device.statusMask[:], cmd.Params)
	return nil
}

func (device *Drive) setReturnMode(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	switch cmd.Params[0] {
	case 0:
		device.threeVector = false
	case 1:
		device.threeVector = true
	default:
		return fmt.Errorf("return addressing mode %d: %w", cmd.Params[0], fault.ErrParameter)
	}
	return nil
}

func (device *Drive) doorLock(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.units.Lookup(device.addr, device.unit)
	if err != nil {
		return err
	}
	u.SetLocked(true)
	return nil
}

func (device *Drive) doorUnlock(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.units.Lookup(device.addr, device.unit)
	if err != nil {
		return err
	}
	u.SetLocked(false)
	return nil
}

func (device *Drive) locateVerify(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	_, err = device.read(u, blocksFor(u, device.transferBytes(u)), func([]byte) error { return nil })
	return err
}

func (device *Drive) initMedia(cmd decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	if cmd.Params[1] != 0 {
		u.Interleave = cmd.Params[1]
	}
	return device.initialize(u, u.Geometry)
}

func (device *Drive) channelClear(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	device.clear(device.unit)
	return nil
}

func (device *Drive) cancel(_ decoder.Command, _ bus.Transport, _ *bus.Transaction) error {
	device.exec = nil
	return nil
}

// Execute phase commands.

// Stream length bytes from current address, EOI on last byte.
func (device *Drive) locateRead(_ decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	total := device.transferBytes(u)
	sent := uint64(0)
	_, err = device.read(u, blocksFor(u, total), func(data []byte) error {
		for _, by := range data {
			if sent >= total {
				break
			}
			sent++
			if err := t.SendByte(tr, by, sent == total); err != nil {
				return err
			}
		}
		return nil
	})
	debug.DebugDevf(device.addr, device.debugMsk, debugData, "read %d bytes unit %d", sent, device.unit)
	return err
}

// Receive length bytes and write them at current address.
func (device *Drive) locateWrite(_ decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	u, err := device.ready(device.unit)
	if err != nil {
		return err
	}
	w, err := device.newWriter(u, device.transferBytes(u))
	if err != nil {
		return err
	}
	for {
		by, err := t.NextByte(tr)
		if errors.Is(err, bus.ErrEndOfTransaction) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte{by}); err != nil {
			return err
		}
	}
	debug.DebugDevf(device.addr, device.debugMsk, debugData, "write %d bytes unit %d", w.got, device.unit)
	return w.Close()
}

func (device *Drive) requestStatus(_ decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	st := device.RequestStatus(device.unit)
	return bus.Send(t, tr, st[:])
}

func (device *Drive) describe(_ decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	data, err := device.describeUnit(device.unit)
	if err != nil {
		return err
	}
	return bus.Send(t, tr, data)
}

func (device *Drive) readLoopback(cmd decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	count := binary.BigEndian.Uint32(cmd.Params)
	if count > maxLoopback {
		return fmt.Errorf("loopback length %d: %w", count, fault.ErrParameter)
	}
	for i := uint32(0); i < count; i++ {
		if err := t.SendByte(tr, byte(i), i == count-1); err != nil {
			return err
		}
	}
	return nil
}

func (device *Drive) writeLoopback(_ decoder.Command, t bus.Transport, tr *bus.Transaction) error {
	return bus.Drain(t, tr)
}
