/*
 * HPDisk - Scripted bus transport for device tests.
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

package testdev

import (
	"context"

	"github.com/rcornwell/hpdisk/emu/bus"
	"github.com/rcornwell/hpdisk/emu/device"
)

// Transport that feeds listen bytes from a slice and records talk bytes.
type Bus struct {
	In      []byte // Listen bytes not yet read.
	Out     []byte // Talk bytes sent.
	EOI     []int  // Index in Out of bytes sent with EOI.
	Err     error  // Returned when In runs out, end of transaction if nil.
	SendErr error  // Returned by SendByte once Out reaches SendMax.
	SendMax int
	PPR     uint8 // Parallel poll response mask.
	Aborts  int
}

func (b *Bus) BeginTransaction(_ context.Context) (*bus.Transaction, error) {
	return nil, bus.ErrClosed
}

func (b *Bus) NextByte(_ *bus.Transaction) (byte, error) {
	if len(b.In) == 0 {
		if b.Err != nil {
			return 0, b.Err
		}
		return 0, bus.ErrEndOfTransaction
	}
	by := b.In[0]
	b.In = b.In[1:]
	return by, nil
}

func (b *Bus) SendByte(_ *bus.Transaction, by byte, eoi bool) error {
	if b.SendErr != nil && len(b.Out) >= b.SendMax {
		return b.SendErr
	}
	if eoi {
		b.EOI = append(b.EOI, len(b.Out))
	}
	b.Out = append(b.Out, by)
	return nil
}

func (b *Bus) Abort(_ *bus.Transaction) {
	b.Aborts++
}

func (b *Bus) EnablePPR(bit uint8) {
	b.PPR |= 0x80 >> (bit & 7)
}

func (b *Bus) DisablePPR(bit uint8) {
	b.PPR &^= 0x80 >> (bit & 7)
}

func (b *Bus) reset(in []byte) {
	b.In = in
	b.Out = nil
	b.EOI = nil
}

// Send data to device on secondary.
func (b *Bus) Listen(dev device.Device, sec uint8, data ...byte) error {
	b.reset(data)
	tr := &bus.Transaction{Kind: bus.Addressed, Address: dev.Address(), Secondary: sec, Dir: bus.Listen}
	return dev.Transaction(b, tr)
}

// Read data from device on secondary.
func (b *Bus) Talk(dev device.Device, sec uint8) ([]byte, error) {
	b.reset(nil)
	tr := &bus.Transaction{Kind: bus.Addressed, Address: dev.Address(), Secondary: sec, Dir: bus.Talk}
	err := dev.Transaction(b, tr)
	return b.Out, err
}

// Issue identify, clear or reset.
func (b *Bus) Command(dev device.Device, kind bus.Kind) ([]byte, error) {
	b.reset(nil)
	tr := &bus.Transaction{Kind: kind, Address: dev.Address(), Dir: bus.Talk}
	err := dev.Transaction(b, tr)
	return b.Out, err
}
