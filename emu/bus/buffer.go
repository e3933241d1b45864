/*
 * HPDisk - Bounded buffer bus transport.
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

package bus

import (
	"context"
	"sync"
	"time"
)

type eventKind uint8

const (
	evBegin eventKind = iota // Addressing event.
	evData                   // Listen data byte.
	evEnd                    // Host unlistened.
)

type event struct {
	kind eventKind
	tr   Transaction
	data byte
}

// Data returned to host for talk transactions.
type Reply struct {
	Seq  uint64 // Transaction this belongs to.
	Data byte   // Data byte.
	EOI  bool   // Last byte of message.
	Done bool   // Transaction finished.
}

// Buffer is a bounded producer/consumer transport. The host side
// fills events, the core drains them.
type Buffer struct {
	events  chan event
	out     chan Reply
	closed  chan struct{}
	once    sync.Once
	timeout time.Duration // Addressing timeout, 0 waits forever.
	pending []event       // Events taken early, handled before channel.
	current *Transaction  // Transaction in progress.
	mu      sync.Mutex
	ppr     uint8 // Parallel poll response lines.
}

// Create a new bus buffer holding size events.
func NewBuffer(size int, timeout time.Duration) *Buffer {
	if size <= 0 {
		size = 1024
	}
	return &Buffer{
		events:  make(chan event, size),
		out:     make(chan Reply, size),
		closed:  make(chan struct{}),
		timeout: timeout,
	}
}

// Shut down buffer, any waiters return ErrClosed.
func (b *Buffer) Close() {
	b.once.Do(func() { close(b.closed) })
}

// Set addressing timeout.
func (b *Buffer) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Return channel that fires after timeout, nil never fires.
func (b *Buffer) timer() (<-chan time.Time, func()) {
	if b.timeout <= 0 {
		return nil, func() {}
	}
	t := time.NewTimer(b.timeout)
	return t.C, func() { t.Stop() }
}

// Post a reply to host.
func (b *Buffer) reply(r Reply) error {
	expire, stop := b.timer()
	defer stop()
	select {
	case b.out <- r:
		return nil
	case <-expire:
		return ErrTimeout
	case <-b.closed:
		return ErrClosed
	}
}

// Finish up current transaction and tell host.
func (b *Buffer) finish() {
	if b.current == nil {
		return
	}
	b.current.done = true
	_ = b.reply(Reply{Seq: b.current.seq, Done: true})
	b.current = nil
}

// Take first held back event.
func (b *Buffer) unqueue() (event, bool) {
	if len(b.pending) == 0 {
		return event{}, false
	}
	ev := b.pending[0]
	b.pending = b.pending[1:]
	return ev, true
}

func (b *Buffer) BeginTransaction(ctx context.Context) (*Transaction, error) {
	b.finish()
	for {
		ev, ok := b.unqueue()
		if !ok {
			break
		}
		if ev.kind == evBegin {
			tr := ev.tr
			b.current = &tr
			return b.current, nil
		}
	}
	for {
		select {
		case ev := <-b.events:
			// Data outside of a transaction is dropped.
			if ev.kind != evBegin {
				continue
			}
			tr := ev.tr
			b.current = &tr
			return b.current, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.closed:
			return nil, ErrClosed
		}
	}
}

func (b *Buffer) NextByte(tr *Transaction) (byte, error) {
	if tr.aborted {
		return 0, ErrAborted
	}
	if tr.done || tr != b.current {
		return 0, ErrEndOfTransaction
	}
	if ev, ok := b.unqueue(); ok {
		return b.listenEvent(tr, ev)
	}
	expire, stop := b.timer()
	defer stop()
	select {
	case ev := <-b.events:
		return b.listenEvent(tr, ev)
	case <-expire:
		tr.aborted = true
		return 0, ErrTimeout
	case <-b.closed:
		return 0, ErrClosed
	}
}

// Apply event to listen transaction.
func (b *Buffer) listenEvent(tr *Transaction, ev event) (byte, error) {
	switch ev.kind {
	case evData:
		tr.count++
		return ev.data, nil
	case evEnd:
		tr.done = true
		return 0, ErrEndOfTransaction
	}
	b.pending = append([]event{ev}, b.pending...)
	if ev.tr.Kind == Addressed || ev.tr.Kind == Identify {
		tr.done = true
		return 0, ErrEndOfTransaction
	}
	tr.aborted = true
	return 0, ErrAborted
}

func (b *Buffer) SendByte(tr *Transaction, by byte, eoi bool) error {
	if tr.aborted {
		return ErrAborted
	}
	if tr.done || tr != b.current {
		return ErrEndOfTransaction
	}
	// Host may have moved on. Other events are held for later.
	select {
	case ev := <-b.events:
		b.pending = append(b.pending, ev)
		if ev.kind == evBegin {
			tr.aborted = ev.tr.Kind != Addressed && ev.tr.Kind != Identify
			tr.done = !tr.aborted
			if tr.aborted {
				return ErrAborted
			}
			return ErrEndOfTransaction
		}
	default:
	}
	err := b.reply(Reply{Seq: tr.seq, Data: by, EOI: eoi})
	if err != nil {
		tr.aborted = true
		return err
	}
	tr.count++
	if eoi {
		tr.done = true
	}
	return nil
}

func (b *Buffer) Abort(tr *Transaction) {
	tr.aborted = true
}

func (b *Buffer) EnablePPR(bit uint8) {
	b.mu.Lock()
	b.ppr |= 0x80 >> (bit & 7)
	b.mu.Unlock()
}

func (b *Buffer) DisablePPR(bit uint8) {
	b.mu.Lock()
	b.ppr &^= 0x80 >> (bit & 7)
	b.mu.Unlock()
}

// Current parallel poll response.
func (b *Buffer) PPR() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ppr
}
