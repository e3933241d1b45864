/*
 * HPDisk - Host controller side of bus buffer.
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
)

// Host drives the bus as system controller.
type Host struct {
	buf *Buffer
	mu  sync.Mutex
	seq uint64
}

// Return host controller for buffer.
func (b *Buffer) Host() *Host {
	return &Host{buf: b}
}

// Queue an event for the core.
func (h *Host) post(ctx context.Context, ev event) error {
	select {
	case h.buf.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.buf.closed:
		return ErrClosed
	}
}

// Start a new transaction.
func (h *Host) begin(ctx context.Context, tr Transaction) (uint64, error) {
	h.seq++
	tr.seq = h.seq
	return tr.seq, h.post(ctx, event{kind: evBegin, tr: tr})
}

// Collect talk data until core finishes transaction.
func (h *Host) wait(ctx context.Context, seq uint64) ([]byte, error) {
	data := []byte{}
	for {
		select {
		case r := <-h.buf.out:
			if r.Seq != seq {
				continue
			}
			if r.Done {
				return data, nil
			}
			data = append(data, r.Data)
		case <-ctx.Done():
			return data, ctx.Err()
		case <-h.buf.closed:
			return data, ErrClosed
		}
	}
}

// Address device to listen and send data.
func (h *Host) Listen(ctx context.Context, addr, sec uint8, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq, err := h.begin(ctx, Transaction{Kind: Addressed, Address: addr, Secondary: sec, Dir: Listen})
	if err != nil {
		return err
	}
	for _, by := range data {
		if err := h.post(ctx, event{kind: evData, data: by}); err != nil {
			return err
		}
	}
	if err := h.post(ctx, event{kind: evEnd}); err != nil {
		return err
	}
	_, err = h.wait(ctx, seq)
	return err
}

// Address device to talk and collect what it sends.
func (h *Host) Talk(ctx context.Context, addr, sec uint8) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq, err := h.begin(ctx, Transaction{Kind: Addressed, Address: addr, Secondary: sec, Dir: Talk})
	if err != nil {
		return nil, err
	}
	return h.wait(ctx, seq)
}

// Send a command that carries no data.
func (h *Host) command(ctx context.Context, tr Transaction) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq, err := h.begin(ctx, tr)
	if err != nil {
		return nil, err
	}
	return h.wait(ctx, seq)
}

// Selected device clear.
func (h *Host) Clear(ctx context.Context, addr uint8) error {
	_, err := h.command(ctx, Transaction{Kind: SelectedClear, Address: addr})
	return err
}

// Device clear to every device.
func (h *Host) UniversalClear(ctx context.Context) error {
	_, err := h.command(ctx, Transaction{Kind: UniversalClear})
	return err
}

// Interface clear.
func (h *Host) Reset(ctx context.Context) error {
	_, err := h.command(ctx, Transaction{Kind: Reset})
	return err
}

// Request identify bytes from device.
func (h *Host) Identify(ctx context.Context, addr uint8) ([]byte, error) {
	return h.command(ctx, Transaction{Kind: Identify, Address: addr, Dir: Talk})
}

// Conduct a parallel poll.
func (h *Host) ParallelPoll() uint8 {
	return h.buf.PPR()
}
