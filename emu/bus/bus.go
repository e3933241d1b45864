/*
 * HPDisk - HP-IB bus transport definitions.
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
	"errors"
)

// Direction of data on an addressed transaction.
type Direction uint8

const (
	Listen Direction = iota // Device receives data from host.
	Talk                    // Device sends data to host.
)

func (d Direction) String() string {
	if d == Talk {
		return "talk"
	}
	return "listen"
}

// Kind of bus event that started a transaction.
type Kind uint8

const (
	Addressed      Kind = iota // MLA/MTA followed by optional secondary.
	Identify                   // UNT followed by MSA.
	SelectedClear              // SDC to listener.
	UniversalClear             // DCL to every device.
	Reset                      // IFC.
)

var kindNames = [...]string{"addressed", "identify", "selected clear", "universal clear", "reset"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var (
	ErrEndOfTransaction = errors.New("end of transaction")
	ErrAborted          = errors.New("transaction aborted")
	ErrTimeout          = errors.New("bus addressing timeout")
	ErrClosed           = errors.New("bus closed")
)

// One bus addressed exchange.
type Transaction struct {
	Kind      Kind      // What started transaction.
	Address   uint8     // Primary address.
	Secondary uint8     // Secondary address 0x60-0x7f, 0 if none.
	Dir       Direction // Listen or talk.
	seq       uint64    // Host sequence number.
	count     int       // Bytes moved so far.
	done      bool      // End of transaction seen.
	aborted   bool      // Transaction aborted.
}

// Number of bytes moved on transaction.
func (tr *Transaction) Count() int {
	return tr.count
}

// Check if transaction has ended.
func (tr *Transaction) Done() bool {
	return tr.done
}

// Check if transaction was aborted.
func (tr *Transaction) Aborted() bool {
	return tr.aborted
}

// Byte oriented talk/listen transport consumed by the core.
type Transport interface {
	// Wait for next addressing event. Ends any previous transaction.
	BeginTransaction(ctx context.Context) (*Transaction, error)
	// Next listen byte, ErrEndOfTransaction when host is done.
	NextByte(tr *Transaction) (byte, error)
	// Send a talk byte, eoi marks last byte.
	SendByte(tr *Transaction, by byte, eoi bool) error
	// Abandon transaction.
	Abort(tr *Transaction)
}

// Optional parallel poll support.
type Poller interface {
	EnablePPR(bit uint8)
	DisablePPR(bit uint8)
}

// Send data, EOI on last byte.
func Send(t Transport, tr *Transaction, data []byte) error {
	for i, by := range data {
		if err := t.SendByte(tr, by, i == len(data)-1); err != nil {
			return err
		}
	}
	return nil
}

// Read listen bytes until end of transaction, keeping at most limit.
func ReadMessage(t Transport, tr *Transaction, limit int) ([]byte, error) {
	msg := []byte{}
	for {
		by, err := t.NextByte(tr)
		if errors.Is(err, ErrEndOfTransaction) {
			return msg, nil
		}
		if err != nil {
			return msg, err
		}
		if len(msg) < limit {
			msg = append(msg, by)
		}
	}
}

// Discard rest of listen data.
func Drain(t Transport, tr *Transaction) error {
	_, err := ReadMessage(t, tr, 0)
	return err
}
