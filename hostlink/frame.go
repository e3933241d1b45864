/*
 * HPDisk - Host link frame codec.
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

package hostlink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame types.
const (
	FrameListen    byte = 'L' // addr, secondary, data...
	FrameTalk      byte = 'T' // addr, secondary
	FrameClear     byte = 'C' // addr
	FrameUniversal byte = 'U' // Device clear to all
	FrameReset     byte = 'R' // Interface clear
	FrameIdentify  byte = 'I' // addr
	FramePoll      byte = 'P' // Parallel poll, answer is 1 byte
	FrameData      byte = 'D' // Talk or identify answer
	FrameError     byte = 'E' // Error text

	MaxPayload = 0xffff
	headerSize = 3
)

var ErrFrameSize = errors.New("frame payload too large")

// One message on host link.
type Frame struct {
	Type    byte
	Payload []byte
}

// Read a frame, io.EOF when connection closed between frames.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	f := Frame{Type: hdr[0], Payload: make([]byte, binary.BigEndian.Uint16(hdr[1:]))}
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, fmt.Errorf("frame %c: %w", f.Type, err)
	}
	return f, nil
}

// Write a frame in one write.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxPayload {
		return ErrFrameSize
	}
	buf := make([]byte, headerSize, headerSize+len(f.Payload))
	buf[0] = f.Type
	binary.BigEndian.PutUint16(buf[1:], uint16(len(f.Payload)))
	buf = append(buf, f.Payload...)
	_, err := w.Write(buf)
	return err
}

func errorFrame(err error) *Frame {
	return &Frame{Type: FrameError, Payload: []byte(err.Error())}
}
