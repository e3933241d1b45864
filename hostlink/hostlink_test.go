/*
 * HPDisk - Host link tests.
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
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/hpdisk/emu/bus"
)

// Device loop at address 2 that keeps last listen message and talks it back.
func runDevice(ctx context.Context, buf *bus.Buffer, kinds chan<- bus.Kind) {
	var last []byte
	for {
		tr, err := buf.BeginTransaction(ctx)
		if err != nil {
			return
		}
		kinds <- tr.Kind
		if tr.Address != 2 && tr.Kind != bus.UniversalClear && tr.Kind != bus.Reset {
			continue
		}
		switch {
		case tr.Kind == bus.Identify:
			_ = bus.Send(buf, tr, []byte{0x02, 0x21})
		case tr.Kind != bus.Addressed:
		case tr.Dir == bus.Listen:
			last, _ = bus.ReadMessage(buf, tr, 256)
		default:
			_ = bus.Send(buf, tr, last)
		}
	}
}

type testLink struct {
	t     *testing.T
	conn  net.Conn
	kinds chan bus.Kind
	buf   *bus.Buffer
}

func newLink(t *testing.T) *testLink {
	t.Helper()
	buf := bus.NewBuffer(64, time.Second)
	s, err := Listen("127.0.0.1:0", buf.Host())
	require.NoError(t, err)
	s.SetTimeout(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	kinds := make(chan bus.Kind, 16)
	go runDevice(ctx, buf, kinds)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
		buf.Close()
	})
	return &testLink{t: t, conn: conn, kinds: kinds, buf: buf}
}

func (tl *testLink) send(typ byte, payload ...byte) {
	tl.t.Helper()
	require.NoError(tl.t, WriteFrame(tl.conn, Frame{Type: typ, Payload: payload}))
}

func (tl *testLink) recv() Frame {
	tl.t.Helper()
	f, err := ReadFrame(tl.conn)
	require.NoError(tl.t, err)
	return f
}

func (tl *testLink) kind() bus.Kind {
	tl.t.Helper()
	select {
	case k := <-tl.kinds:
		return k
	case <-time.After(time.Second):
		tl.t.Fatal("no bus transaction")
	}
	return 0
}

func TestFrameCodec(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Frame{Type: FrameListen, Payload: []byte{2, 0x65, 1, 2}}))
	assert.Equal(t, []byte{'L', 0, 4, 2, 0x65, 1, 2}, buf.Bytes())

	f, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, FrameListen, f.Type)
	assert.Equal(t, []byte{2, 0x65, 1, 2}, f.Payload)

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)

	_, err = ReadFrame(bytes.NewReader([]byte{'T', 0, 2, 2}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	err = WriteFrame(&buf, Frame{Type: FrameData, Payload: make([]byte, MaxPayload+1)})
	assert.True(t, errors.Is(err, ErrFrameSize))
}

func TestListenTalk(t *testing.T) {
	tl := newLink(t)
	tl.send(FrameListen, 2, 0x65, 0x20, 0x0d)
	assert.Equal(t, bus.Addressed, tl.kind())
	tl.send(FrameTalk, 2, 0x6e)
	f := tl.recv()
	assert.Equal(t, FrameData, f.Type)
	assert.Equal(t, []byte{0x20, 0x0d}, f.Payload)
}

func TestIdentifyAndPoll(t *testing.T) {
	tl := newLink(t)
	tl.send(FrameIdentify, 2)
	f := tl.recv()
	assert.Equal(t, FrameData, f.Type)
	assert.Equal(t, []byte{0x02, 0x21}, f.Payload)

	tl.buf.EnablePPR(2)
	tl.send(FramePoll)
	f = tl.recv()
	assert.Equal(t, FramePoll, f.Type)
	assert.Equal(t, []byte{0x20}, f.Payload)
}

func TestClears(t *testing.T) {
	tl := newLink(t)
	tl.send(FrameClear, 2)
	assert.Equal(t, bus.SelectedClear, tl.kind())
	tl.send(FrameUniversal)
	assert.Equal(t, bus.UniversalClear, tl.kind())
	tl.send(FrameReset)
	assert.Equal(t, bus.Reset, tl.kind())
}

func TestBadFrames(t *testing.T) {
	tl := newLink(t)
	tl.send('X')
	f := tl.recv()
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, string(f.Payload), "unknown frame type")

	tl.send(FrameTalk, 2)
	f = tl.recv()
	assert.Equal(t, FrameError, f.Type)
	assert.Contains(t, string(f.Payload), "needs 2 bytes")

	// Link still works.
	tl.send(FrameIdentify, 2)
	assert.Equal(t, FrameData, tl.recv().Type)
}
