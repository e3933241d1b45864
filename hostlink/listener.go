/*
 * HPDisk - Host link TCP server.
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

/*
   The host link lets a remote HP-IB controller, or a test script, drive
   the emulated bus over TCP. Each request frame becomes one bus
   operation. Talk, identify and poll are answered, other requests only
   answer on error.
*/

package hostlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rcornwell/hpdisk/emu/bus"
)

const DefaultTimeout = 5 * time.Second

type Server struct {
	listener net.Listener
	host     *bus.Host
	timeout  time.Duration // Limit on one bus operation.
}

// Open new listener.
func Listen(address string, host *bus.Host) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on address %s: %w", address, err)
	}

	return &Server{
		listener: listener,
		host:     host,
		timeout:  DefaultTimeout,
	}, nil
}

// Set limit on one bus operation.
func (s *Server) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Accept connections until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	slog.Info("Host link listening on " + s.listener.Addr().String())

	g.Go(func() error {
		<-ctx.Done()
		return s.listener.Close()
	})

	g.Go(func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("host link accept: %w", err)
			}
			g.Go(func() error {
				s.handleClient(ctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	slog.Info("Host link shut down")
	return err
}

// Process frames from one client.
func (s *Server) handleClient(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	slog.Info("Host connected", "from", remote)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
		slog.Info("Host disconnected", "from", remote)
	}()

	for {
		f, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.Warn("Host link read failed", "from", remote, "error", err.Error())
			}
			return
		}
		reply, err := s.process(ctx, f)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return
			}
			reply = errorFrame(err)
		}
		if reply == nil {
			continue
		}
		if err := WriteFrame(conn, *reply); err != nil {
			slog.Warn("Host link write failed", "from", remote, "error", err.Error())
			return
		}
	}
}

// Check payload holds at least n bytes.
func need(f Frame, n int) error {
	if len(f.Payload) < n {
		return fmt.Errorf("frame %c needs %d bytes, got %d", f.Type, n, len(f.Payload))
	}
	return nil
}

// Run one request on bus.
func (s *Server) process(ctx context.Context, f Frame) (*Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch f.Type {
	case FrameListen:
		if err := need(f, 2); err != nil {
			return nil, err
		}
		return nil, s.host.Listen(ctx, f.Payload[0], f.Payload[1], f.Payload[2:])
	case FrameTalk:
		if err := need(f, 2); err != nil {
			return nil, err
		}
		data, err := s.host.Talk(ctx, f.Payload[0], f.Payload[1])
		if err != nil {
			return nil, err
		}
		return &Frame{Type: FrameData, Payload: data}, nil
	case FrameClear:
		if err := need(f, 1); err != nil {
			return nil, err
		}
		return nil, s.host.Clear(ctx, f.Payload[0])
	case FrameUniversal:
		return nil, s.host.UniversalClear(ctx)
	case FrameReset:
		return nil, s.host.Reset(ctx)
	case FrameIdentify:
		if err := need(f, 1); err != nil {
			return nil, err
		}
		data, err := s.host.Identify(ctx, f.Payload[0])
		if err != nil {
			return nil, err
		}
		return &Frame{Type: FrameData, Payload: data}, nil
	case FramePoll:
		return &Frame{Type: FramePoll, Payload: []byte{s.host.ParallelPoll()}}, nil
	}
	return nil, fmt.Errorf("unknown frame type %q", f.Type)
}
