/*
 * HPDisk - Backing store test double.
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
	"errors"
	"fmt"

	"github.com/rcornwell/hpdisk/emu/store"
)

var ErrInjected = errors.New("injected store fault")

// Store that keeps images in memory and counts every call.
type Store struct {
	Images    map[string][]byte // Image contents by name.
	Opens     int               // Calls to Open.
	Reads     int               // Calls to ReadBlock.
	Writes    int               // Calls to WriteBlock.
	Closes    int               // Calls to Close.
	failRead  int               // Read call that fails, 0 none.
	failWrite int               // Write call that fails, 0 none.
	openErr   error             // Error returned from Open.
}

type image struct {
	st       *Store
	name     string
	readOnly bool
}

func New() *Store {
	return &Store{Images: map[string][]byte{}}
}

// Fail the n'th read from now, counting from 1.
func (s *Store) FailRead(n int) {
	s.failRead = s.Reads + n
}

// Fail the n'th write from now, counting from 1.
func (s *Store) FailWrite(n int) {
	s.failWrite = s.Writes + n
}

// Make Open return err.
func (s *Store) FailOpen(err error) {
	s.openErr = err
}

// Total calls made to store.
func (s *Store) Calls() int {
	return s.Opens + s.Reads + s.Writes + s.Closes
}

func (s *Store) Open(name string, size int64, readOnly bool) (store.Image, error) {
	s.Opens++
	if s.openErr != nil {
		return nil, s.openErr
	}
	data := s.Images[name]
	if int64(len(data)) < size {
		data = append(data, make([]byte, size-int64(len(data)))...)
	}
	s.Images[name] = data
	return &image{st: s, name: name, readOnly: readOnly}, nil
}

func (img *image) ReadBlock(offset int64, count int) ([]byte, error) {
	s := img.st
	s.Reads++
	if s.Reads == s.failRead {
		return nil, ErrInjected
	}
	data := s.Images[img.name]
	if offset < 0 || offset+int64(count) > int64(len(data)) {
		return nil, fmt.Errorf("read %d: %w", offset, store.ErrRange)
	}
	buf := make([]byte, count)
	copy(buf, data[offset:])
	return buf, nil
}

func (img *image) WriteBlock(offset int64, buf []byte) error {
	s := img.st
	s.Writes++
	if s.Writes == s.failWrite {
		return ErrInjected
	}
	data := s.Images[img.name]
	if offset < 0 || offset+int64(len(buf)) > int64(len(data)) {
		return fmt.Errorf("write %d: %w", offset, store.ErrRange)
	}
	copy(data[offset:], buf)
	return nil
}

func (img *image) Close() error {
	img.st.Closes++
	return nil
}
