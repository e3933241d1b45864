/*
 * HPDisk - Disk image backing stores.
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

package image

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/store"
)

// Images held in ordinary files.
type FileStore struct {
	Dir string // Directory relative names are opened in.
}

type fileImage struct {
	file     *os.File
	size     int64
	readOnly bool
}

// Open image file. Missing writable images are created at full size.
func (fs FileStore) Open(name string, size int64, readOnly bool) (store.Image, error) {
	if fs.Dir != "" && !filepath.IsAbs(name) {
		name = filepath.Join(fs.Dir, name)
	}
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	file, err := os.OpenFile(name, flag, 0)
	if errors.Is(err, os.ErrNotExist) && !readOnly {
		file, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
		if err == nil {
			err = file.Truncate(size)
		}
	}
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, err
	}
	return &fileImage{file: file, size: size, readOnly: readOnly}, nil
}

// Reads beyond end of file inside unit return zeros.
func (img *fileImage) ReadBlock(offset int64, count int) ([]byte, error) {
	if offset < 0 || offset+int64(count) > img.size {
		return nil, fmt.Errorf("read %d+%d: %w", offset, count, store.ErrRange)
	}
	buf := make([]byte, count)
	_, err := img.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf, nil
}

func (img *fileImage) WriteBlock(offset int64, data []byte) error {
	if img.readOnly {
		return fmt.Errorf("%s: %w", img.file.Name(), fault.ErrWriteProtect)
	}
	if offset < 0 || offset+int64(len(data)) > img.size {
		return fmt.Errorf("write %d+%d: %w", offset, len(data), store.ErrRange)
	}
	_, err := img.file.WriteAt(data, offset)
	return err
}

func (img *fileImage) Close() error {
	return img.file.Close()
}

// Images kept in memory, contents survive close.
type MemoryStore struct {
	mu     sync.Mutex
	images map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{images: map[string][]byte{}}
}

type memImage struct {
	ms       *MemoryStore
	name     string
	readOnly bool
}

func (ms *MemoryStore) Open(name string, size int64, readOnly bool) (store.Image, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	data, ok := ms.images[name]
	if !ok && readOnly {
		return nil, fmt.Errorf("image %s: %w", name, os.ErrNotExist)
	}
	if int64(len(data)) < size {
		data = append(data, make([]byte, size-int64(len(data)))...)
		ms.images[name] = data
	}
	return &memImage{ms: ms, name: name, readOnly: readOnly}, nil
}

// Contents of image, nil if not present.
func (ms *MemoryStore) Image(name string) []byte {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.images[name]
}

// Preload image contents.
func (ms *MemoryStore) Load(name string, data []byte) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.images[name] = append([]byte{}, data...)
}

func (img *memImage) ReadBlock(offset int64, count int) ([]byte, error) {
	img.ms.mu.Lock()
	defer img.ms.mu.Unlock()
	data := img.ms.images[img.name]
	if offset < 0 || offset+int64(count) > int64(len(data)) {
		return nil, fmt.Errorf("read %d+%d: %w", offset, count, store.ErrRange)
	}
	buf := make([]byte, count)
	copy(buf, data[offset:])
	return buf, nil
}

func (img *memImage) WriteBlock(offset int64, buf []byte) error {
	if img.readOnly {
		return fmt.Errorf("%s: %w", img.name, fault.ErrWriteProtect)
	}
	img.ms.mu.Lock()
	defer img.ms.mu.Unlock()
	data := img.ms.images[img.name]
	if offset < 0 || offset+int64(len(buf)) > int64(len(data)) {
		return fmt.Errorf("write %d+%d: %w", offset, len(buf), store.ErrRange)
	}
	copy(data[offset:], buf)
	return nil
}

func (img *memImage) Close() error {
	return nil
}
