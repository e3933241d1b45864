/*
 * HPDisk - Disk image store tests.
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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/hpdisk/emu/fault"
	"github.com/rcornwell/hpdisk/emu/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCreate(t *testing.T) {
	dir := t.TempDir()
	fs := FileStore{Dir: dir}

	img, err := fs.Open("disk.img", 4*256, false)
	require.NoError(t, err)
	defer img.Close()

	info, err := os.Stat(filepath.Join(dir, "disk.img"))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Size())

	block := bytes.Repeat([]byte{0xaa}, 256)
	require.NoError(t, img.WriteBlock(768, block))
	data, err := img.ReadBlock(768, 256)
	require.NoError(t, err)
	assert.Equal(t, block, data)

	_, err = img.ReadBlock(1024, 256)
	require.ErrorIs(t, err, store.ErrRange)
	err = img.WriteBlock(-1, block)
	require.ErrorIs(t, err, store.ErrRange)
}

func TestFileShortImage(t *testing.T) {
	// Image smaller than unit reads as zero past end.
	file, err := os.CreateTemp(t.TempDir(), "short*.img")
	require.NoError(t, err)
	_, err = file.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	file.Close()

	img, err := FileStore{}.Open(file.Name(), 512, true)
	require.NoError(t, err)
	defer img.Close()
	data, err := img.ReadBlock(0, 256)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0}, data[:4])
	data, err = img.ReadBlock(256, 256)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 256), data)

	err = img.WriteBlock(0, data)
	require.ErrorIs(t, err, fault.ErrWriteProtect)
}

func TestFileMissingReadOnly(t *testing.T) {
	_, err := FileStore{Dir: t.TempDir()}.Open("none.img", 512, true)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryStore(t *testing.T) {
	ms := NewMemoryStore()
	_, err := ms.Open("fd0", 512, true)
	require.ErrorIs(t, err, os.ErrNotExist)

	img, err := ms.Open("fd0", 512, false)
	require.NoError(t, err)
	require.NoError(t, img.WriteBlock(256, bytes.Repeat([]byte{0x55}, 256)))
	require.NoError(t, img.Close())
	assert.Equal(t, byte(0x55), ms.Image("fd0")[300])

	ro, err := ms.Open("fd0", 512, true)
	require.NoError(t, err)
	data, err := ro.ReadBlock(256, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x55}, data)
	require.ErrorIs(t, ro.WriteBlock(0, data), fault.ErrWriteProtect)
	_, err = ro.ReadBlock(511, 2)
	require.ErrorIs(t, err, store.ErrRange)

	ms.Load("hd0", []byte{9})
	img, err = ms.Open("hd0", 256, false)
	require.NoError(t, err)
	data, err = img.ReadBlock(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 0}, data)
}
