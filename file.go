// Copyright 2025 The PFD Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pfd

import (
	"bytes"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// DetectionBlockSize is the size of the head-of-file buffer inspected for
// magic numbers: a power of two in the 16 KiB range.
const DetectionBlockSize = 16 * 1024

// openedFile holds the OS-level resources behind an ascii/binary [Product]:
// either a memory mapping or a fully-buffered read, released together on
// Close.
type openedFile struct {
	f    *os.File
	mm   mmap.MMap
	data []byte
}

func openProductFile(path string, opts Options) (*openedFile, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, newError(FileNotFound, "product file %q not found", path)
		}
		return nil, 0, newError(FileOpen, "opening %q: %v", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, newError(FileOpen, "statting %q: %v", path, err)
	}
	size := info.Size()

	of := &openedFile{f: f}
	if opts.UseMmap && size > 0 {
		mm, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, 0, newError(FileOpen, "mmap %q: %v", path, err)
		}
		of.mm = mm
		of.data = mm
		return of, size, nil
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, 0, newError(FileRead, "reading %q: %v", path, err)
	}
	of.data = buf
	return of, size, nil
}

func (of *openedFile) Close() error {
	var firstErr error
	if of.mm != nil {
		if err := of.mm.Unmap(); err != nil {
			firstErr = err
		}
	}
	if err := of.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return newError(FileOpen, "closing product file: %v", firstErr)
	}
	return nil
}

// sniffFormat inspects a head-of-file buffer for the magic numbers of
// the table. It returns FormatBinary if nothing else matches.
func sniffFormat(head []byte) Format {
	switch {
	case len(head) >= 4 && bytes.HasPrefix(head, []byte("CDF")) && (head[3] == 0x01 || head[3] == 0x02):
		return FormatNetCDF
	case len(head) >= 4 && bytes.Equal(head[:4], []byte{0x0E, 0x03, 0x13, 0x01}):
		return FormatHDF4
	case hasHDF5Signature(head):
		return FormatHDF5
	case len(head) >= 8 && bytes.Equal(head[:8], []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00, 0xFF, 0xFF}):
		return FormatCDF
	case len(head) >= 4 && bytes.Equal(head[:4], []byte("GRIB")):
		return FormatGRIB
	case isXML(head):
		return FormatXML
	case len(head) >= 1 && head[0] == '#' && len(head) >= 2 && (head[1] == 'a' || head[1] == 'b' || head[1] == 'c') && len(head) >= 3 && (head[2] == 'P' || head[2] == 'V'):
		return FormatSP3
	case len(head) >= 60+20 && bytes.Contains(head[60:min(len(head), 80)], []byte("RINEX VERSION / TYPE")):
		return FormatRINEX
	default:
		return FormatBinary
	}
}

var hdf5Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1A, '\n'}

// hasHDF5Signature checks offset 0 and the superblock-search offsets
// 512*2^n required by the HDF5 spec.
func hasHDF5Signature(head []byte) bool {
	if bytes.HasPrefix(head, hdf5Signature) {
		return true
	}
	for offset := int64(512); offset < int64(len(head)); offset *= 2 {
		if offset+int64(len(hdf5Signature)) > int64(len(head)) {
			break
		}
		if bytes.Equal(head[offset:offset+int64(len(hdf5Signature))], hdf5Signature) {
			return true
		}
	}
	return false
}

func isXML(head []byte) bool {
	h := bytes.TrimLeft(head, "\x00")
	h = bytes.TrimPrefix(h, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM
	return bytes.HasPrefix(bytes.TrimLeft(h, " \t\r\n"), []byte("<?xml"))
}
