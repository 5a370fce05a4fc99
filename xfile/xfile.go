// Copyright (C) 2024 comma authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package xfile is the ambient I/O helper that opens a Stream's
// source or target uniformly, whether it is standard input/output, a
// plain file, or a zstd-compressed file (named by a ".zst" suffix,
// transparently wrapped). This keeps the stream/schema/ctype layers
// free of any notion of compression or file naming, the same
// separation sneller's compr package draws between its compression
// codecs and the ion readers/writers that use them.
package xfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Source opens name for reading. "-" (or the empty string) means
// standard input; a ".zst" suffix wraps the file in a streaming zstd
// decompressor. The returned closer must be closed by the caller to
// release the underlying file (and, for a compressed source, the
// decompressor).
func Source(name string) (io.Reader, io.Closer, error) {
	if name == "" || name == "-" {
		return os.Stdin, nopCloser{}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(name, ".zst") {
		return f, f, nil
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("xfile: opening %s: %w", name, err)
	}
	return zr.IOReadCloser(), multiCloser{zr: zr, f: f}, nil
}

// Target opens name for writing, truncating it. "-" (or the empty
// string) means standard output; a ".zst" suffix wraps the file in a
// streaming zstd compressor. The returned closer must be closed by
// the caller to flush and release the underlying file.
func Target(name string) (io.Writer, io.Closer, error) {
	if name == "" || name == "-" {
		return os.Stdout, nopCloser{}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(name, ".zst") {
		return f, f, nil
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("xfile: creating %s: %w", name, err)
	}
	return zw, writeCloser{zw: zw, f: f}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type multiCloser struct {
	zr *zstd.Decoder
	f  *os.File
}

func (c multiCloser) Close() error {
	c.zr.Close()
	return c.f.Close()
}

type writeCloser struct {
	zw *zstd.Encoder
	f  *os.File
}

func (c writeCloser) Close() error {
	if err := c.zw.Close(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
