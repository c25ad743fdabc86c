// Package corpus reads and writes collections of collected functions as
// JSON Lines, optionally compressed.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression is chosen from the file extension.
type Compression int

const (
	CompressNone Compression = iota
	CompressGzip
	CompressZstd
)

// CompressionFor returns the compression implied by path's extension.
func CompressionFor(path string) Compression {
	switch filepath.Ext(path) {
	case ".gz":
		return CompressGzip
	case ".zst", ".zstd":
		return CompressZstd
	}
	return CompressNone
}

// Open opens a corpus file for reading, decompressing as needed.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open: %w", err)
	}
	switch CompressionFor(path) {
	case CompressGzip:
		zr, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("corpus: gzip %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case CompressZstd:
		zr, err := zstd.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("corpus: zstd %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), f}}, nil
	}
	return f, nil
}

type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (r *stackedReader) Close() error {
	var err error
	for _, c := range r.closers {
		if cerr := c.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}
	return err
}

// create opens path for writing, compressing as its extension asks.
// Closing the result flushes and closes every layer, innermost last.
func create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: create: %w", err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	sw := &stackedWriter{f: f, bw: bw}
	switch CompressionFor(path) {
	case CompressGzip:
		sw.zw = gzip.NewWriter(bw)
	case CompressZstd:
		zw, err := zstd.NewWriter(bw)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("corpus: zstd %s: %w", path, err)
		}
		sw.zw = zw
	}
	return sw, nil
}

type stackedWriter struct {
	f  *os.File
	bw *bufio.Writer
	zw io.WriteCloser
}

func (w *stackedWriter) Write(p []byte) (int, error) {
	if w.zw != nil {
		return w.zw.Write(p)
	}
	return w.bw.Write(p)
}

func (w *stackedWriter) Close() error {
	var err error
	if w.zw != nil {
		if cerr := w.zw.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}
	if ferr := w.bw.Flush(); ferr != nil {
		err = multierror.Append(err, ferr)
	}
	if cerr := w.f.Close(); cerr != nil {
		err = multierror.Append(err, cerr)
	}
	return err
}
