package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressedSuffix marks files that are read and written brotli-compressed.
const CompressedSuffix = ".br"

// IsCompressed reports whether path names a brotli-compressed dataset.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// Open opens a dataset for reading, decompressing it when the name ends in
// CompressedSuffix.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	if !IsCompressed(path) {
		return f, nil
	}
	return &readCloser{Reader: brotli.NewReader(f), closers: []io.Closer{f}}, nil
}

// Create creates or truncates a dataset for writing, compressing it when the
// name ends in CompressedSuffix.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	if !IsCompressed(path) {
		return f, nil
	}
	bw := brotli.NewWriterLevel(f, brotli.DefaultCompression)
	return &writeCloser{Writer: bw, closers: []io.Closer{bw, f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error { return closeAll(r.closers) }

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (w *writeCloser) Close() error { return closeAll(w.closers) }

// closeAll closes in order so that compressors flush before their file closes.
func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
