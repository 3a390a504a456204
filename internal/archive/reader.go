// Package archive reads and writes compressed corpus files: single xz or
// gzip streams, and tar.xz / tar.gz bundles of documents.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

// Compression suffixes recognised by Open.
const (
	ExtXZ   = ".xz"
	ExtGzip = ".gz"
)

var bundleExts = []string{".tar.xz", ".tar.gz", ".tgz", ".tar"}

// IsBundle reports whether path names a tar bundle.
func IsBundle(path string) bool {
	for _, ext := range bundleExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// TrimExt removes a compression suffix from name.
func TrimExt(name string) string {
	for _, ext := range []string{ExtXZ, ExtGzip} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// decompress wraps r according to the compression suffix of name.
func decompress(name string, r io.Reader) (io.Reader, io.Closer, error) {
	switch {
	case strings.HasSuffix(name, ExtXZ):
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xzr, nil, nil
	case strings.HasSuffix(name, ExtGzip), strings.HasSuffix(name, ".tgz"):
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gzr, gzr, nil
	}
	return r, nil, nil
}

type fileReader struct {
	io.Reader
	file         *os.File
	decompressor io.Closer
}

func (r *fileReader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Open opens a single file for reading, decompressing .xz and .gz files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	r, closer, err := decompress(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileReader{Reader: r, file: f, decompressor: closer}, nil
}

// ReadFile reads a whole, possibly compressed, file.
func ReadFile(path string) ([]byte, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader opens a tar bundle. Plain .tar, .tar.xz, .tar.gz and .tgz are
// supported.
func NewReader(path string) (*Reader, error) {
	if !IsBundle(path) {
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	r, closer, err := decompress(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{
		Reader:       tar.NewReader(r),
		file:         f,
		decompressor: closer,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Visitor is a callback function for iterating archive entries.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// IterateBundle opens a bundle and iterates through its entries.
func IterateBundle(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// Entry is one regular file read from a bundle.
type Entry struct {
	Name string
	Data []byte
}

// ReadEntries returns the regular files of a bundle whose names satisfy
// keep, in archive order. Entries that are compressed themselves are
// decompressed.
func ReadEntries(path string, keep func(name string) bool) ([]Entry, error) {
	var entries []Entry
	err := IterateBundle(path, func(header *tar.Header, content io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg || !keep(header.Name) {
			return false, nil
		}
		r, closer, err := decompress(header.Name, content)
		if err != nil {
			return true, fmt.Errorf("%s: %w", header.Name, err)
		}
		data, err := io.ReadAll(r)
		if closer != nil {
			closer.Close()
		}
		if err != nil {
			return true, fmt.Errorf("read %s: %w", header.Name, err)
		}
		entries = append(entries, Entry{Name: header.Name, Data: data})
		return false, nil
	})
	return entries, err
}
