package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Writer is an output file, optionally xz-compressed.
type Writer struct {
	io.Writer
	// Path is the file actually written, including any added suffix.
	Path string

	file *os.File
	xz   *xz.Writer
}

// Create creates path and its parent directories. With compress set, ".xz"
// is appended to path and everything written is xz-compressed.
func Create(path string, compress bool) (*Writer, error) {
	if compress && !strings.HasSuffix(path, ExtXZ) {
		path += ExtXZ
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w := &Writer{Writer: f, Path: path, file: f}
	if compress {
		xw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		w.Writer, w.xz = xw, xw
	}
	return w, nil
}

// Close flushes the compressor and closes the file.
func (w *Writer) Close() error {
	var first error
	if w.xz != nil {
		first = w.xz.Close()
	}
	if err := w.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// CreateBundle packs the regular files of srcDir into a tar.xz or tar.gz
// bundle, chosen by the suffix of dstPath. Entries are stored under
// baseDir. Parent directories of dstPath are created.
func CreateBundle(srcDir, dstPath, baseDir string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	var compressor io.WriteCloser
	switch {
	case strings.HasSuffix(dstPath, ".tar.xz"):
		compressor, err = xz.NewWriter(outFile)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
	case strings.HasSuffix(dstPath, ".tar.gz"), strings.HasSuffix(dstPath, ".tgz"):
		compressor = gzip.NewWriter(outFile)
	default:
		return fmt.Errorf("unsupported archive format: %s", dstPath)
	}

	tw := tar.NewWriter(compressor)
	now := time.Now()

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		// Never pack the bundle into itself.
		if abs, _ := filepath.Abs(path); abs == absOrEmpty(dstPath) {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = baseDir + "/" + filepath.ToSlash(relPath)
		header.ModTime = now

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func absOrEmpty(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	return abs
}
