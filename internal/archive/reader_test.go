package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ulikunitz/xz"
)

type tarFile struct {
	name string
	body []byte
	dir  bool
}

// createTestBundle writes files into a tar bundle compressed according to
// the suffix of name.
func createTestBundle(t *testing.T, dir, name string, files []tarFile) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	var w io.WriteCloser
	switch filepath.Ext(name) {
	case ".xz":
		w, err = xz.NewWriter(f)
		if err != nil {
			t.Fatalf("xz writer: %v", err)
		}
	case ".gz":
		w = gzip.NewWriter(f)
	default:
		w = nopCloser{f}
	}

	tw := tar.NewWriter(w)
	for _, tf := range files {
		h := &tar.Header{Name: tf.name, Mode: 0644, Size: int64(len(tf.body)), Typeflag: tar.TypeReg}
		if tf.dir {
			h = &tar.Header{Name: tf.name, Mode: 0755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(h); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write(tf.body); err != nil {
			t.Fatalf("write content: %v", err)
		}
	}
	tw.Close()
	w.Close()
	return path
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

var corpusFiles = []tarFile{
	{name: "DE/", dir: true},
	{name: "DE/a.xml", body: []byte("<text/>")},
	{name: "DE/a.xml.pretty", body: []byte("<text />")},
	{name: "DE/b.xml", body: []byte("<body/>")},
}

func TestNewReader(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name:  "tar.gz archive",
			setup: func(t *testing.T) string { return createTestBundle(t, dir, "c.tar.gz", corpusFiles) },
		},
		{
			name:  "tar.xz archive",
			setup: func(t *testing.T) string { return createTestBundle(t, dir, "c.tar.xz", corpusFiles) },
		},
		{
			name:  "plain tar",
			setup: func(t *testing.T) string { return createTestBundle(t, dir, "c.tar", corpusFiles) },
		},
		{
			name: "unsupported format",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "test.zip")
				os.WriteFile(path, []byte("not a tar"), 0644)
				return path
			},
			wantErr: true,
		},
		{
			name:    "nonexistent file",
			setup:   func(t *testing.T) string { return filepath.Join(dir, "nonexistent.tar.gz") },
			wantErr: true,
		},
		{
			name: "corrupted gzip",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "bad.tar.gz")
				os.WriteFile(path, []byte("not gzip"), 0644)
				return path
			},
			wantErr: true,
		},
		{
			name: "corrupted xz",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "bad.tar.xz")
				os.WriteFile(path, []byte("not xz"), 0644)
				return path
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(tt.setup(t))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewReader() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if r != nil {
				r.Close()
			}
		})
	}
}

func TestReaderIterate(t *testing.T) {
	path := createTestBundle(t, t.TempDir(), "c.tar.xz", corpusFiles)

	var names []string
	err := IterateBundle(path, func(header *tar.Header, _ io.Reader) (bool, error) {
		names = append(names, header.Name)
		return false, nil
	})
	if err != nil {
		t.Fatalf("IterateBundle: %v", err)
	}
	if len(names) != 4 {
		t.Errorf("expected 4 entries, got %v", names)
	}
}

func TestReaderIterate_StopAndError(t *testing.T) {
	path := createTestBundle(t, t.TempDir(), "c.tar.gz", corpusFiles)

	count := 0
	err := IterateBundle(path, func(*tar.Header, io.Reader) (bool, error) {
		count++
		return true, nil
	})
	if err != nil || count != 1 {
		t.Errorf("stop early: count=%d err=%v", count, err)
	}

	boom := errors.New("visitor failed")
	err = IterateBundle(path, func(*tar.Header, io.Reader) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("visitor error = %v", err)
	}
}

func TestReadEntries(t *testing.T) {
	files := append([]tarFile{}, corpusFiles...)
	files = append(files, tarFile{name: "DE/c.xml.xz", body: xzBytes(t, []byte("<c/>"))})
	path := createTestBundle(t, t.TempDir(), "c.tar.xz", files)

	entries, err := ReadEntries(path, func(name string) bool {
		return filepath.Ext(TrimExt(name)) == ".xml"
	})
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}

	want := []Entry{
		{Name: "DE/a.xml", Data: []byte("<text/>")},
		{Name: "DE/b.xml", Data: []byte("<body/>")},
		{Name: "DE/c.xml.xz", Data: []byte("<c/>")},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("ReadEntries() = %q, want %q", entries, want)
	}
}

func TestOpenAndReadFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("<text>Grüße</text>")

	plain := filepath.Join(dir, "a.xml")
	os.WriteFile(plain, content, 0644)

	compressed := filepath.Join(dir, "b.xml.xz")
	os.WriteFile(compressed, xzBytes(t, content), 0644)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write(content)
	gw.Close()
	gzipped := filepath.Join(dir, "c.xml.gz")
	os.WriteFile(gzipped, gz.Bytes(), 0644)

	for _, path := range []string{plain, compressed, gzipped} {
		got, err := ReadFile(path)
		if err != nil {
			t.Errorf("ReadFile(%s): %v", filepath.Base(path), err)
			continue
		}
		if !bytes.Equal(got, content) {
			t.Errorf("ReadFile(%s) = %q", filepath.Base(path), got)
		}
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.xml")); err == nil {
		t.Error("ReadFile(missing) should fail")
	}

	bad := filepath.Join(dir, "bad.xml.xz")
	os.WriteFile(bad, []byte("plain"), 0644)
	if _, err := Open(bad); err == nil {
		t.Error("Open(bad xz) should fail")
	}
}

func TestTrimExtAndIsBundle(t *testing.T) {
	trims := map[string]string{
		"a.xml.xz": "a.xml",
		"a.xml.gz": "a.xml",
		"a.xml":    "a.xml",
		"xz":       "xz",
	}
	for in, want := range trims {
		if got := TrimExt(in); got != want {
			t.Errorf("TrimExt(%q) = %q, want %q", in, got, want)
		}
	}

	for path, want := range map[string]bool{
		"corpus.tar.xz": true,
		"corpus.tgz":    true,
		"corpus.tar":    true,
		"corpus.xml.xz": false,
		"corpus":        false,
	} {
		if got := IsBundle(path); got != want {
			t.Errorf("IsBundle(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestReaderClose_MultipleTimes(t *testing.T) {
	path := createTestBundle(t, t.TempDir(), "c.tar.gz", corpusFiles)
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	// The file is already closed the second time.
	if err := r.Close(); err == nil {
		t.Error("second Close should report the closed file")
	}
}
