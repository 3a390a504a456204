package corpus

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ulikunitz/xz"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
)

const doc = `<?xml version="1.0" encoding="UTF-8"?><text><body/></text>`

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func xzString(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(s))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func names(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

func TestIsDocument(t *testing.T) {
	tests := map[string]bool{
		"a.xml":        true,
		"a.xml.xz":     true,
		"a.xml.gz":     true,
		"a.xml.pretty": false,
		"a.txt":        false,
		"xml":          false,
		"a.xml.bak":    false,
		"A.XML":        true,
	}
	for name, want := range tests {
		if got := IsDocument(name); got != want {
			t.Errorf("IsDocument(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"b.xml":                        doc,
		"a.xml":                        doc,
		"a.xml.pretty":                 doc,
		"notes.txt":                    "x",
		"sub/c.xml.xz":                 xzString(t, doc),
		".hidden/d.xml":                doc,
		".ipynb_checkpoints/e.xml":     doc,
		"sub/.ipynb_checkpoints/f.xml": doc,
	})

	docs, err := Discover(root, 0)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{"a.xml", "b.xml", "c.xml"}
	if got := names(docs); !reflect.DeepEqual(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}

	data, err := docs[2].Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != doc {
		t.Errorf("Read() = %q", data)
	}

	limited, err := Discover(root, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(limited); !reflect.DeepEqual(got, want[:2]) {
		t.Errorf("Discover(max 2) = %v", got)
	}
}

func TestDiscoverMissing(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), 0)
	if !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("Discover(missing) error = %v, want ErrNotFound", err)
	}

	_, err = Discover(filepath.Join(t.TempDir(), "nope.tar.xz"), 0)
	if !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("Discover(missing bundle) error = %v, want ErrNotFound", err)
	}

	file := filepath.Join(t.TempDir(), "file.xml")
	os.WriteFile(file, []byte(doc), 0644)
	if _, err := Discover(file, 0); !errors.Is(err, cerrors.ErrInvalidInput) {
		t.Errorf("Discover(file) error = %v, want ErrInvalidInput", err)
	}
}

func TestReadRejectsBinary(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"bin.xml": "\x00\x01\x02\x03binary"})

	docs, err := Discover(root, 0)
	if err != nil || len(docs) != 1 {
		t.Fatalf("Discover() = %v, %v", docs, err)
	}
	var perr *cerrors.ParseError
	if _, err := docs[0].Read(); !errors.As(err, &perr) {
		t.Errorf("Read() error = %v, want ParseError", err)
	}
}

func TestDiscoverBundle(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	entries := []struct{ name, body string }{
		{"corpus/z.xml", doc},
		{"corpus/sub/y.xml", doc},
		{"corpus/a.xml.xz", xzString(t, doc)},
		{"corpus/.ipynb_checkpoints/x.xml", doc},
		{"corpus/a.xml.pretty", doc},
		{"corpus/bad.xml", "\x00\x00\x00\x00"},
	}
	for _, e := range entries {
		tw.WriteHeader(&tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: tar.TypeReg})
		tw.Write([]byte(e.body))
	}
	tw.Close()

	path := filepath.Join(t.TempDir(), "corpus.tar")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	docs, err := Discover(path, 0)
	if err != nil {
		t.Fatalf("Discover(bundle) error = %v", err)
	}
	want := []string{"a.xml", "bad.xml", "y.xml", "z.xml"}
	if got := names(docs); !reflect.DeepEqual(got, want) {
		t.Errorf("Discover(bundle) = %v, want %v", got, want)
	}
	if docs[0].Path != path+"!corpus/a.xml.xz" {
		t.Errorf("Path = %s", docs[0].Path)
	}

	data, err := docs[0].Read()
	if err != nil || string(data) != doc {
		t.Errorf("Read() = %q, %v", data, err)
	}
	var perr *cerrors.ParseError
	if _, err := docs[1].Read(); !errors.As(err, &perr) {
		t.Errorf("Read(bad.xml) error = %v, want ParseError", err)
	}

	limited, err := Discover(path, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Discover(bundle, 1) = %v, %v", names(limited), err)
	}
}
