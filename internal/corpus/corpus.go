// Package corpus finds the annotated documents of a corpus. A corpus is a
// directory tree of XML files or a tar bundle of them; single documents may
// be xz or gzip compressed.
package corpus

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/internal/archive"
	"github.com/FocuswithJustin/corpuspairs/internal/validation"
)

// Document is one annotated file of a corpus.
type Document struct {
	// Name is the file's base name without a compression suffix, e.g.
	// "S1_exercise2.xml".
	Name string
	// Path is the file path, or bundle!entry for bundled documents.
	Path string

	// bundled documents are read with the bundle
	data   []byte
	err    error
	loaded bool
}

// Read returns the document bytes, decompressing when needed.
func (d *Document) Read() ([]byte, error) {
	if d.loaded {
		return d.data, d.err
	}

	info, err := os.Stat(d.Path)
	if err != nil {
		return nil, cerrors.NewIO("stat", d.Path, err)
	}
	if err := validation.ValidateSize(d.Path, info.Size()); err != nil {
		return nil, cerrors.NewValidation("document", err.Error())
	}

	data, err := archive.ReadFile(d.Path)
	if err != nil {
		return nil, cerrors.NewIO("read", d.Path, err)
	}
	if err := checkType(d.Name, data); err != nil {
		return nil, err
	}
	return data, nil
}

// IsDocument reports whether name is an annotated document: *.xml, optionally
// compressed. Pretty-printed copies (*.xml.pretty) are not documents.
func IsDocument(name string) bool {
	return strings.HasSuffix(strings.ToLower(archive.TrimExt(name)), ".xml")
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == ".ipynb_checkpoints"
}

// Discover lists the documents under root. Hidden directories and
// .ipynb_checkpoints are skipped. Within every directory files are sorted by
// name and directories are visited in name order. maxFiles > 0 caps the
// number of documents returned.
//
// A root that does not exist returns an error wrapping cerrors.ErrNotFound.
func Discover(root string, maxFiles int) ([]Document, error) {
	if archive.IsBundle(root) {
		return discoverBundle(root, maxFiles)
	}

	if err := validation.ValidateDir(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cerrors.NewNotFound("corpus directory", root)
		}
		return nil, cerrors.NewValidation("corpus", err.Error())
	}

	var docs []Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsDocument(d.Name()) {
			return nil
		}
		docs = append(docs, Document{Name: archive.TrimExt(d.Name()), Path: path})
		if maxFiles > 0 && len(docs) >= maxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, cerrors.NewIO("walk", root, err)
	}
	return docs, nil
}

// discoverBundle reads the documents of a tar bundle into memory. Entries are
// ordered by path so the result matches an extracted copy of the bundle.
func discoverBundle(path string, maxFiles int) ([]Document, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cerrors.NewNotFound("corpus bundle", path)
		}
		return nil, cerrors.NewIO("stat", path, err)
	}

	entries, err := archive.ReadEntries(path, func(name string) bool {
		for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(name)), "/") {
			if part != "." && part != "" && skipDir(part) {
				return false
			}
		}
		return IsDocument(filepath.Base(name))
	})
	if err != nil {
		return nil, cerrors.NewIO("read bundle", path, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return lessPath(entries[i].Name, entries[j].Name)
	})
	if maxFiles > 0 && len(entries) > maxFiles {
		entries = entries[:maxFiles]
	}

	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		doc := Document{
			Name:   archive.TrimExt(filepath.Base(e.Name)),
			Path:   path + "!" + e.Name,
			data:   e.Data,
			loaded: true,
		}
		if err := validation.ValidateSize(e.Name, int64(len(e.Data))); err != nil {
			doc.data, doc.err = nil, cerrors.NewValidation("document", err.Error())
		} else if err := checkType(doc.Name, e.Data); err != nil {
			doc.data, doc.err = nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// lessPath orders slash separated paths the way WalkDir visits them: files
// and directories of one directory by name.
func lessPath(a, b string) bool {
	pa := strings.Split(filepath.ToSlash(a), "/")
	pb := strings.Split(filepath.ToSlash(b), "/")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return len(pa) < len(pb)
}

// checkType rejects binary content posing as XML.
func checkType(name string, data []byte) error {
	if _, err := validation.ValidateFileType(bytes.NewReader(data), name); err != nil {
		return &cerrors.ParseError{Format: "XML", Path: name, Message: "not an XML document", Err: err}
	}
	return nil
}
