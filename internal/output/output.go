// Package output writes extracted sentence pairs: one CSV for all corpora,
// a vertical .norm file per corpus and a SQLite database.
package output

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/FocuswithJustin/corpuspairs/core/cas"
	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/pairs"
	"github.com/FocuswithJustin/corpuspairs/internal/config"
)

// File names inside the output directory.
const (
	CSVName    = "all_corpora.csv"
	NormSuffix = "_full.norm"
	DBName     = "pairs.db"
)

// Document is one processed document and its pairs. Pairs are numbered from
// 1 in order.
type Document struct {
	Corpus      string
	LangProf    string
	XMLFile     string
	Path        string
	FileID      int
	Fingerprint cas.Fingerprint
	Pairs       []pairs.SentencePair
}

// Sink receives a run corpus by corpus. Documents arrive in file id order.
type Sink interface {
	BeginCorpus(ctx context.Context, name, langProf string) error
	WriteDocument(ctx context.Context, doc *Document) error
	EndCorpus(ctx context.Context) error
	// Close finishes the output; it is safe to call after an error.
	Close(ctx context.Context) error
}

// Options configures Open.
type Options struct {
	Dir      string
	Formats  []string
	Compress bool
	// RunID and Segmenter are recorded in the database.
	RunID     string
	Segmenter string
}

// Set fans a run out to every selected format.
type Set struct {
	sinks []Sink
}

// Open creates the sinks for opts.Formats in opts.Dir.
func Open(ctx context.Context, opts Options) (*Set, error) {
	s := &Set{}
	for _, format := range opts.Formats {
		var (
			sink Sink
			err  error
		)
		switch format {
		case config.FormatCSV:
			sink, err = newCSVSink(filepath.Join(opts.Dir, CSVName), opts.Compress)
		case config.FormatNorm:
			sink = &normSink{dir: opts.Dir, compress: opts.Compress}
		case config.FormatSQLite:
			sink, err = newSQLiteSink(ctx, filepath.Join(opts.Dir, DBName), opts.RunID, opts.Segmenter)
		default:
			err = cerrors.NewUnsupported("output format", format)
		}
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.sinks = append(s.sinks, sink)
	}
	return s, nil
}

// Add attaches another sink, such as a statistics collector.
func (s *Set) Add(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// BeginCorpus implements Sink.
func (s *Set) BeginCorpus(ctx context.Context, name, langProf string) error {
	for _, sink := range s.sinks {
		if err := sink.BeginCorpus(ctx, name, langProf); err != nil {
			return err
		}
	}
	return nil
}

// WriteDocument implements Sink.
func (s *Set) WriteDocument(ctx context.Context, doc *Document) error {
	for _, sink := range s.sinks {
		if err := sink.WriteDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// EndCorpus implements Sink.
func (s *Set) EndCorpus(ctx context.Context) error {
	for _, sink := range s.sinks {
		if err := sink.EndCorpus(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (s *Set) Close(ctx context.Context) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// corrected renders a flag the way the CSV has always spelled it.
func corrected(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
