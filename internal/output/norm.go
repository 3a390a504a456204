package output

import (
	"bufio"
	"context"
	"path/filepath"
	"strings"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/internal/archive"
	"github.com/FocuswithJustin/corpuspairs/internal/logging"
	"github.com/FocuswithJustin/corpuspairs/internal/validation"
)

// normSink writes one vertical file per corpus: every sentence pair becomes
// lines of "src-word<TAB>tgt-word", zipped by position, followed by a blank
// line. The file is created even when the corpus yields no pairs.
type normSink struct {
	dir      string
	compress bool

	out   *archive.Writer
	w     *bufio.Writer
	pairs int
}

// NormPath returns the .norm file of corpus name in dir.
func NormPath(dir, name string) (string, error) {
	safe, err := validation.SanitizeFilename(name)
	if err != nil {
		return "", cerrors.NewValidation("corpus", err.Error())
	}
	return filepath.Join(dir, safe+NormSuffix), nil
}

func (s *normSink) BeginCorpus(ctx context.Context, name, _ string) error {
	if err := s.EndCorpus(ctx); err != nil {
		return err
	}
	path, err := NormPath(s.dir, name)
	if err != nil {
		return err
	}
	out, err := archive.Create(path, s.compress)
	if err != nil {
		return cerrors.NewIO("create", path, err)
	}
	s.out, s.w, s.pairs = out, bufio.NewWriter(out), 0
	return nil
}

func (s *normSink) WriteDocument(_ context.Context, doc *Document) error {
	if s.w == nil {
		return cerrors.NewValidation("norm", "document written outside a corpus")
	}
	for _, p := range doc.Pairs {
		WriteVertical(s.w, p.Src, p.Tgt)
		s.pairs++
	}
	return nil
}

func (s *normSink) EndCorpus(ctx context.Context) error {
	if s.out == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.out.Close(); err == nil {
		err = cerr
	}
	path := s.out.Path
	s.out, s.w = nil, nil
	if err != nil {
		return cerrors.NewIO("close", path, err)
	}
	logging.Output(ctx, "norm", path, s.pairs)
	return nil
}

func (s *normSink) Close(ctx context.Context) error {
	return s.EndCorpus(ctx)
}

// WriteVertical writes one sentence pair in vertical form. Words are split
// on whitespace; the shorter side is padded with empty cells.
func WriteVertical(w *bufio.Writer, src, tgt string) {
	sw, tw := strings.Fields(src), strings.Fields(tgt)
	for i := 0; i < max(len(sw), len(tw)); i++ {
		if i < len(sw) {
			w.WriteString(sw[i])
		}
		w.WriteByte('\t')
		if i < len(tw) {
			w.WriteString(tw[i])
		}
		w.WriteByte('\n')
	}
	w.WriteByte('\n')
}
