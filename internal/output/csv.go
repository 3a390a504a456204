package output

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/internal/archive"
	"github.com/FocuswithJustin/corpuspairs/internal/logging"
)

// Header is the column order of the pairs CSV.
var Header = []string{"corpus", "lang_prof", "xml_file", "file_id", "sent_num", "src", "tgt", "corrected"}

// Row is one line of the pairs CSV.
type Row struct {
	Corpus    string
	LangProf  string
	XMLFile   string
	FileID    int
	SentNum   int
	Src       string
	Tgt       string
	Corrected bool
}

// Rows flattens doc into CSV rows.
func (doc *Document) Rows() []Row {
	rows := make([]Row, len(doc.Pairs))
	for i, p := range doc.Pairs {
		rows[i] = Row{
			Corpus:    doc.Corpus,
			LangProf:  doc.LangProf,
			XMLFile:   doc.XMLFile,
			FileID:    doc.FileID,
			SentNum:   i + 1,
			Src:       p.Src,
			Tgt:       p.Tgt,
			Corrected: p.HasCorrection,
		}
	}
	return rows
}

func (r Row) record() []string {
	return []string{
		r.Corpus,
		r.LangProf,
		r.XMLFile,
		strconv.Itoa(r.FileID),
		strconv.Itoa(r.SentNum),
		r.Src,
		r.Tgt,
		corrected(r.Corrected),
	}
}

type csvSink struct {
	out  *archive.Writer
	w    *csv.Writer
	rows int
}

func newCSVSink(path string, compress bool) (*csvSink, error) {
	out, err := archive.Create(path, compress)
	if err != nil {
		return nil, cerrors.NewIO("create", path, err)
	}
	w := csv.NewWriter(out)
	if err := w.Write(Header); err != nil {
		out.Close()
		return nil, cerrors.NewIO("write", out.Path, err)
	}
	return &csvSink{out: out, w: w}, nil
}

func (s *csvSink) BeginCorpus(context.Context, string, string) error { return nil }

func (s *csvSink) WriteDocument(_ context.Context, doc *Document) error {
	for _, row := range doc.Rows() {
		if err := s.w.Write(row.record()); err != nil {
			return cerrors.NewIO("write", s.out.Path, err)
		}
		s.rows++
	}
	return nil
}

func (s *csvSink) EndCorpus(context.Context) error { return nil }

func (s *csvSink) Close(ctx context.Context) error {
	if s.out == nil {
		return nil
	}
	s.w.Flush()
	err := s.w.Error()
	if cerr := s.out.Close(); err == nil {
		err = cerr
	}
	path := s.out.Path
	s.out = nil
	if err != nil {
		return cerrors.NewIO("close", path, err)
	}
	logging.Output(ctx, "csv", path, s.rows)
	return nil
}

// ReadCSV reads a pairs CSV written by a previous run. The file may be xz or
// gzip compressed. Columns are located by name, so extra columns are fine.
func ReadCSV(path string) ([]Row, error) {
	f, err := archive.Open(path)
	if err != nil {
		return nil, cerrors.NewIO("open", path, err)
	}
	defer f.Close()
	return readRows(f, path)
}

func readRows(r io.Reader, path string) ([]Row, error) {
	cr := csv.NewReader(r)
	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, &cerrors.ParseError{Format: "CSV", Path: path, Message: "header", Err: err}
	}

	col := make(map[string]int, len(head))
	for i, name := range head {
		col[name] = i
	}
	for _, name := range Header {
		if _, ok := col[name]; !ok {
			return nil, cerrors.NewParse("CSV", path, "missing column "+name)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, &cerrors.ParseError{Format: "CSV", Path: path, Message: "row", Err: err}
		}

		row := Row{
			Corpus:    rec[col["corpus"]],
			LangProf:  rec[col["lang_prof"]],
			XMLFile:   rec[col["xml_file"]],
			Src:       rec[col["src"]],
			Tgt:       rec[col["tgt"]],
			Corrected: parseBool(rec[col["corrected"]]),
		}
		if row.FileID, err = strconv.Atoi(rec[col["file_id"]]); err != nil {
			return nil, &cerrors.ParseError{Format: "CSV", Path: path, Message: "file_id", Err: err}
		}
		if row.SentNum, err = strconv.Atoi(rec[col["sent_num"]]); err != nil {
			return nil, &cerrors.ParseError{Format: "CSV", Path: path, Message: "sent_num", Err: err}
		}
		rows = append(rows, row)
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
