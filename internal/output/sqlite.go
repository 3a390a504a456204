package output

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/sqlite"
	"github.com/FocuswithJustin/corpuspairs/internal/logging"
)

// schema of pairs.db. Runs accumulate; each run gets its own documents.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		segmenter  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id    TEXT NOT NULL REFERENCES runs(id),
		corpus    TEXT NOT NULL,
		lang_prof TEXT NOT NULL,
		xml_file  TEXT NOT NULL,
		file_id   INTEGER NOT NULL,
		path      TEXT NOT NULL,
		sha256    TEXT NOT NULL,
		blake3    TEXT NOT NULL,
		UNIQUE (run_id, file_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pairs (
		document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		sent_num    INTEGER NOT NULL,
		src         TEXT NOT NULL,
		tgt         TEXT NOT NULL,
		corrected   INTEGER NOT NULL,
		PRIMARY KEY (document_id, sent_num)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_corpus ON documents (run_id, corpus)`,
}

type sqliteSink struct {
	db    *sql.DB
	path  string
	runID string
	rows  int
}

func newSQLiteSink(ctx context.Context, path, runID, segmenter string) (*sqliteSink, error) {
	if runID == "" {
		return nil, cerrors.NewValidation("run_id", "required for the sqlite output")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, cerrors.NewIO("mkdir", filepath.Dir(path), err)
	}

	db, err := sqlite.OpenWriter(ctx, path)
	if err != nil {
		return nil, cerrors.NewIO("open", path, err)
	}
	if err := sqlite.Migrate(ctx, db, schema...); err != nil {
		db.Close()
		return nil, cerrors.NewIO("migrate", path, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, segmenter) VALUES (?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), segmenter)
	if err != nil {
		db.Close()
		return nil, cerrors.NewIO("insert run", path, err)
	}
	return &sqliteSink{db: db, path: path, runID: runID}, nil
}

func (s *sqliteSink) BeginCorpus(context.Context, string, string) error { return nil }

// WriteDocument stores the document and its pairs in one transaction.
func (s *sqliteSink) WriteDocument(ctx context.Context, doc *Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.NewIO("begin", s.path, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (run_id, corpus, lang_prof, xml_file, file_id, path, sha256, blake3)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, doc.Corpus, doc.LangProf, doc.XMLFile, doc.FileID, doc.Path,
		doc.Fingerprint.SHA256, doc.Fingerprint.BLAKE3)
	if err != nil {
		return cerrors.NewIO("insert document", s.path, err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return cerrors.NewIO("insert document", s.path, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pairs (document_id, sent_num, src, tgt, corrected) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return cerrors.NewIO("prepare", s.path, err)
	}
	defer stmt.Close()

	for i, p := range doc.Pairs {
		if _, err := stmt.ExecContext(ctx, docID, i+1, p.Src, p.Tgt, p.HasCorrection); err != nil {
			return cerrors.NewIO("insert pair", s.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return cerrors.NewIO("commit", s.path, err)
	}
	s.rows += len(doc.Pairs)
	return nil
}

func (s *sqliteSink) EndCorpus(context.Context) error { return nil }

func (s *sqliteSink) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return cerrors.NewIO("close", s.path, err)
	}
	logging.Output(ctx, "sqlite", s.path, s.rows)
	return nil
}
