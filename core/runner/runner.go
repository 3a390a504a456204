// Package runner executes a batch run: every active corpus is discovered,
// its documents are extracted (in parallel when asked) and the pairs are
// handed to the output sinks in file order.
package runner

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/corpuspairs/core/cache"
	"github.com/FocuswithJustin/corpuspairs/core/cas"
	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/extract"
	"github.com/FocuswithJustin/corpuspairs/core/pairs"
	"github.com/FocuswithJustin/corpuspairs/core/schema"
	"github.com/FocuswithJustin/corpuspairs/internal/config"
	"github.com/FocuswithJustin/corpuspairs/internal/corpus"
	"github.com/FocuswithJustin/corpuspairs/internal/logging"
	"github.com/FocuswithJustin/corpuspairs/internal/output"
)

// Options configures a run.
type Options struct {
	Config *config.Config
	// Extractor defaults to extract.Default.
	Extractor *extract.Extractor
	// Sink receives the documents; nil discards them.
	Sink output.Sink
	// Cache, when set, reuses pairs of documents seen before. Pipeline names
	// the segmenter so results of different backends do not mix.
	Cache    *cache.Pairs
	Pipeline string
	// RunID defaults to a new UUID.
	RunID string
}

// Summary counts the outcome of one (corpus, lang_prof) group.
type Summary struct {
	Corpus    string
	LangProf  string
	Skipped   bool
	Documents int
	Failed    int
	Pairs     int
	Corrected int
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Summaries []Summary
	Documents int
	Failed    int
	Pairs     int
	// Failures lists the documents that were skipped, in processing order.
	Failures []*cerrors.DocumentError
	Duration time.Duration
}

// outcome is the extraction result of one document.
type outcome struct {
	pairs       []pairs.SentencePair
	fingerprint cas.Fingerprint
	elapsed     time.Duration
	cached      bool
	err         error
}

type runner struct {
	opts     Options
	fileID   int
	failures []*cerrors.DocumentError
}

// Run processes the selected corpora of opts.Config. File ids start at 1 and
// increase across corpora, counting only documents that were extracted.
// Failing documents and missing corpora are logged and skipped; only a
// cancelled context or a failing sink stops the run.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, cerrors.NewValidation("config", "required")
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.Default
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, opts.RunID)

	corpora, err := opts.Config.Selected()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r := &runner{opts: opts, fileID: 1}
	res := &Result{RunID: opts.RunID}
	for _, c := range corpora {
		sum, err := r.corpus(ctx, c)
		if err != nil {
			return nil, err
		}
		res.Summaries = append(res.Summaries, sum)
		res.Documents += sum.Documents
		res.Failed += sum.Failed
		res.Pairs += sum.Pairs
	}
	res.Summaries = merge(res.Summaries)
	res.Failures = r.failures
	res.Duration = time.Since(start)

	logging.InfoContext(ctx, "run_complete",
		"documents", res.Documents,
		"failed", res.Failed,
		"pairs", res.Pairs,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (r *runner) corpus(ctx context.Context, c config.Corpus) (Summary, error) {
	sum := Summary{Corpus: c.Name, LangProf: c.LangProf}
	root := r.opts.Config.Resolve(c)

	family, err := c.Family()
	if err != nil {
		logging.CorpusSkipped(ctx, c.Name, root, err)
		sum.Skipped = true
		return sum, nil
	}
	docs, err := corpus.Discover(root, r.opts.Config.MaxFiles)
	if err != nil {
		logging.CorpusSkipped(ctx, c.Name, root, err)
		sum.Skipped = true
		return sum, nil
	}
	logging.Corpus(ctx, c.Name, family.String(), c.LangProf, len(docs), "path", root)

	if r.opts.Sink != nil {
		if err := r.opts.Sink.BeginCorpus(ctx, c.Name, c.LangProf); err != nil {
			return sum, err
		}
	}

	outcomes, err := r.extractAll(ctx, c, family, docs)
	if err != nil {
		return sum, err
	}

	for i, o := range outcomes {
		if o.err != nil {
			logging.DocumentError(ctx, c.Name, docs[i].Path, o.err)
			r.failures = append(r.failures, &cerrors.DocumentError{Corpus: c.Name, File: docs[i].Path, Err: o.err})
			sum.Failed++
			continue
		}

		doc := &output.Document{
			Corpus:      c.Name,
			LangProf:    c.LangProf,
			XMLFile:     docs[i].Name,
			Path:        docs[i].Path,
			FileID:      r.fileID,
			Fingerprint: o.fingerprint,
			Pairs:       o.pairs,
		}
		if r.opts.Sink != nil {
			if err := r.opts.Sink.WriteDocument(ctx, doc); err != nil {
				return sum, err
			}
		}
		logging.Document(ctx, c.Name, docs[i].Name, r.fileID, len(o.pairs), o.elapsed, "cached", o.cached)

		r.fileID++
		sum.Documents++
		sum.Pairs += len(o.pairs)
		for _, p := range o.pairs {
			if p.HasCorrection {
				sum.Corrected++
			}
		}
	}

	if r.opts.Sink != nil {
		if err := r.opts.Sink.EndCorpus(ctx); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// extractAll extracts docs with up to Config.Workers goroutines. Outcomes
// are indexed like docs.
func (r *runner) extractAll(ctx context.Context, c config.Corpus, family schema.Family, docs []corpus.Document) ([]outcome, error) {
	outcomes := make([]outcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.opts.Config.Workers, 1))
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.extract(gctx, family, &docs[i])
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// a cancelled parent with nothing left to run still stops the batch
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *runner) extract(ctx context.Context, family schema.Family, doc *corpus.Document) outcome {
	start := time.Now()
	data, err := doc.Read()
	if err != nil {
		return outcome{err: err}
	}
	o := outcome{fingerprint: cas.Sum(data)}

	var key string
	if r.opts.Cache != nil {
		key = cache.Key(data, family.String()+"/"+r.opts.Pipeline)
		if ps, ok := r.opts.Cache.Get(key); ok {
			o.pairs, o.cached, o.elapsed = ps, true, time.Since(start)
			return o
		}
	}

	ps, err := r.opts.Extractor.Document(ctx, data, family)
	if err != nil {
		o.err = err
		return o
	}
	if r.opts.Cache != nil {
		if err := r.opts.Cache.Put(key, ps); err != nil {
			logging.WarnContext(ctx, "cache_write_failed", "file", doc.Path, "error", err.Error())
		}
	}
	o.pairs, o.elapsed = ps, time.Since(start)
	return o
}

// merge folds summaries of the same (corpus, lang_prof) and sorts them.
func merge(in []Summary) []Summary {
	type key struct{ corpus, langProf string }
	index := make(map[key]int)
	var out []Summary
	for _, s := range in {
		k := key{s.Corpus, s.LangProf}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, s)
			continue
		}
		out[i].Skipped = out[i].Skipped && s.Skipped
		out[i].Documents += s.Documents
		out[i].Failed += s.Failed
		out[i].Pairs += s.Pairs
		out[i].Corrected += s.Corrected
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Corpus != out[j].Corpus {
			return out[i].Corpus < out[j].Corpus
		}
		return out[i].LangProf < out[j].LangProf
	})
	return out
}

// IsCancelled reports whether err ended a run because its context was
// cancelled or timed out.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
