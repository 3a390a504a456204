// Package extract turns one annotated learner document into cleaned
// original/corrected sentence pairs.
//
// The pipeline is: normalise bytes, make meaningful spaces explicit, parse,
// walk every unit of the schema family into two text streams, split both
// streams into chunks at hard breaks, segment each chunk, align the
// sentences by position and finally clean the pairs of the whole document.
package extract

import (
	"bytes"
	"context"
	"fmt"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/pairs"
	"github.com/FocuswithJustin/corpuspairs/core/schema"
	"github.com/FocuswithJustin/corpuspairs/core/segment"
	"github.com/FocuswithJustin/corpuspairs/core/textbuf"
	"github.com/FocuswithJustin/corpuspairs/core/xml"
	"golang.org/x/text/unicode/norm"
)

// Extractor runs the pipeline with one sentence boundary backend. It holds
// no per-document state and is safe for concurrent use when its Boundary is.
type Extractor struct {
	seg *segment.Segmenter
}

// New returns an Extractor that segments with b.
func New(b segment.Boundary) *Extractor {
	return &Extractor{seg: segment.New(b)}
}

// Default uses the rule-based sentencizer, built on first use.
var Default = New(segment.NewLazy(func() (segment.Boundary, error) {
	return segment.NewSentencizer(), nil
}))

// Extract runs Default.Extract.
func Extract(ctx context.Context, data []byte, family schema.Family) ([]pairs.SentencePair, error) {
	return Default.Extract(ctx, data, family)
}

// Extract returns the cleaned sentence pairs of one document.
func (x *Extractor) Extract(ctx context.Context, data []byte, family schema.Family) ([]pairs.SentencePair, error) {
	return x.run(ctx, data, family, nil)
}

// Document is Extract for batch callers. It always returns a non-nil slice,
// empty when the document failed, and reports the failure as the error.
// Panics inside the pipeline are recovered and reported the same way.
func (x *Extractor) Document(ctx context.Context, data []byte, family schema.Family) (ps []pairs.SentencePair, err error) {
	defer func() {
		if r := recover(); r != nil {
			ps, err = []pairs.SentencePair{}, fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	ps, err = x.run(ctx, data, family, nil)
	if err != nil || ps == nil {
		return []pairs.SentencePair{}, err
	}
	return ps, nil
}

// Report describes every intermediate step of one extraction.
type Report struct {
	Units []UnitReport
	// Pairs are the final, cleaned pairs.
	Pairs []pairs.SentencePair
}

// UnitReport is one walked unit (a paragraph or an exercise).
type UnitReport struct {
	Source    string
	Target    string
	Corrected bool
	Chunks    []ChunkReport
}

// ChunkReport is one pair of chunks and the pairs aligned from them,
// before cleaning.
type ChunkReport struct {
	Source textbuf.Chunk
	Target textbuf.Chunk
	Pairs  []pairs.SentencePair
}

// Inspect runs the pipeline and records what each step produced.
func (x *Extractor) Inspect(ctx context.Context, data []byte, family schema.Family) (*Report, error) {
	r := &Report{}
	ps, err := x.run(ctx, data, family, r)
	if err != nil {
		return nil, err
	}
	r.Pairs = ps
	return r, nil
}

func (x *Extractor) run(ctx context.Context, data []byte, family schema.Family, report *Report) ([]pairs.SentencePair, error) {
	table := family.Table()
	if table == nil {
		return nil, cerrors.NewUnsupported("schema family", family.String())
	}

	doc, err := xml.Parse(xml.InjectSpaces(normalize(data)))
	if err != nil {
		return nil, err
	}
	units, err := family.Units(doc)
	if err != nil {
		return nil, err
	}

	var all []pairs.SentencePair
	for _, unit := range units {
		res := schema.Walk(table, unit)

		var ur *UnitReport
		if report != nil {
			report.Units = append(report.Units, UnitReport{
				Source:    res.Source.Text(),
				Target:    res.Target.Text(),
				Corrected: res.Corrected,
			})
			ur = &report.Units[len(report.Units)-1]
		}

		ps, err := x.unitPairs(ctx, res, ur)
		if err != nil {
			return nil, err
		}
		all = append(all, ps...)
	}
	return pairs.Clean(all), nil
}

// unitPairs segments and aligns the chunks of one unit. Chunk lists of
// different length are padded like sentence lists.
func (x *Extractor) unitPairs(ctx context.Context, res *schema.Result, ur *UnitReport) ([]pairs.SentencePair, error) {
	srcChunks, tgtChunks := res.Source.Chunks(), res.Target.Chunks()

	var out []pairs.SentencePair
	for i := 0; i < max(len(srcChunks), len(tgtChunks)); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var src, tgt textbuf.Chunk
		if i < len(srcChunks) {
			src = srcChunks[i]
		}
		if i < len(tgtChunks) {
			tgt = tgtChunks[i]
		}

		srcSents, err := x.seg.Split(ctx, src.Text)
		if err != nil {
			return nil, err
		}
		tgtSents, err := x.seg.Split(ctx, tgt.Text)
		if err != nil {
			return nil, err
		}

		aligned := pairs.Align(srcSents, tgtSents, src.Foreign || tgt.Foreign)
		if ur != nil {
			ur.Chunks = append(ur.Chunks, ChunkReport{Source: src, Target: tgt, Pairs: aligned})
		}
		out = append(out, aligned...)
	}
	return out, nil
}

var bom = []byte("\xef\xbb\xbf")

// normalize drops a byte order mark and invalid UTF-8 and composes the text
// to NFC, so decomposed umlauts compare equal to precomposed ones.
func normalize(data []byte) []byte {
	data = bytes.TrimPrefix(data, bom)
	data = bytes.ToValidUTF8(data, nil)
	return norm.NFC.Bytes(data)
}
