// Package stats describes an extracted corpus: pairs, corrections, words and
// vocabulary per (corpus, lang_prof).
package stats

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/corpuspairs/internal/output"
)

// Total is the corpus name of the row covering every group.
const Total = "WHOLE_CORPUS"

// Stats describes one group of pairs. Every pair counts as two sentences.
type Stats struct {
	Corpus       string  `json:"corpus"`
	LangProf     string  `json:"lang_prof"`
	Pairs        int     `json:"n_sentence_pairs"`
	Sentences    int     `json:"n_sentences"`
	Corrected    int     `json:"corrected_pairs"`
	LeftAsIs     int     `json:"left_as_is"`
	Words        int     `json:"words"`
	UniqueTokens int     `json:"unique_tokens"`
	AvgWords     float64 `json:"avg_words_per_sentence"`
}

// CorrectedPct is the share of corrected pairs in percent.
func (s Stats) CorrectedPct() float64 {
	if s.Pairs == 0 {
		return 0
	}
	return float64(s.Corrected) * 100 / float64(s.Pairs)
}

type group struct {
	stats  Stats
	tokens map[string]struct{}
}

func newGroup(corpus, langProf string) *group {
	return &group{stats: Stats{Corpus: corpus, LangProf: langProf}, tokens: make(map[string]struct{})}
}

func (g *group) add(r output.Row) {
	g.stats.Pairs++
	if r.Corrected {
		g.stats.Corrected++
	}
	for _, text := range []string{r.Src, r.Tgt} {
		for _, w := range Words(text) {
			g.stats.Words++
			g.tokens[w] = struct{}{}
		}
	}
}

func (g *group) result() Stats {
	s := g.stats
	s.Sentences = s.Pairs * 2
	s.LeftAsIs = s.Pairs - s.Corrected
	s.UniqueTokens = len(g.tokens)
	if s.Sentences > 0 {
		s.AvgWords = float64(s.Words) / float64(s.Sentences)
	}
	return s
}

// Collector accumulates rows. It is also an output.Sink, so a run can feed
// it directly.
type Collector struct {
	// OnlyCorrected restricts the statistics to corrected pairs.
	OnlyCorrected bool

	groups map[[2]string]*group
	total  *group
}

// NewCollector returns an empty collector.
func NewCollector(onlyCorrected bool) *Collector {
	return &Collector{
		OnlyCorrected: onlyCorrected,
		groups:        make(map[[2]string]*group),
		total:         newGroup(Total, ""),
	}
}

// Add counts one row.
func (c *Collector) Add(r output.Row) {
	if c.OnlyCorrected && !r.Corrected {
		return
	}
	k := [2]string{r.Corpus, r.LangProf}
	g, ok := c.groups[k]
	if !ok {
		g = newGroup(r.Corpus, r.LangProf)
		c.groups[k] = g
	}
	g.add(r)
	c.total.add(r)
}

// FromRows collects rows, for instance those of a CSV from an earlier run.
func FromRows(rows []output.Row, onlyCorrected bool) *Collector {
	c := NewCollector(onlyCorrected)
	for _, r := range rows {
		c.Add(r)
	}
	return c
}

// Results returns one row per (corpus, lang_prof), sorted, followed by the
// Total row.
func (c *Collector) Results() []Stats {
	out := make([]Stats, 0, len(c.groups)+1)
	for _, g := range c.groups {
		out = append(out, g.result())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Corpus != out[j].Corpus {
			return out[i].Corpus < out[j].Corpus
		}
		return out[i].LangProf < out[j].LangProf
	})
	return append(out, c.total.result())
}

// BeginCorpus implements output.Sink.
func (c *Collector) BeginCorpus(context.Context, string, string) error { return nil }

// WriteDocument implements output.Sink.
func (c *Collector) WriteDocument(_ context.Context, doc *output.Document) error {
	for _, r := range doc.Rows() {
		c.Add(r)
	}
	return nil
}

// EndCorpus implements output.Sink.
func (c *Collector) EndCorpus(context.Context) error { return nil }

// Close implements output.Sink.
func (c *Collector) Close(context.Context) error { return nil }

// Words returns the alphabetic tokens of text: whitespace separated tokens,
// with surrounding punctuation removed, that consist of letters only.
func Words(text string) []string {
	var out []string
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if tok == "" {
			continue
		}
		alpha := true
		for _, r := range tok {
			if !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) {
				alpha = false
				break
			}
		}
		if alpha {
			out = append(out, tok)
		}
	}
	return out
}

// Render writes stats as an aligned table.
func Render(w io.Writer, stats []Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "corpus\tlang_prof\tpairs\tsentences\twords\tunique\tavg words\tcorrected\tleft as is\tcorrected %\t")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\t%.2f%%\t\n",
			s.Corpus, s.LangProf,
			humanize.Comma(int64(s.Pairs)),
			humanize.Comma(int64(s.Sentences)),
			humanize.Comma(int64(s.Words)),
			humanize.Comma(int64(s.UniqueTokens)),
			s.AvgWords,
			humanize.Comma(int64(s.Corrected)),
			humanize.Comma(int64(s.LeftAsIs)),
			s.CorrectedPct())
	}
	return tw.Flush()
}
