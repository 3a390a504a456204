// Command corpuspairs extracts aligned original/corrected sentence pairs from
// annotated learner corpora.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/corpuspairs/core/cache"
	"github.com/FocuswithJustin/corpuspairs/core/cas"
	"github.com/FocuswithJustin/corpuspairs/core/extract"
	"github.com/FocuswithJustin/corpuspairs/core/runner"
	"github.com/FocuswithJustin/corpuspairs/core/schema"
	"github.com/FocuswithJustin/corpuspairs/core/segment"
	"github.com/FocuswithJustin/corpuspairs/core/sqlite"
	"github.com/FocuswithJustin/corpuspairs/internal/archive"
	"github.com/FocuswithJustin/corpuspairs/internal/config"
	"github.com/FocuswithJustin/corpuspairs/internal/logging"
	"github.com/FocuswithJustin/corpuspairs/internal/output"
	"github.com/FocuswithJustin/corpuspairs/internal/stats"
	"github.com/FocuswithJustin/corpuspairs/internal/validation"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"YAML or TOML configuration file" type:"existingfile"`
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format"`

	out io.Writer
}

// CLI defines the command-line interface.
type CLI struct {
	Globals `embed:""`

	Extract ExtractCmd `cmd:"" help:"Extract sentence pairs from the active corpora"`
	Inspect InspectCmd `cmd:"" help:"Show how one document is reconstructed, segmented and aligned"`
	Stats   StatsCmd   `cmd:"" help:"Describe a pairs CSV written by an earlier run"`
	Dump    DumpCmd    `cmd:"" name:"config-dump" help:"Print the effective configuration"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// SegmenterFlags select the sentence boundary backend.
type SegmenterFlags struct {
	Segmenter    string  `name:"segmenter" help:"Sentence boundary backend (sentencizer, punkt, sat)"`
	SatModel     string  `name:"sat-model" help:"SaT ONNX model" type:"path"`
	SatTokenizer string  `name:"sat-tokenizer" help:"SaT tokenizer.json" type:"path"`
	SatThreshold float32 `name:"sat-threshold" help:"SaT boundary probability threshold"`
	OrtLibrary   string  `name:"ort-library" help:"onnxruntime shared library" type:"path"`
	Sessions     int     `name:"sat-sessions" help:"Number of SaT inference sessions"`
}

func (f *SegmenterFlags) apply(s *config.Segmenter) {
	if f.Segmenter != "" {
		s.Backend = f.Segmenter
	}
	if f.SatModel != "" {
		s.SatModel = f.SatModel
	}
	if f.SatTokenizer != "" {
		s.SatTokenizer = f.SatTokenizer
	}
	if f.SatThreshold != 0 {
		s.SatThreshold = f.SatThreshold
	}
	if f.OrtLibrary != "" {
		s.OrtLibrary = f.OrtLibrary
	}
	if f.Sessions != 0 {
		s.Sessions = f.Sessions
	}
}

// openSegmenter builds the extractor for s. The returned Lazy must be
// closed.
func openSegmenter(s config.Segmenter) (*extract.Extractor, *segment.Lazy, error) {
	lazy, err := segment.Open(segment.Config{
		Backend:      s.Backend,
		SatModel:     s.SatModel,
		SatTokenizer: s.SatTokenizer,
		SatThreshold: s.SatThreshold,
		OrtLibrary:   s.OrtLibrary,
		Sessions:     s.Sessions,
		Logger:       logging.GetLogger(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := lazy.Ready(); err != nil {
		lazy.Close()
		return nil, nil, fmt.Errorf("segmenter %s: %w", s.Backend, err)
	}
	return extract.New(lazy), lazy, nil
}

// loadConfig returns the configuration file over the defaults, or the
// defaults alone.
func loadConfig(g *Globals) (*config.Config, error) {
	if g.Config == "" {
		return config.Default(), nil
	}
	return config.Load(g.Config)
}

// ExtractCmd runs a batch extraction.
type ExtractCmd struct {
	Corpora  []string `name:"corpora" help:"Comma-separated corpora to process (default: active_corpora)"`
	Corpus   []string `name:"corpus" sep:"none" help:"Add a corpus: NAME[(schema[, lang_prof])]=PATH"`
	Base     string   `name:"base" help:"Directory relative corpus paths start from" type:"path"`
	Output   string   `name:"output" short:"o" help:"Output directory" type:"path"`
	Format   []string `name:"format" short:"f" help:"Output formats: csv, norm, both, sqlite"`
	Compress bool     `name:"compress" help:"xz-compress csv and norm files"`
	MaxFiles int      `name:"max-files" help:"Documents per corpus (0 = all)"`
	Workers  int      `name:"workers" short:"j" help:"Documents extracted in parallel"`
	Cache    string   `name:"cache" help:"Directory of the extraction cache" type:"path"`
	Bundle   string   `name:"bundle" help:"Also pack the output directory into this .tar.xz or .tar.gz" type:"path"`
	Stats    bool     `name:"stats" help:"Print corpus statistics after the run"`

	SegmenterFlags `embed:""`
}

func (c *ExtractCmd) config(g *Globals) (*config.Config, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, spec := range c.Corpus {
		corpus, err := config.ParseCorpus(spec)
		if err != nil {
			return nil, err
		}
		cfg.Upsert(corpus)
		added = append(added, corpus.Name)
	}
	switch {
	case len(c.Corpora) > 0:
		cfg.Active = c.Corpora
	case len(added) > 0:
		cfg.Active = added
	}

	if c.Base != "" {
		cfg.BaseDir = c.Base
	}
	if c.Output != "" {
		cfg.OutputDir = c.Output
	}
	if len(c.Format) > 0 {
		cfg.Formats = c.Format
	}
	if c.Compress {
		cfg.Compress = true
	}
	if c.MaxFiles != 0 {
		cfg.MaxFiles = c.MaxFiles
	}
	if c.Workers != 0 {
		cfg.Workers = c.Workers
	}
	if c.Cache != "" {
		cfg.CacheDir = c.Cache
	}
	c.SegmenterFlags.apply(&cfg.Segmenter)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ExtractCmd) Run(g *Globals) error {
	cfg, err := c.config(g)
	if err != nil {
		return err
	}
	if c.Bundle != "" && !archive.IsBundle(c.Bundle) {
		return fmt.Errorf("bundle %s: want a .tar.xz or .tar.gz path", c.Bundle)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	x, lazy, err := openSegmenter(cfg.Segmenter)
	if err != nil {
		return err
	}
	defer lazy.Close()

	var pairsCache *cache.Pairs
	if cfg.CacheDir != "" {
		store, err := cas.NewStore(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		pairsCache = cache.NewPairs(store, cache.DefaultSize)
	}

	runID := uuid.NewString()
	sinks, err := output.Open(ctx, output.Options{
		Dir:       cfg.OutputDir,
		Formats:   cfg.OutputFormats(),
		Compress:  cfg.Compress,
		RunID:     runID,
		Segmenter: cfg.Segmenter.Backend,
	})
	if err != nil {
		return err
	}
	var collector *stats.Collector
	if c.Stats {
		collector = stats.NewCollector(false)
		sinks.Add(collector)
	}

	res, err := runner.Run(ctx, runner.Options{
		Config:    cfg,
		Extractor: x,
		Sink:      sinks,
		Cache:     pairsCache,
		Pipeline:  cfg.Segmenter.Backend,
		RunID:     runID,
	})
	if cerr := sinks.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if err := printSummary(g.out, res); err != nil {
		return err
	}
	if pairsCache != nil {
		s := pairsCache.Stats()
		logging.Info("cache", "hits", s.Hits+s.DiskHits, "misses", s.Misses-s.DiskHits)
	}
	if collector != nil {
		fmt.Fprintln(g.out)
		if err := stats.Render(g.out, collector.Results()); err != nil {
			return err
		}
	}
	if c.Bundle != "" {
		if err := archive.CreateBundle(cfg.OutputDir, c.Bundle, filepath.Base(filepath.Clean(cfg.OutputDir))); err != nil {
			return fmt.Errorf("failed to create bundle: %w", err)
		}
		fmt.Fprintf(g.out, "Bundle: %s\n", c.Bundle)
	}
	return nil
}

func printSummary(w io.Writer, res *runner.Result) error {
	fmt.Fprintf(w, "Run %s: %s documents, %s pairs", res.RunID,
		humanize.Comma(int64(res.Documents)), humanize.Comma(int64(res.Pairs)))
	if res.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", res.Failed)
	}
	fmt.Fprintf(w, " in %s\n\n", res.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "corpus\tlang_prof\tdocuments\tfailed\tpairs\tcorrected")
	for _, s := range res.Summaries {
		if s.Skipped {
			fmt.Fprintf(tw, "%s\t%s\tskipped\t\t\t\n", s.Corpus, s.LangProf)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", s.Corpus, s.LangProf,
			humanize.Comma(int64(s.Documents)), s.Failed,
			humanize.Comma(int64(s.Pairs)), humanize.Comma(int64(s.Corrected)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Failures) > 0 {
		fmt.Fprintln(w, "\nSkipped documents:")
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  %v\n", f)
		}
	}
	return nil
}

// InspectCmd dumps the intermediate steps of one document.
type InspectCmd struct {
	Path   string `arg:"" help:"Annotated XML document (may be .xz or .gz)" type:"existingfile"`
	Schema string `name:"schema" short:"s" required:"" help:"Schema family: leonide or kolipsi"`
	JSON   bool   `name:"json" help:"Print the report as JSON"`

	SegmenterFlags `embed:""`
}

func (c *InspectCmd) Run(g *Globals) error {
	if err := validation.ValidatePath(c.Path); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	family, err := schema.ParseFamily(c.Schema)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	c.SegmenterFlags.apply(&cfg.Segmenter)

	x, lazy, err := openSegmenter(cfg.Segmenter)
	if err != nil {
		return err
	}
	defer lazy.Close()

	data, err := archive.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	report, err := x.Inspect(context.Background(), data, family)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(g.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(g.out, report)
	return nil
}

func printReport(w io.Writer, r *extract.Report) {
	for i, u := range r.Units {
		fmt.Fprintf(w, "Unit %d (corrected: %v)\n", i+1, u.Corrected)
		fmt.Fprintf(w, "  source: %s\n", u.Source)
		fmt.Fprintf(w, "  target: %s\n", u.Target)
		for j, ch := range u.Chunks {
			foreign := ""
			if ch.Source.Foreign || ch.Target.Foreign {
				foreign = " [foreign]"
			}
			fmt.Fprintf(w, "  chunk %d%s\n", j+1, foreign)
			for _, p := range ch.Pairs {
				mark := " "
				if p.HasCorrection {
					mark = "*"
				}
				fmt.Fprintf(w, "   %s %s\n     %s\n", mark, p.Src, p.Tgt)
			}
		}
	}
	fmt.Fprintf(w, "\n%d pairs after cleaning\n", len(r.Pairs))
	for i, p := range r.Pairs {
		fmt.Fprintf(w, "%3d  %s\n     %s\n", i+1, p.Src, p.Tgt)
	}
}

// StatsCmd describes a pairs CSV.
type StatsCmd struct {
	CSV           string `arg:"" optional:"" default:"output/all_corpora.csv" help:"Pairs CSV (may be .xz)" type:"path"`
	CorrectedOnly bool   `name:"corrected-only" help:"Only count corrected pairs"`
	JSON          bool   `name:"json" help:"Print JSON"`
}

func (c *StatsCmd) Run(g *Globals) error {
	rows, err := output.ReadCSV(c.CSV)
	if err != nil {
		return err
	}
	results := stats.FromRows(rows, c.CorrectedOnly).Results()
	if c.JSON {
		enc := json.NewEncoder(g.out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return stats.Render(g.out, results)
}

// DumpCmd prints the effective configuration.
type DumpCmd struct {
	Format string `name:"format" default:"yaml" enum:"yaml,toml" help:"Output format"`
}

func (c *DumpCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal(c.Format)
	if err != nil {
		return err
	}
	_, err = g.out.Write(data)
	return err
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(g.out, "corpuspairs version %s\n", version)
	fmt.Fprintf(g.out, "  sqlite driver: %s (%s)\n", info.DriverName, info.DriverType)
	fmt.Fprintf(g.out, "  segmenters: %s\n", strings.Join(segment.Backends(), ", "))
	return nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("corpuspairs"),
		kong.Description("Extract aligned original/corrected sentence pairs from learner corpora"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	}, options...)
	return kong.New(cli, options...)
}

func run(args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := newParser(&cli, kong.Writers(stdout, os.Stderr))
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logging.InitLogger(logging.ParseLevel(cli.LogLevel), logging.ParseFormat(cli.LogFormat))
	cli.out = stdout
	return ctx.Run(&cli.Globals)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	logging.InitLogger(logging.ParseLevel(cli.LogLevel), logging.ParseFormat(cli.LogFormat))
	cli.out = os.Stdout
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
