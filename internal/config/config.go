// Package config holds the corpus table and run settings. Built-in defaults
// describe the four learner corpora; a YAML or TOML file and command line
// flags override them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/schema"
	"github.com/FocuswithJustin/corpuspairs/internal/validation"
)

// Output formats.
const (
	FormatCSV    = "csv"
	FormatNorm   = "norm"
	FormatSQLite = "sqlite"
	// FormatBoth selects csv and norm.
	FormatBoth = "both"
)

// Corpus is one entry of the corpus table.
type Corpus struct {
	Name     string `yaml:"name" toml:"name"`
	Path     string `yaml:"path" toml:"path"`
	Schema   string `yaml:"schema,omitempty" toml:"schema,omitempty"`
	LangProf string `yaml:"lang_prof" toml:"lang_prof"`
}

// Family returns the schema family of the corpus. Without an explicit schema
// it is inferred from the name: LEONIDE corpora use the Leonide family,
// everything else Kolipsi.
func (c Corpus) Family() (schema.Family, error) {
	if c.Schema != "" {
		return schema.ParseFamily(c.Schema)
	}
	if strings.HasPrefix(strings.ToUpper(c.Name), "LEONIDE") {
		return schema.Leonide, nil
	}
	return schema.Kolipsi, nil
}

// Segmenter configures sentence boundary detection.
type Segmenter struct {
	Backend      string  `yaml:"backend" toml:"backend"`
	SatModel     string  `yaml:"sat_model,omitempty" toml:"sat_model,omitempty"`
	SatTokenizer string  `yaml:"sat_tokenizer,omitempty" toml:"sat_tokenizer,omitempty"`
	SatThreshold float32 `yaml:"sat_threshold,omitempty" toml:"sat_threshold,omitempty"`
	OrtLibrary   string  `yaml:"ort_library,omitempty" toml:"ort_library,omitempty"`
	Sessions     int     `yaml:"sessions,omitempty" toml:"sessions,omitempty"`
}

// Config is everything a batch run needs.
type Config struct {
	// BaseDir anchors relative corpus paths.
	BaseDir   string    `yaml:"base_dir" toml:"base_dir"`
	OutputDir string    `yaml:"output_dir" toml:"output_dir"`
	Formats   []string  `yaml:"formats" toml:"formats"`
	Compress  bool      `yaml:"compress" toml:"compress"`
	MaxFiles  int       `yaml:"max_files" toml:"max_files"`
	Workers   int       `yaml:"workers" toml:"workers"`
	CacheDir  string    `yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty"`
	Active    []string  `yaml:"active_corpora" toml:"active_corpora"`
	Corpora   []Corpus  `yaml:"corpora" toml:"corpora"`
	Segmenter Segmenter `yaml:"segmenter" toml:"segmenter"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseDir:   ".",
		OutputDir: "output",
		Formats:   []string{FormatNorm},
		Workers:   1,
		Active:    []string{"LEONIDE", "Kolipsi_1_L2", "Kolipsi_1_L1", "Kolipsi_2"},
		Corpora: []Corpus{
			{Name: "LEONIDE", Path: "corpora/LEONIDE/pepper-xml-v1.1/data/DE", LangProf: "L2"},
			{Name: "Kolipsi_1_L2", Path: "corpora/Kolipsi_1/xmlmind-v1.1/data/annotations/L2/DE/files_split_by_exercises", LangProf: "L2"},
			{Name: "Kolipsi_1_L1", Path: "corpora/Kolipsi_1/xmlmind-v1.1/data/annotations/L1/DE/files_split_by_exercises", LangProf: "L1"},
			{Name: "Kolipsi_2", Path: "corpora/Kolipsi_2/xmlmind-v1.1/data/annotations/DE/files_split_by_exercises", LangProf: "L2"},
		},
		Segmenter: Segmenter{Backend: "sentencizer"},
	}
}

// Load reads a configuration file over the defaults. The format follows the
// extension: .yaml/.yml or .toml. Settings missing from the file keep their
// default, corpora are added to the built-in table (replacing entries of the
// same name) and a listed active_corpora replaces the default selection.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.NewIO("read config", path, err)
	}

	var file Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, &cerrors.ParseError{Format: "YAML", Path: path, Message: "invalid config", Err: err}
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, &cerrors.ParseError{Format: "TOML", Path: path, Message: "invalid config", Err: err}
		}
	default:
		return nil, cerrors.NewUnsupported("config format", filepath.Ext(path))
	}

	cfg := Default()
	cfg.overlay(&file)
	return cfg, nil
}

func (c *Config) overlay(f *Config) {
	if f.BaseDir != "" {
		c.BaseDir = f.BaseDir
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
	if len(f.Formats) > 0 {
		c.Formats = f.Formats
	}
	if f.Compress {
		c.Compress = true
	}
	if f.MaxFiles != 0 {
		c.MaxFiles = f.MaxFiles
	}
	if f.Workers != 0 {
		c.Workers = f.Workers
	}
	if f.CacheDir != "" {
		c.CacheDir = f.CacheDir
	}
	for _, corpus := range f.Corpora {
		c.Upsert(corpus)
	}
	if f.Active != nil {
		c.Active = f.Active
	}

	s := f.Segmenter
	if s.Backend != "" {
		c.Segmenter.Backend = s.Backend
	}
	if s.SatModel != "" {
		c.Segmenter.SatModel = s.SatModel
	}
	if s.SatTokenizer != "" {
		c.Segmenter.SatTokenizer = s.SatTokenizer
	}
	if s.SatThreshold != 0 {
		c.Segmenter.SatThreshold = s.SatThreshold
	}
	if s.OrtLibrary != "" {
		c.Segmenter.OrtLibrary = s.OrtLibrary
	}
	if s.Sessions != 0 {
		c.Segmenter.Sessions = s.Sessions
	}
}

// Marshal renders cfg in the format selected by ext (".yaml" or ".toml").
func (c *Config) Marshal(ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", "yaml":
		return yaml.Marshal(c)
	case ".toml", "toml":
		return toml.Marshal(c)
	}
	return nil, cerrors.NewUnsupported("config format", ext)
}

// Lookup returns the corpus called name.
func (c *Config) Lookup(name string) (Corpus, bool) {
	for _, corpus := range c.Corpora {
		if corpus.Name == name {
			return corpus, true
		}
	}
	return Corpus{}, false
}

// Upsert adds corpus to the table, replacing an entry of the same name.
func (c *Config) Upsert(corpus Corpus) {
	for i := range c.Corpora {
		if c.Corpora[i].Name == corpus.Name {
			c.Corpora[i] = corpus
			return
		}
	}
	c.Corpora = append(c.Corpora, corpus)
}

// Selected returns the active corpora in the order they are listed as
// active. An active name missing from the table is an error.
func (c *Config) Selected() ([]Corpus, error) {
	out := make([]Corpus, 0, len(c.Active))
	for _, name := range c.Active {
		corpus, ok := c.Lookup(name)
		if !ok {
			return nil, cerrors.NewNotFound("corpus", name)
		}
		out = append(out, corpus)
	}
	return out, nil
}

// Resolve returns the directory of corpus, joining relative paths to BaseDir.
func (c *Config) Resolve(corpus Corpus) string {
	if filepath.IsAbs(corpus.Path) || c.BaseDir == "" {
		return corpus.Path
	}
	return filepath.Join(c.BaseDir, corpus.Path)
}

// OutputFormats expands FormatBoth and removes duplicates, keeping order.
func (c *Config) OutputFormats() []string {
	var out []string
	add := func(f string) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	for _, f := range c.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == FormatBoth {
			add(FormatCSV)
			add(FormatNorm)
			continue
		}
		add(f)
	}
	return out
}

// Validate checks the configuration before a run. Corpus directories are
// not required to exist; a missing one is skipped at run time.
func (c *Config) Validate() error {
	if err := validation.ValidatePath(c.OutputDir); err != nil {
		return cerrors.NewValidation("output_dir", err.Error())
	}
	if c.MaxFiles < 0 {
		return cerrors.NewValidation("max_files", "must not be negative")
	}
	if c.Workers < 1 {
		return cerrors.NewValidation("workers", "must be at least 1")
	}

	formats := c.OutputFormats()
	if len(formats) == 0 {
		return cerrors.NewValidation("formats", "at least one output format is required")
	}
	for _, f := range formats {
		switch f {
		case FormatCSV, FormatNorm, FormatSQLite:
		default:
			return cerrors.NewValidation("formats", fmt.Sprintf("unknown format %q", f))
		}
	}

	seen := make(map[string]bool, len(c.Corpora))
	for _, corpus := range c.Corpora {
		if corpus.Name == "" {
			return cerrors.NewValidation("corpora", "corpus without a name")
		}
		if seen[corpus.Name] {
			return cerrors.NewValidation("corpora", fmt.Sprintf("duplicate corpus %q", corpus.Name))
		}
		seen[corpus.Name] = true

		if err := validation.ValidatePath(corpus.Path); err != nil {
			return cerrors.NewValidation("corpora."+corpus.Name+".path", err.Error())
		}
		if _, err := validation.SanitizeFilename(corpus.Name); err != nil {
			return cerrors.NewValidation("corpora."+corpus.Name+".name", err.Error())
		}
		if _, err := corpus.Family(); err != nil {
			return cerrors.Wrapf(err, "corpus %s", corpus.Name)
		}
	}

	if _, err := c.Selected(); err != nil {
		return err
	}
	return nil
}
