package segment

import (
	"log/slog"
	"sort"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/segment/sat"
)

// Backend names accepted by Open.
const (
	BackendSentencizer = "sentencizer"
	BackendPunkt       = "punkt"
	BackendSaT         = "sat"
)

// Config selects and configures a Boundary backend.
type Config struct {
	Backend string

	// SaT backend only.
	SatModel     string
	SatTokenizer string
	SatThreshold float32
	OrtLibrary   string
	Sessions     int

	Logger *slog.Logger
}

var openers = map[string]func(Config) (Boundary, error){
	BackendSentencizer: func(Config) (Boundary, error) {
		return NewSentencizer(), nil
	},
	BackendPunkt: func(Config) (Boundary, error) {
		return NewPunkt()
	},
	BackendSaT: func(cfg Config) (Boundary, error) {
		if cfg.SatModel == "" || cfg.SatTokenizer == "" {
			return nil, cerrors.NewValidation("sat", "model and tokenizer paths are required")
		}
		return sat.New(cfg.SatModel, cfg.SatTokenizer,
			sat.WithThreshold(cfg.SatThreshold),
			sat.WithPoolSize(cfg.Sessions),
			sat.WithLibrary(cfg.OrtLibrary),
			sat.WithLogger(cfg.Logger))
	},
}

// Backends lists the backend names Open accepts.
func Backends() []string {
	names := make([]string, 0, len(openers))
	for name := range openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns a Lazy Boundary for cfg. The backend name is checked now; the
// backend itself is built on first use. An empty name selects the sentencizer.
func Open(cfg Config) (*Lazy, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendSentencizer
	}
	open, ok := openers[cfg.Backend]
	if !ok {
		return nil, cerrors.NewUnsupported("segmenter backend", cfg.Backend)
	}
	return NewLazy(func() (Boundary, error) { return open(cfg) }), nil
}
