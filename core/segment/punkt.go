package segment

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/neurosnap/sentences"
)

// germanPunkt holds the Punkt parameters trained on German text that
// neurosnap/sentences publishes alongside its English model.
//
//go:embed punkt/german.json
var germanPunkt []byte

// Punkt is a Boundary backed by an unsupervised Punkt model trained on
// German text.
type Punkt struct {
	mu  sync.Mutex
	tok *sentences.DefaultSentenceTokenizer
}

// NewPunkt loads the embedded German Punkt parameters.
func NewPunkt() (*Punkt, error) {
	training, err := sentences.LoadTraining(germanPunkt)
	if err != nil {
		return nil, fmt.Errorf("loading punkt model: %w", err)
	}
	return &Punkt{tok: sentences.NewSentenceTokenizer(training)}, nil
}

// Sentences implements Boundary.
func (p *Punkt) Sentences(_ context.Context, text string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	for _, s := range p.tok.Tokenize(text) {
		out = append(out, s.Text)
	}
	return out, nil
}
