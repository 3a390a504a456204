// Package sat detects sentence boundaries with a Segment-any-Text (SaT) ONNX
// model. Text is tokenized with the model's HuggingFace tokenizer.json and
// every token whose boundary probability exceeds a threshold ends a sentence.
package sat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const (
	// maxSeqLen is the longest token window the model is run on.
	maxSeqLen = 512
	// windowOverlap is the number of tokens consecutive windows share.
	windowOverlap = 64
)

// Model is a SaT sentence boundary detector. It is safe for concurrent use.
type Model struct {
	tokMu     sync.Mutex
	tok       *tokenizer.Tokenizer
	pool      *pool
	threshold float32
	logger    *slog.Logger
}

// New loads the ONNX model and tokenizer.
func New(modelPath, tokenizerPath string, opts ...Option) (*Model, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("checking model file: %w", err)
	}
	if _, err := os.Stat(tokenizerPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenizerFailed, tokenizerPath)
	}

	tok, err := pretrained.FromFile(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenizerFailed, err)
	}

	if err := initORT(cfg.library); err != nil {
		return nil, fmt.Errorf("%w: initializing ONNX runtime: %w", ErrInvalidModel, err)
	}
	p, err := newPool(modelPath, cfg.poolSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	cfg.logger.Debug("sat model loaded",
		"model", modelPath,
		"tokenizer", tokenizerPath,
		"sessions", cfg.poolSize,
		"threshold", cfg.threshold)

	return &Model{
		tok:       tok,
		pool:      p,
		threshold: cfg.threshold,
		logger:    cfg.logger,
	}, nil
}

// Sentences splits text at the tokens the model marks as sentence ends.
func (m *Model) Sentences(ctx context.Context, text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	m.tokMu.Lock()
	enc, err := m.tok.EncodeSingle(text, true)
	m.tokMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}
	if len(enc.Ids) == 0 {
		return []string{text}, nil
	}

	ids := make([]int64, len(enc.Ids))
	for i, id := range enc.Ids {
		ids[i] = int64(id)
	}

	s, err := m.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.pool.release(s)

	logits, err := windowed(len(ids), func(lo, hi int) ([]float32, error) {
		return s.infer(ctx, ids[lo:hi])
	})
	if err != nil {
		return nil, err
	}

	var ends []int
	for i, logit := range logits {
		if i < len(enc.SpecialTokenMask) && enc.SpecialTokenMask[i] == 1 {
			continue
		}
		if i < len(enc.Offsets) && len(enc.Offsets[i]) == 2 && sigmoid(logit) > m.threshold {
			ends = append(ends, enc.Offsets[i][1])
		}
	}
	return splitAt(text, ends), nil
}

// Close releases the ONNX sessions.
func (m *Model) Close() error {
	if m.pool == nil {
		return nil
	}
	return m.pool.close()
}

// windowed runs infer over overlapping windows of at most maxSeqLen tokens
// and averages the logits where windows overlap.
func windowed(n int, infer func(lo, hi int) ([]float32, error)) ([]float32, error) {
	if n <= maxSeqLen {
		return infer(0, n)
	}

	logits := make([]float32, n)
	counts := make([]int, n)
	stride := maxSeqLen - windowOverlap
	for lo := 0; lo < n; lo += stride {
		hi := min(lo+maxSeqLen, n)
		out, err := infer(lo, hi)
		if err != nil {
			return nil, err
		}
		for i, l := range out {
			logits[lo+i] += l
			counts[lo+i]++
		}
		if hi == n {
			break
		}
	}
	for i := range logits {
		if counts[i] > 1 {
			logits[i] /= float32(counts[i])
		}
	}
	return logits, nil
}

// splitAt cuts text after each byte offset in ends. Offsets are moved
// forward to the next rune boundary; out-of-order ones are skipped.
func splitAt(text string, ends []int) []string {
	var out []string
	start := 0
	for _, end := range ends {
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}
		if end <= start || end > len(text) {
			continue
		}
		out = append(out, text[start:end])
		start = end
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}
