// Package segment splits reconstructed text chunks into sentences.
//
// A Segmenter repairs the input, asks a Boundary for candidate spans and
// then drops and merges candidates. Boundary backends are interchangeable;
// see Open.
package segment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Boundary proposes sentence spans for a piece of text.
type Boundary interface {
	Sentences(ctx context.Context, text string) ([]string, error)
}

// BoundaryFunc adapts a function to the Boundary interface.
type BoundaryFunc func(ctx context.Context, text string) ([]string, error)

// Sentences calls f.
func (f BoundaryFunc) Sentences(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}

// hardSplit separates pieces that are segmented independently.
const hardSplit = "\x1e"

var (
	periodRun    = regexp.MustCompile(`\.{2,}`)
	missingSpace = regexp.MustCompile(`([.!?]+)([A-ZÄÖÜ])`)
	residualTag  = regexp.MustCompile(`<[^>]+>`)
	spaceRun     = regexp.MustCompile(` +`)
	onlyTerminal = regexp.MustCompile(`^[.?!]+$`)
	bareEnum     = regexp.MustCompile(`^\d+[.)]\s*$`)
	endsTerminal = regexp.MustCompile(`[.!?]$`)
)

// Segmenter turns marker-free chunks into sentences. It keeps no state
// between calls.
type Segmenter struct {
	boundary Boundary
}

// New returns a Segmenter backed by b.
func New(b Boundary) *Segmenter {
	return &Segmenter{boundary: b}
}

// Split returns the sentences of chunk in order.
func (s *Segmenter) Split(ctx context.Context, chunk string) ([]string, error) {
	if strings.TrimSpace(chunk) == "" {
		return nil, nil
	}

	// Ellipses end a piece without producing a sentence boundary of their own.
	chunk = periodRun.ReplaceAllString(chunk, "."+hardSplit)
	chunk = missingSpace.ReplaceAllString(chunk, "$1 $2")

	var candidates []string
	for _, piece := range strings.Split(chunk, hardSplit) {
		piece = residualTag.ReplaceAllString(piece, " ")
		piece = strings.TrimSpace(spaceRun.ReplaceAllString(piece, " "))
		if piece == "" {
			continue
		}

		spans, err := s.boundary.Sentences(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("segmenting chunk: %w", err)
		}
		for _, span := range spans {
			span = strings.TrimSpace(span)
			if span == "" || onlyTerminal.MatchString(span) || bareEnum.MatchString(span) {
				continue
			}
			candidates = append(candidates, span)
		}
	}
	return mergeFragments(candidates), nil
}

// mergeFragments joins a candidate onto the previous sentence when it starts
// lowercase or the previous sentence has no terminal punctuation.
func mergeFragments(candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if n := len(out); n > 0 {
			if startsLower(c) || !endsTerminal.MatchString(out[n-1]) {
				out[n-1] += " " + c
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}
