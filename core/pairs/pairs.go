// Package pairs aligns segmented source and target sentences and cleans the
// resulting pairs.
package pairs

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// SentencePair is one aligned original/corrected sentence.
type SentencePair struct {
	Src           string
	Tgt           string
	HasCorrection bool
	HasForeign    bool
}

// Align zips src and tgt by position. The shorter side is padded with empty
// strings and positions empty on both sides are dropped. Alignment does not
// look at content: when a correction changes the number of sentences, pairs
// after that point are shifted.
func Align(src, tgt []string, foreign bool) []SentencePair {
	n := max(len(src), len(tgt))
	out := make([]SentencePair, 0, n)
	for i := 0; i < n; i++ {
		var s, t string
		if i < len(src) {
			s = src[i]
		}
		if i < len(tgt) {
			t = tgt[i]
		}
		if s == "" && t == "" {
			continue
		}
		out = append(out, SentencePair{
			Src:           s,
			Tgt:           t,
			HasCorrection: strings.TrimSpace(s) != strings.TrimSpace(t),
			HasForeign:    foreign,
		})
	}
	return out
}

var (
	lineBreak  = regexp.MustCompile(`\s*\n\s*`)
	enumPrefix = regexp.MustCompile(`^\d+[.)]\s+`)
	wordToken  = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// MinWords is the fewest word tokens each side of a cleaned pair has.
const MinWords = 3

// Clean filters and deduplicates the pairs of one document, keeping order.
// Duplicates are detected case-insensitively over both sides; the first
// occurrence wins.
func Clean(in []SentencePair) []SentencePair {
	fold := cases.Fold()
	seen := make(map[[2]string]struct{}, len(in))
	var out []SentencePair

	for _, p := range in {
		if p.HasForeign {
			continue
		}

		src := strings.TrimSpace(lineBreak.ReplaceAllString(p.Src, " "))
		tgt := strings.TrimSpace(lineBreak.ReplaceAllString(p.Tgt, " "))

		if strings.Contains(src, "*") || strings.Contains(tgt, "*") {
			continue
		}
		if onlyPunct(src) || onlyPunct(tgt) {
			continue
		}

		src = strings.TrimSpace(enumPrefix.ReplaceAllString(src, ""))
		tgt = strings.TrimSpace(enumPrefix.ReplaceAllString(tgt, ""))
		if src == "" || tgt == "" {
			continue
		}
		if WordCount(src) < MinWords || WordCount(tgt) < MinWords {
			continue
		}

		key := [2]string{fold.String(src), fold.String(tgt)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, SentencePair{
			Src:           src,
			Tgt:           tgt,
			HasCorrection: p.HasCorrection,
			HasForeign:    p.HasForeign,
		})
	}
	return out
}

// WordCount counts runs of letters and digits.
func WordCount(s string) int {
	return len(wordToken.FindAllStringIndex(s, -1))
}

// Words returns the runs of letters and digits in s.
func Words(s string) []string {
	return wordToken.FindAllString(s, -1)
}

func onlyPunct(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
