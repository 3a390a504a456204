package segment

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// germanAbbreviations keep their period when tokenizing. Lower-case, without
// the final period.
var germanAbbreviations = []string{
	"abb", "abk", "abs", "allg", "anm", "bd", "bsp", "bspw", "bzgl", "bzw",
	"ca", "dr", "etc", "evtl", "fa", "fr", "geb", "gebr", "gegr", "ggf",
	"ggü", "hbf", "hr", "hrsg", "inkl", "jh", "jhd", "kap", "max", "min",
	"mio", "mrd", "nr", "prof", "s", "sog", "st", "std", "str", "tel",
	"usf", "usw", "vgl", "vs", "zzgl", "zit",
	"jan", "feb", "apr", "aug", "sept", "okt", "nov", "dez",
}

// Sentencizer is a rule-based Boundary. A sentence ends after a token
// that is one of . ? ! and the next sentence starts at the first following
// token that is not punctuation, so closing quotes and brackets stay with
// the sentence they close. Abbreviations keep their period.
//
// It holds no mutable state and is safe for concurrent use.
type Sentencizer struct {
	abbreviations map[string]bool
}

// NewSentencizer returns a Sentencizer that knows common German
// abbreviations plus extra ones (given without the final period).
func NewSentencizer(extra ...string) *Sentencizer {
	z := &Sentencizer{abbreviations: make(map[string]bool, len(germanAbbreviations)+len(extra))}
	for _, a := range germanAbbreviations {
		z.abbreviations[a] = true
	}
	for _, a := range extra {
		z.abbreviations[strings.ToLower(strings.TrimSuffix(a, "."))] = true
	}
	return z
}

type span struct {
	start, end int
}

// Sentences implements Boundary.
func (z *Sentencizer) Sentences(_ context.Context, text string) ([]string, error) {
	toks := z.tokenize(text)
	if len(toks) == 0 {
		return nil, nil
	}

	var out []string
	first, seenTerminal := 0, false
	for i, t := range toks {
		tok := text[t.start:t.end]
		terminal := tok == "." || tok == "?" || tok == "!"
		switch {
		case seenTerminal && !terminal && !isPunct(tok):
			out = append(out, text[toks[first].start:toks[i-1].end])
			first, seenTerminal = i, false
		case terminal:
			seenTerminal = true
		}
	}
	return append(out, text[toks[first].start:toks[len(toks)-1].end]), nil
}

// tokenize splits on whitespace, then splits leading and trailing
// punctuation off each word one character at a time.
func (z *Sentencizer) tokenize(text string) []span {
	var toks []span
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		j := i
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if unicode.IsSpace(r) {
				break
			}
			j += size
		}
		toks = z.splitWord(toks, text, i, j)
		i = j
	}
	return toks
}

func (z *Sentencizer) splitWord(toks []span, text string, start, end int) []span {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsPunct(r) {
			break
		}
		toks = append(toks, span{start, start + size})
		start += size
	}

	var suffix []span
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsPunct(r) || (r == '.' && z.isAbbreviation(text[start:end])) {
			break
		}
		suffix = append(suffix, span{end - size, end})
		end -= size
	}

	if end > start {
		toks = append(toks, span{start, end})
	}
	for i := len(suffix) - 1; i >= 0; i-- {
		toks = append(toks, suffix[i])
	}
	return toks
}

// isAbbreviation reports whether word, which ends in a period, is a known
// abbreviation or a dotted one such as "z.B." or "d.h.".
func (z *Sentencizer) isAbbreviation(word string) bool {
	stem := strings.TrimSuffix(word, ".")
	if stem == "" {
		return false
	}
	if z.abbreviations[strings.ToLower(stem)] {
		return true
	}
	if !strings.Contains(stem, ".") {
		return false
	}
	for _, part := range strings.Split(stem, ".") {
		if part == "" || utf8.RuneCountInString(part) > 3 {
			return false
		}
		for _, r := range part {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}
	return true
}

func isPunct(tok string) bool {
	for _, r := range tok {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return tok != ""
}
