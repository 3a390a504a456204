// Package textbuf implements the whitespace-aware text accumulator used by the
// tag interpreter. A Stream is an ordered list of fragments (text, space or a
// hard sentence break) plus a side channel of foreign-word spans.
//
// The interpreter owns two streams per annotated unit, one for the learner's
// original text and one for the corrected text, and writes them in lockstep.
package textbuf

import (
	"regexp"
	"strings"
	"unicode"
)

// BreakMarker is how a hard sentence break renders in Text output.
const BreakMarker = "<SENTBREAK>"

type kind uint8

const (
	kindText kind = iota
	kindSpace
	kindBreak
)

type fragment struct {
	kind kind
	text string
}

// anchor reports whether f is an empty lockstep placeholder.
func (f fragment) anchor() bool {
	return f.kind == kindText && f.text == ""
}

func (f fragment) raw() string {
	switch f.kind {
	case kindSpace:
		return " "
	case kindBreak:
		return " " + BreakMarker + " "
	default:
		return f.text
	}
}

// span is a half-open fragment index range.
type span struct {
	start, end int
}

var (
	unreadablePattern = regexp.MustCompile(`(?i)unreadable`)
	spaceRun          = regexp.MustCompile(` +`)
	spaceBeforePunct  = regexp.MustCompile(`\s+([.:;!?,])`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// Stream accumulates text fragments. The zero value is ready to use.
type Stream struct {
	frags   []fragment
	foreign []span
	open    []int
}

// Chunk is the text between two hard breaks.
type Chunk struct {
	Text string
	// Foreign is set when a foreign-word span with text overlaps the chunk.
	Foreign bool
}

// Clean removes the literal "unreadable" placeholder and trims text. It is
// what AddText and AddEdit write.
func Clean(text string) string {
	return strings.TrimSpace(unreadablePattern.ReplaceAllString(text, ""))
}

// last returns the last fragment that is not an empty anchor.
func (s *Stream) last() (fragment, bool) {
	for i := len(s.frags) - 1; i >= 0; i-- {
		if !s.frags[i].anchor() {
			return s.frags[i], true
		}
	}
	return fragment{}, false
}

// AddText appends text. The literal "unreadable" placeholder is removed and
// the text is trimmed; empty results are ignored. With merge the fragment
// abuts the previous one, otherwise a single space separates them unless the
// stream already ends in a space.
func (s *Stream) AddText(text string, merge bool) {
	text = Clean(text)
	if text == "" {
		return
	}
	if _, ok := s.last(); ok && !merge && !s.EndsWithSpace() {
		s.frags = append(s.frags, fragment{kind: kindSpace})
	}
	s.frags = append(s.frags, fragment{kind: kindText, text: text})
}

// AddEdit writes one side of a correction as exactly one fragment, so both
// sides of an edit grow by the same count. A separating space, when one is
// needed, is folded into the fragment. An empty text leaves an empty anchor.
func (s *Stream) AddEdit(text string, merge bool) {
	text = Clean(text)
	if text != "" && !merge {
		if _, ok := s.last(); ok && !s.EndsWithSpace() {
			text = " " + text
		}
	}
	s.frags = append(s.frags, fragment{kind: kindText, text: text})
}

// AddSpace appends a space unless the stream is empty or already ends in one.
func (s *Stream) AddSpace() {
	if s.NeedsSpace() {
		s.frags = append(s.frags, fragment{kind: kindSpace})
	}
}

// NeedsSpace reports whether AddSpace would write a fragment.
func (s *Stream) NeedsSpace() bool {
	_, ok := s.last()
	return ok && !s.EndsWithSpace()
}

// Pad appends a space fragment even when the stream already ends in one.
// Rendering collapses the run.
func (s *Stream) Pad() {
	s.frags = append(s.frags, fragment{kind: kindSpace})
}

// AddBreak appends a hard sentence break. Breaks bypass spacing rules and
// are never merged with neighbouring text.
func (s *Stream) AddBreak() {
	s.frags = append(s.frags, fragment{kind: kindBreak})
}

// BeginForeign opens a foreign-word span at the current position.
func (s *Stream) BeginForeign() {
	s.open = append(s.open, len(s.frags))
}

// EndForeign closes the innermost open foreign-word span.
func (s *Stream) EndForeign() {
	if len(s.open) == 0 {
		return
	}
	start := s.open[len(s.open)-1]
	s.open = s.open[:len(s.open)-1]
	s.foreign = append(s.foreign, span{start: start, end: len(s.frags)})
}

// Len returns the number of fragments written, anchors included.
func (s *Stream) Len() int {
	return len(s.frags)
}

// EndsWithSpace reports whether the last fragment is a space or a break.
func (s *Stream) EndsWithSpace() bool {
	f, ok := s.last()
	if !ok {
		return false
	}
	return f.kind != kindText || strings.HasSuffix(f.text, " ")
}

// EndsSentence reports whether the text so far ends with . ! or ?
// A trailing hard break does not count.
func (s *Stream) EndsSentence() bool {
	for i := len(s.frags) - 1; i >= 0; i-- {
		f := s.frags[i]
		switch {
		case f.anchor(), f.kind == kindSpace:
			continue
		case f.kind == kindBreak:
			return false
		}
		t := strings.TrimRightFunc(f.text, unicode.IsSpace)
		if t == "" {
			continue
		}
		switch t[len(t)-1] {
		case '.', '!', '?':
			return true
		}
		return false
	}
	return false
}

// Last returns the raw text of the last fragment: " " for a space, the
// padded marker for a break, "" for an empty stream.
func (s *Stream) Last() string {
	f, _ := s.last()
	return f.raw()
}

// Recent joins the raw text of the last n fragments with spaces. Anchors
// are skipped and a run of spaces counts once.
func (s *Stream) Recent(n int) string {
	var parts []string
	for i := len(s.frags) - 1; i >= 0 && len(parts) < n; i-- {
		f := s.frags[i]
		if f.anchor() {
			continue
		}
		if f.kind == kindSpace && len(parts) > 0 && parts[len(parts)-1] == " " {
			continue
		}
		parts = append(parts, f.raw())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " ")
}

// Text renders the stream: runs of spaces collapse to one and whitespace
// before . : ; ! ? , is dropped. It does not modify the stream.
func (s *Stream) Text() string {
	return render(s.frags)
}

// Chunks splits the stream on hard breaks. Empty chunks are dropped.
func (s *Stream) Chunks() []Chunk {
	var chunks []Chunk
	start := 0
	for i := 0; i <= len(s.frags); i++ {
		if i < len(s.frags) && s.frags[i].kind != kindBreak {
			continue
		}
		text := whitespaceRun.ReplaceAllString(render(s.frags[start:i]), " ")
		text = strings.TrimSpace(text)
		if text != "" {
			chunks = append(chunks, Chunk{Text: text, Foreign: s.foreignWithin(start, i)})
		}
		start = i + 1
	}
	return chunks
}

// foreignWithin reports whether a foreign span contributes text inside [from, to).
func (s *Stream) foreignWithin(from, to int) bool {
	for _, sp := range s.foreign {
		lo, hi := max(sp.start, from), min(sp.end, to)
		for i := lo; i < hi; i++ {
			if f := s.frags[i]; f.kind == kindText && f.text != "" {
				return true
			}
		}
	}
	return false
}

func render(frags []fragment) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.raw())
	}
	text := spaceRun.ReplaceAllString(b.String(), " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
