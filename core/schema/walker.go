package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FocuswithJustin/corpuspairs/core/textbuf"
	"github.com/FocuswithJustin/corpuspairs/core/xml"
)

// Result is what a walk reconstructs from one unit.
type Result struct {
	Source textbuf.Stream
	Target textbuf.Stream
	// Corrected is set when any correction-bearing rule applied.
	Corrected bool
}

// Walk interprets unit with t. The unit's own tail lies outside it and is
// not written.
func Walk(t *Table, unit *xml.Element) *Result {
	w := &walker{table: t, res: &Result{}}
	w.src, w.tgt = &w.res.Source, &w.res.Target
	if unit != nil {
		w.element(unit, false)
	}
	return w.res
}

type walker struct {
	table    *Table
	res      *Result
	src, tgt *textbuf.Stream
}

func (w *walker) element(e *xml.Element, withTail bool) {
	rule := w.table.Lookup(e.Tag)
	if rule.Corrects && rule.Action != ActInsertion {
		w.res.Corrected = true
	}

	switch rule.Action {
	case ActErrorPair:
		w.errorPair(e, true)
	case ActPalimpsest:
		w.palimpsest(e)
	case ActInsertion:
		w.insertion(e)
	case ActUnfold:
		w.firstReading(e, "unfoldedform")
	case ActAlternative:
		w.firstReading(e, "alternative")
	case ActStrikeover:
		w.addText(expansions(e), true)
	case ActOverwrite:
		if over := e.Child("over"); over != nil {
			w.addText(over.Text, true)
		}
	case ActForeign:
		w.src.BeginForeign()
		w.tgt.BeginForeign()
		w.addText(e.Text, false)
		w.children(e)
		w.src.EndForeign()
		w.tgt.EndForeign()
	case ActIgnore:
	case ActBreak:
		w.src.AddBreak()
		w.tgt.AddBreak()
	case ActSpace:
		w.addSpace()
	case ActOrthError:
		w.orthError(e)
	case ActRecase:
		w.src.AddEdit(e.Text, false)
		w.tgt.AddEdit(e.Attr(recaseTargetAttr), false)
	case ActDiv, ActSpaced:
		w.addSpace()
		w.content(e, rule)
	default:
		w.content(e, rule)
	}

	if withTail {
		w.tail(e.Tail, rule.Tail)
	}
}

func (w *walker) children(e *xml.Element) {
	for _, c := range e.Children {
		w.element(c, true)
	}
}

// content writes text, then children.
func (w *walker) content(e *xml.Element, rule Rule) {
	w.addText(e.Text, false)
	if rule.KeepTrailingSpace && hasTrailingSpace(e.Text) {
		w.addSpace()
	}
	w.children(e)
}

func (w *walker) tail(raw string, policy TailPolicy) {
	switch policy {
	case TailSpaced:
		w.addSpace()
		w.addText(raw, false)
	case TailSeparate:
		if hasLeadingSpace(raw) {
			w.addSpace()
		}
		w.addText(raw, false)
	default:
		if hasLeadingSpace(raw) {
			w.addSpace()
		}
		w.addText(raw, true)
	}
}

// errorPair writes an originalForm/targetForm pair. With checkBreak a hard
// break is written first when the edit changes the case of a sentence-initial
// word.
func (w *walker) errorPair(e *xml.Element, checkBreak bool) {
	orig := originalFormText(e.Child("originalform"))
	var target string
	if tf := e.Child("targetform"); tf != nil {
		target = strings.TrimSpace(tf.InnerText())
	}

	if checkBreak && orig != "" && target != "" &&
		firstIsLower(orig) != firstIsLower(target) && w.src.EndsSentence() {
		w.src.AddBreak()
		w.tgt.AddBreak()
	}
	w.src.AddEdit(orig, false)
	w.tgt.AddEdit(target, false)
}

func (w *walker) palimpsest(e *xml.Element) {
	var hasErrors, hasStrikeover bool
	for _, c := range e.Children {
		switch {
		case c.Tag == "strikeover":
			hasStrikeover = true
		case w.table.Lookup(c.Tag).Action == ActErrorPair:
			hasErrors = true
		}
	}

	switch {
	case hasStrikeover:
		w.addText(e.Text, false)
		w.children(e)
	case !hasErrors:
		// A rewrite without errors continues the word it sits in.
		w.addText(e.Text, true)
		w.children(e)
	default:
		w.addText(e.Text, false)
		for _, c := range e.Children {
			if w.table.Lookup(c.Tag).Action != ActErrorPair {
				w.element(c, true)
				continue
			}
			w.res.Corrected = true
			w.errorPair(c, false)
			w.tail(c.Tail, TailJoin)
		}
	}
}

// insertion handles a correction. Deletion plus insertion is the writer
// replacing a word: both sides get the insertion. An insertion alone is an
// added word: only the target gets it. A deletion alone writes nothing.
func (w *walker) insertion(e *xml.Element) {
	var deleted, inserted string
	for _, c := range e.Children {
		switch c.Tag {
		case "deletion":
			deleted = strings.TrimSpace(c.Text)
		case "insertion":
			inserted = strings.TrimSpace(c.Text)
			// Markup nested in the insertion is written as it is met,
			// ahead of the inserted text.
			w.children(c)
		}
	}

	switch {
	case deleted != "" && inserted != "":
		w.addText(inserted, true)
	case inserted != "":
		if wordBefore(w.src.Last(), unicode.IsLower) {
			w.addSpace()
		}
		w.src.AddEdit("", true)
		w.tgt.AddEdit(inserted, true)
		w.res.Corrected = true
	}
}

// firstReading writes the text of the first child with tag, for unfolded
// abbreviations and ambiguous readings.
func (w *walker) firstReading(e *xml.Element, tag string) {
	c := e.Child(tag)
	if c == nil {
		return
	}
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return
	}
	if wordBefore(w.src.Last(), unicode.IsLetter) {
		w.addSpace()
	}
	w.addText(text, false)
}

func (w *walker) orthError(e *xml.Element) {
	w.addSpace()

	target := strings.TrimSpace(e.Attr(orthTargetAttr))
	if target != "" && strings.Contains(w.tgt.Recent(3), target) {
		target = ""
	}
	w.tgt.AddEdit(target, false)
	w.src.AddEdit(e.InnerText(), false)

	w.addSpace()
}

// addText writes text to both sides. A separating space is padded onto both
// when either side needs one, so the fragment counts stay equal.
func (w *walker) addText(text string, merge bool) {
	text = textbuf.Clean(text)
	if text == "" {
		return
	}
	if !merge {
		w.addSpace()
	}
	w.src.AddText(text, merge)
	w.tgt.AddText(text, merge)
}

func (w *walker) addSpace() {
	if w.src.NeedsSpace() || w.tgt.NeedsSpace() {
		w.src.Pad()
		w.tgt.Pad()
	}
}

func expansions(e *xml.Element) string {
	var b strings.Builder
	for _, c := range e.Children {
		if c.Tag == "expansion" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

func hasLeadingSpace(raw string) bool {
	r, _ := utf8.DecodeRuneInString(raw)
	return raw != "" && unicode.IsSpace(r)
}

func hasTrailingSpace(raw string) bool {
	r, _ := utf8.DecodeLastRuneInString(raw)
	return raw != "" && unicode.IsSpace(r)
}

func firstIsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

// wordBefore reports whether last ends in a rune matching class and its last
// word is longer than two characters.
func wordBefore(last string, class func(rune) bool) bool {
	r, _ := utf8.DecodeLastRuneInString(last)
	if last == "" || !class(r) {
		return false
	}
	words := strings.Fields(last)
	return len(words) > 0 && utf8.RuneCountInString(words[len(words)-1]) > 2
}
