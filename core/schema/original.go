package schema

import (
	"strings"

	"github.com/FocuswithJustin/corpuspairs/core/xml"
)

// originalFormText renders what the learner wrote inside an originalForm.
// An overwrite contributes only its final letters; a palimpsest contributes
// all of its text. Whitespace runs collapse to a single space.
func originalFormText(e *xml.Element) string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	writeOriginal(&b, e)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeOriginal(b *strings.Builder, e *xml.Element) {
	switch e.Tag {
	case "overwrite":
		b.WriteString(e.Text)
		if over := e.Child("over"); over != nil {
			b.WriteString(over.Text)
		}
		return
	case "palimpsest":
		b.WriteString(e.InnerText())
		return
	}

	b.WriteString(e.Text)
	for _, c := range e.Children {
		writeOriginal(b, c)
		b.WriteString(c.Tail)
	}
}
