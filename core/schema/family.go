// Package schema interprets annotated learner documents. One Walker serves
// both markup families; what each tag means is data in a Table.
package schema

import (
	"strings"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/xml"
)

// Family selects a markup vocabulary.
type Family int

const (
	// Leonide is the paragraph / error-annotation family (tran_* and
	// orth_error tags, one unit per paragraph).
	Leonide Family = iota + 1
	// Kolipsi is the transcription / correction-annotation family (error,
	// originalForm, targetForm, correction, ...; one unit per exercise).
	Kolipsi
)

// String returns the lower-case family name.
func (f Family) String() string {
	switch f {
	case Leonide:
		return "leonide"
	case Kolipsi:
		return "kolipsi"
	default:
		return "unknown"
	}
}

// ParseFamily parses a family name, case-insensitively.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "leonide", "a":
		return Leonide, nil
	case "kolipsi", "b":
		return Kolipsi, nil
	}
	return 0, cerrors.NewUnsupported("schema family", name)
}

// Table returns the family's tag semantics.
func (f Family) Table() *Table {
	switch f {
	case Leonide:
		return leonideTable
	case Kolipsi:
		return kolipsiTable
	}
	return nil
}

// Units returns the elements a document is walked by, in document order.
//
// Leonide documents yield every paragraph; none is not an error. Kolipsi
// documents must have a body, which is split into exercises when it has any.
func (f Family) Units(doc *xml.Document) ([]*xml.Element, error) {
	switch f {
	case Leonide:
		return doc.FindAll("paragraph"), nil
	case Kolipsi:
		body, err := doc.First("body")
		if err != nil {
			return nil, err
		}
		if body == nil {
			return nil, cerrors.NewNotFound("body element", "")
		}
		if exercises := body.FindAll("exercise"); len(exercises) > 0 {
			return exercises, nil
		}
		return []*xml.Element{body}, nil
	}
	return nil, cerrors.NewUnsupported("schema family", f.String())
}
