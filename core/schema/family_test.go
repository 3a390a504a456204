package schema

import (
	"errors"
	"testing"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/xml"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in      string
		want    Family
		wantErr bool
	}{
		{"leonide", Leonide, false},
		{"LEONIDE", Leonide, false},
		{" Kolipsi ", Kolipsi, false},
		{"b", Kolipsi, false},
		{"tei", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFamily(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFamily(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFamily(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if err != nil && !errors.Is(err, cerrors.ErrUnsupported) {
			t.Errorf("ParseFamily(%q) error should be ErrUnsupported: %v", tt.in, err)
		}
	}
	if Leonide.String() != "leonide" || Family(9).String() != "unknown" {
		t.Error("unexpected String()")
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		family Family
		tag    string
		want   Action
	}{
		{Kolipsi, "error", ActErrorPair},
		{Kolipsi, "e", ActErrorPair},
		{Kolipsi, "par", ActBreak},
		{Kolipsi, "tran_symbol", ActDefault},
		{Kolipsi, "something", ActDefault},
		{Leonide, "tran_symbol", ActIgnore},
		{Leonide, "pre_tran_foreign_word_post", ActForeign},
		{Leonide, "orth_error", ActOrthError},
		{Leonide, "div", ActDiv},
		{Leonide, "error", ActDefault},
	}
	for _, tt := range tests {
		if got := tt.family.Table().Lookup(tt.tag).Action; got != tt.want {
			t.Errorf("%v.Lookup(%q) = %v, want %v", tt.family, tt.tag, got, tt.want)
		}
	}
}

func TestUnits(t *testing.T) {
	parse := func(s string) *xml.Document {
		doc, err := xml.Parse([]byte(s))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		return doc
	}

	t.Run("leonide paragraphs", func(t *testing.T) {
		units, err := Leonide.Units(parse(`<text xmlns:t="http://www.eurac.edu/transcanno"><t:paragraph>a</t:paragraph><t:paragraph>b</t:paragraph></text>`))
		if err != nil || len(units) != 2 || units[1].Text != "b" {
			t.Errorf("Units = %+v, %v", units, err)
		}
	})

	t.Run("leonide without paragraphs", func(t *testing.T) {
		units, err := Leonide.Units(parse(`<text/>`))
		if err != nil || len(units) != 0 {
			t.Errorf("Units = %+v, %v", units, err)
		}
	})

	t.Run("kolipsi exercises", func(t *testing.T) {
		units, err := Kolipsi.Units(parse(`<doc><body><exercise>1</exercise><exercise>2</exercise></body></doc>`))
		if err != nil || len(units) != 2 || units[0].Tag != "exercise" {
			t.Errorf("Units = %+v, %v", units, err)
		}
	})

	t.Run("kolipsi body without exercises", func(t *testing.T) {
		units, err := Kolipsi.Units(parse(`<doc xmlns:k="http://www.eurac.edu/kolipsi"><k:body>text</k:body></doc>`))
		if err != nil || len(units) != 1 || units[0].Tag != "body" {
			t.Errorf("Units = %+v, %v", units, err)
		}
	})

	t.Run("kolipsi without body", func(t *testing.T) {
		_, err := Kolipsi.Units(parse(`<doc><head/></doc>`))
		if !errors.Is(err, cerrors.ErrNotFound) {
			t.Errorf("Units error = %v, want ErrNotFound", err)
		}
	})
}
