package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"

	cerrors "github.com/FocuswithJustin/corpuspairs/core/errors"
	"github.com/FocuswithJustin/corpuspairs/core/pairs"
	"github.com/FocuswithJustin/corpuspairs/core/schema"
	"github.com/FocuswithJustin/corpuspairs/core/segment"
)

const kolipsiDoc = `<?xml version="1.0" encoding="UTF-8"?>
<document>
  <head><title>Brief</title></head>
  <body>
    <exercise>Ich wohne in einem <error><originalForm>Hous</originalForm><targetForm>Haus</targetForm></error> mit Garten.<par/>Mein Bruder ist sehr nett.</exercise>
    <exercise>Mein Bruder ist sehr nett.</exercise>
  </body>
</document>`

func TestExtractKolipsi(t *testing.T) {
	got, err := Extract(context.Background(), []byte(kolipsiDoc), schema.Kolipsi)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []pairs.SentencePair{
		{Src: "Ich wohne in einem Hous mit Garten.", Tgt: "Ich wohne in einem Haus mit Garten.", HasCorrection: true},
		{Src: "Mein Bruder ist sehr nett.", Tgt: "Mein Bruder ist sehr nett."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %+v, want %+v", got, want)
	}
}

func TestExtractLeonide(t *testing.T) {
	doc := `<text xmlns:t="http://www.eurac.edu/transcanno">
<t:paragraph>Ich <t:orth_error orth_error_target="habe">habbe</t:orth_error> heute Hunger. Er sagt <t:tran_foreign_word>ciao</t:tran_foreign_word> zu mir.</t:paragraph>
<t:paragraph>Wir gehen jetzt essen.</t:paragraph>
</text>`

	got, err := Extract(context.Background(), []byte(doc), schema.Leonide)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	// The first paragraph contains a foreign word, so both of its pairs go.
	want := []pairs.SentencePair{
		{Src: "Wir gehen jetzt essen.", Tgt: "Wir gehen jetzt essen."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %+v, want %+v", got, want)
	}
}

func TestExtractPunkt(t *testing.T) {
	lazy, err := segment.Open(segment.Config{Backend: segment.BackendPunkt})
	if err != nil {
		t.Fatal(err)
	}
	defer lazy.Close()

	got, err := New(lazy).Extract(context.Background(), []byte(kolipsiDoc), schema.Kolipsi)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 2 || got[0].Tgt != "Ich wohne in einem Haus mit Garten." {
		t.Errorf("Extract() = %+v", got)
	}
}

func TestLeonideUnitsInDocumentOrder(t *testing.T) {
	doc := `<text><paragraph>Das ist der erste Satz.<div><paragraph>Das ist der zweite Satz.</paragraph></div></paragraph><paragraph>Das ist der dritte Satz.</paragraph></text>`

	r, err := New(segment.NewSentencizer()).Inspect(context.Background(), []byte(doc), schema.Leonide)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Das ist der erste Satz. Das ist der zweite Satz.",
		"Das ist der zweite Satz.",
		"Das ist der dritte Satz.",
	}
	var got []string
	for _, u := range r.Units {
		got = append(got, u.Source)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unit sources = %q, want %q", got, want)
	}
}

func TestExtractErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Extract(ctx, []byte(`<body><exercise>kaputt</body>`), schema.Kolipsi)
	var perr *cerrors.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("malformed XML: error = %v, want ParseError", err)
	}

	if _, err := Extract(ctx, []byte(`<document><head/></document>`), schema.Kolipsi); !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("missing body: error = %v, want ErrNotFound", err)
	}

	if _, err := Extract(ctx, []byte(kolipsiDoc), schema.Family(0)); !errors.Is(err, cerrors.ErrUnsupported) {
		t.Errorf("unknown family: error = %v, want ErrUnsupported", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Extract(canceled, []byte(kolipsiDoc), schema.Kolipsi); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: error = %v", err)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	got, err := Extract(context.Background(), []byte(`<text/>`), schema.Leonide)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Extract() = %+v, want no pairs", got)
	}
}

func TestDocument(t *testing.T) {
	x := New(segment.NewSentencizer())

	got, err := x.Document(context.Background(), []byte(`<body>`), schema.Kolipsi)
	if err == nil {
		t.Error("Document() should report the parse failure")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Document() = %#v, want empty non-nil slice", got)
	}

	got, err = x.Document(context.Background(), []byte(`<text/>`), schema.Leonide)
	if err != nil || got == nil {
		t.Errorf("Document() = %#v, %v", got, err)
	}
}

// TestDocumentRecoversPanics verifies a misbehaving backend cannot take the
// batch down with it.
func TestDocumentRecoversPanics(t *testing.T) {
	x := New(segment.BoundaryFunc(func(context.Context, string) ([]string, error) {
		panic("index out of range")
	}))

	got, err := x.Document(context.Background(), []byte(kolipsiDoc), schema.Kolipsi)
	if err == nil {
		t.Fatal("Document() should report the panic")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Document() = %#v, want empty non-nil slice", got)
	}
}

func TestInspect(t *testing.T) {
	doc := `<document><body><exercise><error><originalForm>Hous</originalForm><targetForm>Haus</targetForm></error></exercise></body></document>`

	r, err := New(segment.NewSentencizer()).Inspect(context.Background(), []byte(doc), schema.Kolipsi)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if len(r.Units) != 1 {
		t.Fatalf("Inspect() units = %d, want 1", len(r.Units))
	}
	u := r.Units[0]
	if u.Source != "Hous" || u.Target != "Haus" || !u.Corrected {
		t.Errorf("unit = %+v", u)
	}
	if len(u.Chunks) != 1 {
		t.Fatalf("unit chunks = %d, want 1", len(u.Chunks))
	}
	want := []pairs.SentencePair{{Src: "Hous", Tgt: "Haus", HasCorrection: true}}
	if !reflect.DeepEqual(u.Chunks[0].Pairs, want) {
		t.Errorf("aligned pairs = %+v, want %+v", u.Chunks[0].Pairs, want)
	}
	// one-word sentences do not survive cleaning
	if len(r.Pairs) != 0 {
		t.Errorf("cleaned pairs = %+v, want none", r.Pairs)
	}
}

func TestInspectChunks(t *testing.T) {
	doc := `<document><body><exercise>Das ist gut.<par/>Das auch.</exercise></body></document>`

	r, err := New(segment.NewSentencizer()).Inspect(context.Background(), []byte(doc), schema.Kolipsi)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	chunks := r.Units[0].Chunks
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	for i, c := range chunks {
		if c.Source.Text == "" || c.Source.Text != c.Target.Text {
			t.Errorf("chunk %d = %+v", i, c)
		}
	}
}

func TestNormalize(t *testing.T) {
	// "Grüße" with a decomposed u-umlaut, a BOM and a stray invalid byte.
	in := []byte("\xef\xbb\xbf<text><paragraph>Viele Gru\u0308\xffße an alle.</paragraph></text>")

	got, err := Extract(context.Background(), in, schema.Leonide)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 || got[0].Src != "Viele Grüße an alle." {
		t.Errorf("Extract() = %+v", got)
	}
}
