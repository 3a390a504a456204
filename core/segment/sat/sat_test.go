package sat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// Set CORPUSPAIRS_SAT_MODEL and CORPUSPAIRS_SAT_TOKENIZER to run the model tests.
func modelPaths(t *testing.T) (string, string) {
	t.Helper()
	model, tok := os.Getenv("CORPUSPAIRS_SAT_MODEL"), os.Getenv("CORPUSPAIRS_SAT_TOKENIZER")
	if model == "" || tok == "" {
		t.Skip("Skipping: CORPUSPAIRS_SAT_MODEL / CORPUSPAIRS_SAT_TOKENIZER not set")
	}
	return model, tok
}

func TestNew_ModelNotFound(t *testing.T) {
	_, err := New("nonexistent/model.onnx", "nonexistent/tokenizer.json")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got: %v", err)
	}
}

func TestNew_TokenizerNotFound(t *testing.T) {
	model := filepath.Join(t.TempDir(), "model.onnx")
	if err := os.WriteFile(model, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(model, "nonexistent/tokenizer.json")
	if !errors.Is(err, ErrTokenizerFailed) {
		t.Errorf("expected ErrTokenizerFailed, got: %v", err)
	}
}

func TestSplitAt(t *testing.T) {
	tests := []struct {
		name string
		text string
		ends []int
		want []string
	}{
		{"no boundaries", "Ein Satz", nil, []string{"Ein Satz"}},
		{"two sentences", "Eins. Zwei.", []int{5}, []string{"Eins.", " Zwei."}},
		{"boundary at end", "Eins.", []int{5}, []string{"Eins."}},
		{"out of order skipped", "Eins. Zwei.", []int{5, 3, 11}, []string{"Eins.", " Zwei."}},
		{"past the end skipped", "abc", []int{10}, []string{"abc"}},
		{"mid-rune moves forward", "Größe", []int{3}, []string{"Grö", "ße"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitAt(tt.text, tt.ends); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitAt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWindowed(t *testing.T) {
	var calls [][2]int
	infer := func(lo, hi int) ([]float32, error) {
		calls = append(calls, [2]int{lo, hi})
		out := make([]float32, hi-lo)
		for i := range out {
			out[i] = float32(len(calls))
		}
		return out, nil
	}

	logits, err := windowed(1000, infer)
	if err != nil {
		t.Fatalf("windowed() error = %v", err)
	}
	want := [][2]int{{0, 512}, {448, 960}, {896, 1000}}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("windows = %v, want %v", calls, want)
	}
	if len(logits) != 1000 {
		t.Fatalf("len(logits) = %d", len(logits))
	}
	if logits[0] != 1 || logits[500] != 1.5 || logits[999] != 3 {
		t.Errorf("logits = %v %v %v", logits[0], logits[500], logits[999])
	}

	calls = nil
	if _, err := windowed(10, infer); err != nil || len(calls) != 1 {
		t.Errorf("short input should be one window, got %v (%v)", calls, err)
	}

	boom := errors.New("boom")
	if _, err := windowed(2000, func(int, int) ([]float32, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("error not propagated: %v", err)
	}
}

func TestSigmoid(t *testing.T) {
	if sigmoid(0) != 0.5 {
		t.Errorf("sigmoid(0) = %v", sigmoid(0))
	}
	if sigmoid(10) < 0.99 || sigmoid(-10) > 0.01 {
		t.Error("sigmoid saturation wrong")
	}
}

func TestModelSentences(t *testing.T) {
	model, tok := modelPaths(t)

	m, err := New(model, tok, WithPoolSize(1), WithLibrary(os.Getenv("CORPUSPAIRS_ORT_LIB")))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = m.Close() }()

	sents, err := m.Sentences(context.Background(), "Ich gehe heute ins Kino. Morgen bleibe ich zu Hause.")
	if err != nil {
		t.Fatalf("Sentences() failed: %v", err)
	}
	if len(sents) != 2 {
		t.Errorf("Sentences() = %q, want 2 sentences", sents)
	}
}
