package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/corpuspairs/internal/archive"
)

const testDoc = `<?xml version="1.0" encoding="UTF-8"?>
<document>
  <body>
    <exercise>Ich wohne in einem <error><originalForm>Hous</originalForm><targetForm>Haus</targetForm></error> mit Garten.<par/>Mein Bruder ist sehr nett.</exercise>
  </body>
</document>`

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(append([]string{"--log-level", "error"}, args...), &out); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
	return out.String()
}

func TestExtract(t *testing.T) {
	base := t.TempDir()
	createTestFile(t, base, "k/a.xml", testDoc)
	createTestFile(t, base, "k/b.xml", `<document><body><exercise>kaputt</body>`)
	out := filepath.Join(t.TempDir(), "out")
	bundle := filepath.Join(t.TempDir(), "out.tar.xz")

	got := runCLI(t, "extract",
		"--base", base,
		"--corpus", "K(kolipsi, L1)=k",
		"--output", out,
		"--format", "both",
		"--bundle", bundle,
		"--stats")

	for _, want := range []string{"1 documents, 2 pairs, 1 failed", "Skipped documents:", "b.xml", "WHOLE_CORPUS", "Bundle: "} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	csv, err := os.ReadFile(filepath.Join(out, "all_corpora.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(csv), "K,L1,a.xml,1,1,") {
		t.Errorf("csv =\n%s", csv)
	}
	if _, err := os.Stat(filepath.Join(out, "K_full.norm")); err != nil {
		t.Errorf("norm file: %v", err)
	}

	entries, err := archive.ReadEntries(bundle, func(string) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if !strings.Contains(strings.Join(names, " "), "out/all_corpora.csv") {
		t.Errorf("bundle entries = %v", names)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := [][]string{
		{"extract", "--corpora", "Nope"},
		{"extract", "--corpus", "broken"},
		{"extract", "--format", "pdf"},
		{"extract", "--segmenter", "nltk"},
		{"extract", "--bundle", "out.zip"},
	}
	for _, args := range tests {
		var out bytes.Buffer
		args = append(args, "--output", t.TempDir())
		if err := run(args, &out); err == nil {
			t.Errorf("run(%v) should fail", args)
		}
	}
}

func TestInspect(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "doc.xml", testDoc)

	got := runCLI(t, "inspect", "--schema", "kolipsi", path)
	for _, want := range []string{"Unit 1 (corrected: true)", "Hous", "2 pairs after cleaning"} {
		if !strings.Contains(got, want) {
			t.Errorf("inspect output missing %q:\n%s", want, got)
		}
	}

	got = runCLI(t, "inspect", "--schema", "kolipsi", "--json", path)
	var report struct{ Pairs []struct{ Src, Tgt string } }
	if err := json.Unmarshal([]byte(got), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Pairs) != 2 || report.Pairs[0].Tgt != "Ich wohne in einem Haus mit Garten." {
		t.Errorf("report pairs = %+v", report.Pairs)
	}

	var out bytes.Buffer
	if err := run([]string{"inspect", "--schema", "tei", path}, &out); err == nil {
		t.Error("inspect with an unknown schema should fail")
	}
}

func TestStats(t *testing.T) {
	csv := createTestFile(t, t.TempDir(), "all_corpora.csv",
		"corpus,lang_prof,xml_file,file_id,sent_num,src,tgt,corrected\n"+
			"K,L1,a.xml,1,1,Er geht heim.,Er ging heim.,True\n"+
			"K,L1,a.xml,1,2,Wir lesen.,Wir lesen.,False\n")

	got := runCLI(t, "stats", csv)
	if !strings.Contains(got, "WHOLE_CORPUS") || !strings.Contains(got, "50.00%") {
		t.Errorf("stats output:\n%s", got)
	}

	got = runCLI(t, "stats", "--corrected-only", "--json", csv)
	var rows []struct {
		Corpus string `json:"corpus"`
		Pairs  int    `json:"n_sentence_pairs"`
	}
	if err := json.Unmarshal([]byte(got), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Corpus != "WHOLE_CORPUS" || rows[1].Pairs != 1 {
		t.Errorf("stats rows = %+v", rows)
	}
}

func TestConfigDump(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "corpuspairs.yaml", "workers: 3\nformats: [csv]\n")

	got := runCLI(t, "--config", path, "config-dump")
	if !strings.Contains(got, "workers: 3") || !strings.Contains(got, "Kolipsi_2") {
		t.Errorf("config-dump:\n%s", got)
	}

	got = runCLI(t, "config-dump", "--format", "toml")
	if !strings.Contains(got, "base_dir = '.'") && !strings.Contains(got, `base_dir = "."`) {
		t.Errorf("config-dump toml:\n%s", got)
	}
}

func TestVersion(t *testing.T) {
	got := runCLI(t, "version")
	for _, want := range []string{"corpuspairs version " + version, "sqlite driver", "sentencizer"} {
		if !strings.Contains(got, want) {
			t.Errorf("version output missing %q:\n%s", want, got)
		}
	}
}
