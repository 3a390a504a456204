package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger
	return buf.String()
}

// captureLogOutputWithInit captures output through InitLoggerTo, so the
// ReplaceAttr logic is exercised.
func captureLogOutputWithInit(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	InitLoggerTo(&buf, level, format)
	f()
	InitLogger(LevelInfo, FormatText)
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{
			name:   "Debug level JSON format",
			level:  LevelDebug,
			format: FormatJSON,
		},
		{
			name:   "Warn level JSON format",
			level:  LevelWarn,
			format: FormatJSON,
		},
		{
			name:   "Info level Text format",
			level:  LevelInfo,
			format: FormatText,
		},
		{
			name:   "Default level (invalid value)",
			level:  Level(999),
			format: FormatJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}
	InitLogger(LevelInfo, FormatText)
}

func TestParseLevelAndFormat(t *testing.T) {
	levels := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range levels {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if ParseFormat("JSON") != FormatJSON {
		t.Error("ParseFormat(JSON) should be FormatJSON")
	}
	if ParseFormat("text") != FormatText || ParseFormat("") != FormatText {
		t.Error("ParseFormat should default to FormatText")
	}
}

func TestLevelFiltering(t *testing.T) {
	output := captureLogOutputWithInit(LevelWarn, FormatJSON, func() {
		Info("quiet")
		Warn("loud")
	})
	if strings.Contains(output, "quiet") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(output, "loud") {
		t.Error("warn message should be logged")
	}
}

func TestRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")
	if got := GetRunID(ctx); got != "run-123" {
		t.Errorf("GetRunID() = %q", got)
	}
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID(empty) = %q", got)
	}
	wrongType := context.WithValue(context.Background(), RunIDKey, 12345)
	if got := GetRunID(wrongType); got != "" {
		t.Errorf("GetRunID(wrong type) = %q", got)
	}
}

func TestLoggingFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"Debug", func() { Debug("debug message", "key", "value") }},
		{"Info", func() { Info("info message", "key", "value") }},
		{"Warn", func() { Warn("warning message", "key", "value") }},
		{"Error", func() { Error("error message", "key", "value") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if output := captureLogOutput(tt.fn); output == "" {
				t.Error("Expected log output, got empty string")
			}
		})
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	ctx := WithRunID(context.Background(), "test-run-id")

	tests := []struct {
		name string
		fn   func()
	}{
		{"DebugContext", func() { DebugContext(ctx, "debug message") }},
		{"InfoContext", func() { InfoContext(ctx, "info message") }},
		{"WarnContext", func() { WarnContext(ctx, "warning message") }},
		{"ErrorContext", func() { ErrorContext(ctx, "error message") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			if !strings.Contains(output, "test-run-id") {
				t.Errorf("Expected output to contain run ID, got %q", output)
			}
		})
	}
}

func TestDomainHelpers(t *testing.T) {
	ctx := WithRunID(context.Background(), "r1")
	boom := errors.New("boom")

	tests := []struct {
		name string
		fn   func()
		want []string
	}{
		{
			name: "Corpus",
			fn:   func() { Corpus(ctx, "LEONIDE", "leonide", "L2", 12) },
			want: []string{`"msg":"corpus"`, `"corpus":"LEONIDE"`, `"files":12`, `"run_id":"r1"`},
		},
		{
			name: "CorpusSkipped",
			fn:   func() { CorpusSkipped(ctx, "Kolipsi_2", "/missing", boom) },
			want: []string{`"msg":"corpus_skipped"`, `"path":"/missing"`, `"error":"boom"`},
		},
		{
			name: "Document",
			fn:   func() { Document(ctx, "LEONIDE", "a.xml", 3, 7, 1500*time.Millisecond) },
			want: []string{`"msg":"document"`, `"file_id":3`, `"pairs":7`, `"duration_ms":1500`},
		},
		{
			name: "DocumentError",
			fn:   func() { DocumentError(ctx, "LEONIDE", "b.xml", boom, "size", 10) },
			want: []string{`"level":"ERROR"`, `"file":"b.xml"`, `"error":"boom"`, `"size":10`},
		},
		{
			name: "Output",
			fn:   func() { Output(ctx, "csv", "out/all_corpora.csv", 42) },
			want: []string{`"msg":"output"`, `"rows":42`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			for _, w := range tt.want {
				if !strings.Contains(output, w) {
					t.Errorf("output %q missing %s", output, w)
				}
			}
		})
	}
}

var rfc3339 = regexp.MustCompile(`"time":"\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d(Z|[+-]\d\d:\d\d)"`)

func TestReplaceAttrTimestamp(t *testing.T) {
	output := captureLogOutputWithInit(LevelInfo, FormatJSON, func() {
		Info("timestamp test")
	})

	if !strings.Contains(output, "timestamp test") {
		t.Error("Expected output to contain test message")
	}
	if !rfc3339.MatchString(output) {
		t.Errorf("Expected RFC3339 timestamp, got %q", output)
	}

	output = captureLogOutputWithInit(LevelInfo, FormatText, func() {
		Info("test message text", "key", "value")
	})
	if !strings.Contains(output, "key=value") {
		t.Errorf("Expected text output, got %q", output)
	}
}

func TestInit(t *testing.T) {
	if defaultLogger == nil {
		t.Error("Expected defaultLogger to be initialized by init()")
	}
	if RunIDKey != "run_id" {
		t.Errorf("Expected RunIDKey to be 'run_id', got '%s'", RunIDKey)
	}
}
