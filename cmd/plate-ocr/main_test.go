package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/plate-ocr/internal/plate"
)

const storedResults = `
- id: a
  corners: [{x: 80, y: 40}, {x: 120, y: 40}, {x: 120, y: 60}, {x: 80, y: 60}]
  candidates:
    - {text: ABC128, confidence: 90}
    - {text: ABC123, confidence: 80, matches_template: true}
- id: b
  corners: [{x: 82, y: 41}, {x: 122, y: 41}, {x: 122, y: 61}, {x: 82, y: 61}]
  candidates:
    - {text: ABC123, confidence: 80, matches_template: true}
`

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	os.WriteFile(path, []byte(storedResults), 0644)

	results, err := loadResults(path)
	if err != nil {
		t.Fatalf("loadResults failed: %v", err)
	}
	if len(results) != 2 || results[0].Corners[2].X != 120 || !results[1].Candidates[0].MatchesTemplate {
		t.Errorf("unexpected results: %+v", results)
	}

	if _, err := loadResults(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadResults_ReadOutput(t *testing.T) {
	// read prints JSON; aggregate must accept that file as written.
	want := []plate.AttemptResult{{
		ID:             "a",
		Candidates:     []plate.Candidate{{Text: "ABC123", Confidence: 88}},
		ProcessingTime: plate.Duration(1500 * time.Microsecond),
	}}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "results.json")
	os.WriteFile(path, data, 0644)

	results, err := loadResults(path)
	if err != nil {
		t.Fatalf("loadResults failed: %v", err)
	}
	if len(results) != 1 || results[0].ProcessingTime != want[0].ProcessingTime {
		t.Errorf("got %+v, want processing time %v", results, time.Duration(want[0].ProcessingTime))
	}
}

func TestAggregateCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	os.WriteFile(path, []byte(storedResults), 0644)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"aggregate", path, "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	var merged []plate.AttemptResult
	if err := json.Unmarshal(out.Bytes(), &merged); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(merged) != 1 || merged[0].Candidates[0].Text != "ABC123" {
		t.Errorf("unexpected merge: %+v", merged)
	}
}

func TestAggregateCmd_BadStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.yaml")
	os.WriteFile(path, []byte(storedResults), 0644)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"aggregate", path, "--strategy", "vote"})
	if err := root.Execute(); err == nil {
		t.Error("unknown strategy should fail")
	}
}
