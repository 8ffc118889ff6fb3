package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: WarnLevel, Format: TextFormat, Output: &buf})

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-threshold entries written: %q", out)
	}
	if strings.Count(out, "kept") != 2 {
		t.Errorf("expected 2 entries, got: %q", out)
	}
}

func TestSetLevelAndOutput(t *testing.T) {
	var first, second bytes.Buffer
	logger := New(&Config{Level: ErrorLevel, Format: TextFormat, Output: &first})

	logger.Info("too quiet")
	if !logger.IsEnabled(ErrorLevel) || logger.IsEnabled(InfoLevel) {
		t.Fatal("level gate wrong before SetLevel")
	}

	logger.SetLevel(DebugLevel)
	logger.SetOutput(&second)
	logger.Debugf("now %s", "audible")

	if first.Len() != 0 {
		t.Errorf("old output received entries: %q", first.String())
	}
	if !strings.Contains(second.String(), "now audible") {
		t.Errorf("new output missing entry: %q", second.String())
	}
}

func TestJSONFormatAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})

	logger.WithComponent("indexer").Info("rebuilt", map[string]interface{}{"items": 3})

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry.Level != "INFO" || entry.Message != "rebuilt" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["component"] != "indexer" {
		t.Errorf("component field = %v", entry.Fields["component"])
	}
	if entry.Fields["items"] != float64(3) {
		t.Errorf("items field = %v", entry.Fields["items"])
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": DebugLevel, "INFO": InfoLevel, "warning": WarnLevel, "error": ErrorLevel,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("unknown level accepted")
	}
}

func TestFileOutputs(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "logs", "folio.log")
	w, err := CreateFileOutput(path)
	if err != nil {
		t.Fatalf("CreateFileOutput: %v", err)
	}
	New(&Config{Level: InfoLevel, Output: w}).Info("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing entry: %q", data)
	}

	combinedPath := filepath.Join(dir, "combined.log")
	cw, err := CreateCombinedOutput(combinedPath)
	if err != nil {
		t.Fatalf("CreateCombinedOutput: %v", err)
	}
	New(&Config{Level: InfoLevel, Output: cw}).Info("to both")

	data, err = os.ReadFile(combinedPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("combined log file missing entry: %q", data)
	}
}
