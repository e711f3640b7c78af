package handlers

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestTailerReadsIncrementally(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "tail-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	logPath := filepath.Join(tmpDir, "run.log")
	tailer := newLogTailer(logPath)

	if tailer.exists() {
		t.Fatal("log should not exist yet")
	}
	lines, err := tailer.readNewLines()
	if err != nil || lines != nil {
		t.Fatalf("missing file should yield no lines, got %v / %v", lines, err)
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\n"), 0644); err != nil {
		t.Fatal(err)
	}
	lines, err = tailer.readNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("unexpected lines: %v", lines)
	}

	// Nothing new
	lines, err = tailer.readNewLines()
	if err != nil || len(lines) != 0 {
		t.Fatalf("expected no new lines, got %v / %v", lines, err)
	}

	// Append including a partial line
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("third\npart"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	lines, err = tailer.readNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "third" {
		t.Fatalf("partial line must be held back, got %v", lines)
	}

	// Complete the partial line
	f, err = os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("ial\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	lines, err = tailer.readNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "partial" {
		t.Fatalf("expected completed line, got %v", lines)
	}
}

func TestTailerHandlesTruncation(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "tail-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	logPath := filepath.Join(tmpDir, "run.log")
	tailer := newLogTailer(logPath)

	if err := os.WriteFile(logPath, []byte("old run line\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := tailer.readNewLines(); err != nil {
		t.Fatal(err)
	}

	// New run truncates the file
	if err := os.WriteFile(logPath, []byte("new\n"), 0644); err != nil {
		t.Fatal(err)
	}
	lines, err := tailer.readNewLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "new" {
		t.Fatalf("truncation should reset the offset, got %v", lines)
	}
}
