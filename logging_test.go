package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"trafficdash/config"
)

func TestLogFileNameForDate(t *testing.T) {
	when := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	if got := logFileNameForDate(when); got != "22-Jan-2026.log" {
		t.Fatalf("expected log filename to be 22-Jan-2026.log, got %q", got)
	}
}

func TestParseLogFileDate(t *testing.T) {
	parsed, ok := parseLogFileDate("22-Jan-2026.log")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if parsed.Year() != 2026 || parsed.Month() != time.January || parsed.Day() != 22 {
		t.Fatalf("unexpected parsed date: %s", parsed.Format(time.RFC3339))
	}
	if _, ok := parseLogFileDate("notes.txt"); ok {
		t.Fatalf("expected non-log file to be rejected")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"20-Jan-2026.log",
		"21-Jan-2026.log",
		"22-Jan-2026.log",
		"notes.txt",
	}
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	now := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	if err := cleanupOldLogs(dir, now, 2); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	expectMissing := []string{"20-Jan-2026.log"}
	for _, name := range expectMissing {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			t.Fatalf("expected %s to be removed", name)
		} else if !os.IsNotExist(err) {
			t.Fatalf("stat %s: %v", name, err)
		}
	}
	expectPresent := []string{"21-Jan-2026.log", "22-Jan-2026.log", "notes.txt"}
	for _, name := range expectPresent {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to remain: %v", name, err)
		}
	}
}

func TestDailyFileSinkRotatesByDate(t *testing.T) {
	dir := t.TempDir()
	sink, err := newDailyFileSink(dir, 7)
	if err != nil {
		t.Fatalf("newDailyFileSink: %v", err)
	}
	defer sink.Close()

	day1 := time.Date(2026, time.January, 22, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	sink.WriteLine("first", day1)
	sink.WriteLine("second", day2)

	first, err := os.ReadFile(filepath.Join(dir, "22-Jan-2026.log"))
	if err != nil {
		t.Fatalf("read day1 log: %v", err)
	}
	if string(first) != "2026/01/22 12:00:00 first\n" {
		t.Fatalf("unexpected day1 content %q", first)
	}
	second, err := os.ReadFile(filepath.Join(dir, "23-Jan-2026.log"))
	if err != nil {
		t.Fatalf("read day2 log: %v", err)
	}
	if !strings.HasSuffix(string(second), " second\n") {
		t.Fatalf("unexpected day2 content %q", second)
	}
}

type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingSink) WriteLine(line string, _ time.Time) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *recordingSink) Close() error { return nil }

func TestLogFanoutSplitsLinesToBothSinks(t *testing.T) {
	console := &recordingSink{}
	file := &recordingSink{}
	fanout := newLogFanout(console, file)
	logger := log.New(fanout, "", 0)

	logger.Print("poller: transport error: connection refused")
	fanout.Write([]byte("view: client 10.0.0.1 no longer"))
	fanout.Write([]byte(" reported; back to main view\r\n"))

	want := []string{
		"poller: transport error: connection refused",
		"view: client 10.0.0.1 no longer reported; back to main view",
	}
	for name, sink := range map[string]*recordingSink{"console": console, "file": file} {
		if len(sink.lines) != len(want) {
			t.Fatalf("%s: expected %d lines, got %v", name, len(want), sink.lines)
		}
		for i := range want {
			if sink.lines[i] != want[i] {
				t.Fatalf("%s line %d = %q, want %q", name, i, sink.lines[i], want[i])
			}
		}
	}
}

func TestLogFanoutFlushesOversizedPartialLine(t *testing.T) {
	console := &recordingSink{}
	fanout := newLogFanout(console, nil)
	fanout.Write([]byte(strings.Repeat("x", maxLogBufferBytes+1)))
	if len(console.lines) != 1 || len(console.lines[0]) != maxLogBufferBytes+1 {
		t.Fatalf("expected oversized partial line to be flushed")
	}
	if len(fanout.buf) != 0 {
		t.Fatalf("expected buffer to be reset, got %d bytes", len(fanout.buf))
	}
}

func TestSetConsoleSinkWithoutTimestamp(t *testing.T) {
	var buf bytes.Buffer
	fanout := newLogFanout(nil, nil)
	fanout.SetConsoleSink(&buf, false)
	fanout.Write([]byte("hello\n"))
	if buf.String() != "hello\n" {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	fanout, err := setupLogging(config.LoggingConfig{Enabled: false}, &buf)
	if err != nil {
		t.Fatalf("setupLogging disabled: %v", err)
	}
	fanout.Write([]byte("console only\n"))
	if !strings.HasSuffix(buf.String(), " console only\n") {
		t.Fatalf("expected timestamped console line, got %q", buf.String())
	}

	dir := filepath.Join(t.TempDir(), "logs")
	fanout, err = setupLogging(config.LoggingConfig{Enabled: true, Dir: dir, RetentionDays: 2}, &buf)
	if err != nil {
		t.Fatalf("setupLogging enabled: %v", err)
	}
	fanout.Write([]byte("to file\n"))
	if err := fanout.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file in %s, got %v (err=%v)", dir, entries, err)
	}
}

func TestLogFanoutCollapsesRepeatedLines(t *testing.T) {
	console := &recordingSink{}
	fanout := newLogFanout(console, nil)
	logger := log.New(fanout, "", 0)

	for i := 0; i < 4; i++ {
		logger.Print("poller: transport error: connection refused")
	}
	logger.Print("status: Connected. Last update: 12:00:05")
	logger.Print("status: Connected. Last update: 12:00:05")
	if err := fanout.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []string{
		"poller: transport error: connection refused",
		"(previous line repeated 3 times)",
		"status: Connected. Last update: 12:00:05",
		"(previous line repeated once)",
	}
	if len(console.lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), console.lines)
	}
	for i := range want {
		if console.lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, console.lines[i], want[i])
		}
	}
}

func TestLogFanoutReportsLongRepeatRuns(t *testing.T) {
	console := &recordingSink{}
	fanout := newLogFanout(console, nil)
	for i := 0; i <= repeatSummaryEvery; i++ {
		fanout.Write([]byte("poller: protocol error: unexpected HTTP status 500\n"))
	}
	if len(console.lines) != 2 {
		t.Fatalf("expected first line plus one summary, got %q", console.lines)
	}
	if console.lines[1] != fmt.Sprintf("(previous line repeated %d times)", repeatSummaryEvery) {
		t.Fatalf("summary = %q", console.lines[1])
	}
}
