package audit

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := NewLog(filepath.Join(t.TempDir(), "audit", "audit.log"), logger)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	return l
}

func testRecord(file string, code int) Record {
	start := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	return Record{
		File:       file,
		LocalPath:  "/data/" + file,
		TargetType: "s3",
		TargetSpec: "s3:bucket/prefix/",
		Size:       1000,
		SHA256:     "unknown",
		StartTS:    Timestamp(start),
		EndTS:      Timestamp(start.Add(2 * time.Second)),
		DurationS:  2.0,
		ExitCode:   code,
		User:       "tester",
		Host:       "testhost",
	}
}

func TestAppend(t *testing.T) {
	l := newTestLog(t)

	if err := l.Append(testRecord("a.txt", 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(testRecord("b.txt", 127)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records := readAll(t, l.Path())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].File != "a.txt" || records[0].ExitCode != 0 {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].File != "b.txt" || records[1].ExitCode != 127 {
		t.Errorf("second record = %+v", records[1])
	}
}

// TestAppendConcurrent hammers the log from multiple goroutines and
// verifies every line is a complete record
func TestAppendConcurrent(t *testing.T) {
	l := newTestLog(t)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := l.Append(testRecord("c.txt", 0)); err != nil {
					t.Errorf("Append: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	records := readAll(t, l.Path())
	if len(records) != writers*perWriter {
		t.Errorf("got %d records, want %d", len(records), writers*perWriter)
	}
}

func TestAppendPreservesExisting(t *testing.T) {
	l := newTestLog(t)

	if err := l.Append(testRecord("a.txt", 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	before, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	if err := l.Append(testRecord("b.txt", 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	after, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	if string(after[:len(before)]) != string(before) {
		t.Error("existing log content was rewritten; log must be append-only")
	}
}

func TestTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	ts := Timestamp(time.Date(2026, 8, 26, 13, 30, 45, 999999999, loc))
	if ts != "2026-08-26T10:30:45Z" {
		t.Errorf("Timestamp = %q, want %q", ts, "2026-08-26T10:30:45Z")
	}
}

func readAll(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not a complete record: %v", len(records)+1, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return records
}
