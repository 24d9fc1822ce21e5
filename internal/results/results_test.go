package results

import (
	"encoding/csv"
	"os"
	"testing"
	"time"
)

func TestAppendWritesHeaderOnce(t *testing.T) {
	l := &Log{Dir: t.TempDir()}
	when := time.Date(2024, 8, 1, 15, 30, 0, 0, time.UTC)

	first := []Row{
		{Time: when, Batch: "b1", Image: "a.jpg", Verdict: VerdictYes, Confidence: 0.8712},
		{Time: when, Batch: "b1", Image: "b.jpg", Verdict: VerdictNo, Confidence: 0.01},
	}
	second := []Row{
		{Time: when, Batch: "b1", Image: "c.jpg", Verdict: VerdictError},
	}

	if err := l.Append(first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.Open(l.FileFor(when))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("log has %d records, want header + 3 rows", len(records))
	}
	wantHeader := []string{"utc_time", "folder", "image", "human", "confidence"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	yes := records[1]
	if yes[0] != "2024-08-01T15:30:00Z" || yes[1] != "b1" || yes[2] != "a.jpg" || yes[3] != "YES" || yes[4] != "0.8712" {
		t.Errorf("YES row = %v", yes)
	}
	if errRow := records[3]; errRow[3] != "ERROR" || errRow[4] != "" {
		t.Errorf("ERROR row must have empty confidence, got %v", errRow)
	}
}

func TestAppendEmpty(t *testing.T) {
	l := &Log{Dir: t.TempDir()}
	if err := l.Append(nil); err != nil {
		t.Fatalf("Append(nil): %v", err)
	}
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("empty append must not create a log file, found %d entries", len(entries))
	}
}

func TestFileForUsesUTCDay(t *testing.T) {
	l := &Log{Dir: "/logs"}
	// 23:30 in UTC-3 is already the next UTC day.
	local := time.Date(2024, 8, 1, 23, 30, 0, 0, time.FixedZone("UTC-3", -3*3600))
	if got, want := l.FileFor(local), "/logs/events_20240802.csv"; got != want {
		t.Errorf("FileFor() = %q, want %q", got, want)
	}
}
