// Package results appends classification decisions to daily CSV audit logs.
// The logs are write-only for the pipeline; nothing reads them back for
// control decisions.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Verdict values recorded per image.
const (
	VerdictYes   = "YES"
	VerdictNo    = "NO"
	VerdictError = "ERROR"
)

var header = []string{"utc_time", "folder", "image", "human", "confidence"}

// Row is one classification decision.
type Row struct {
	Time       time.Time
	Batch      string
	Image      string
	Verdict    string
	Confidence float64
}

func (r Row) record() []string {
	confidence := ""
	if r.Verdict != VerdictError {
		confidence = fmt.Sprintf("%.4f", r.Confidence)
	}
	return []string{
		r.Time.UTC().Format("2006-01-02T15:04:05Z"),
		r.Batch,
		r.Image,
		r.Verdict,
		confidence,
	}
}

// Log appends rows to one CSV file per UTC day under Dir.
type Log struct {
	Dir string
}

// FileFor returns the log file path for the given time's UTC day.
func (l *Log) FileFor(t time.Time) string {
	return filepath.Join(l.Dir, "events_"+t.UTC().Format("20060102")+".csv")
}

// Append writes rows to the day's log file, creating it with the header row
// exactly once on first write.
func (l *Log) Append(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	path := l.FileFor(rows[0].Time)

	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush result log: %w", err)
	}
	return nil
}
