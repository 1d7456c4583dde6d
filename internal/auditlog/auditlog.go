// Package auditlog records AI classification usage to an append-only
// CSV file. Writes are best-effort: callers log a warning on failure
// and never let a logging problem fail the classification itself.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row in the usage log: a single classification job.
type Entry struct {
	Timestamp  time.Time
	Model      string
	Batches    int
	Submitted  int // transactions sent to the model
	Classified int // transactions that came back with a valid category
	Failed     int // transactions degraded by batch failures
	Notes      string
}

// Header is the CSV header for ai-usage.csv.
const Header = "timestamp,model,batches,submitted,classified,failed,notes"

const (
	numFields     = 7
	logDir        = "logs"
	logFile       = "logs/ai-usage.csv"
	colTimestamp  = 0
	colModel      = 1
	colBatches    = 2
	colSubmitted  = 3
	colClassified = 4
	colFailed     = 5
	colNotes      = 6
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colModel] = e.Model
	row[colBatches] = strconv.Itoa(e.Batches)
	row[colSubmitted] = strconv.Itoa(e.Submitted)
	row[colClassified] = strconv.Itoa(e.Classified)
	row[colFailed] = strconv.Itoa(e.Failed)
	row[colNotes] = e.Notes
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	ints := make([]int, 4)
	for i, col := range []int{colBatches, colSubmitted, colClassified, colFailed} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing field %d %q: %w", col, record[col], err)
		}
		ints[i] = n
	}

	return Entry{
		Timestamp:  ts,
		Model:      record[colModel],
		Batches:    ints[0],
		Submitted:  ints[1],
		Classified: ints[2],
		Failed:     ints[3],
		Notes:      record[colNotes],
	}, nil
}

// Append writes entries to <root>/logs/ai-usage.csv, creating the file
// and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening usage log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <root>/logs/ai-usage.csv.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening usage log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading usage log CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
