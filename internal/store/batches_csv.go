package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tallyhq/tally/internal/model"
)

// BatchHeader is the CSV header for batches.csv.
const BatchHeader = "id,file_name,bank_format,parsed_count,status,created_at"

const (
	batchNumFields  = 6
	batchColID      = 0
	batchColFile    = 1
	batchColFormat  = 2
	batchColCount   = 3
	batchColStatus  = 4
	batchColCreated = 5
)

// ReadBatches reads all import batches from a batches.csv reader.
func ReadBatches(r io.Reader) ([]model.ImportBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = batchNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading batches CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var batches []model.ImportBatch
	for i, rec := range records[1:] {
		b, err := UnmarshalBatch(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// WriteBatches writes batches to a writer (including header).
func WriteBatches(w io.Writer, batches []model.ImportBatch) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(BatchHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, b := range batches {
		if err := cw.Write(MarshalBatch(b)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalBatch converts an ImportBatch to a CSV row.
func MarshalBatch(b model.ImportBatch) []string {
	row := make([]string, batchNumFields)
	row[batchColID] = b.ID
	row[batchColFile] = b.FileName
	row[batchColFormat] = b.BankFormat
	row[batchColCount] = strconv.Itoa(b.ParsedCount)
	row[batchColStatus] = string(b.Status)
	row[batchColCreated] = b.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

// UnmarshalBatch converts a CSV row to an ImportBatch.
func UnmarshalBatch(record []string) (model.ImportBatch, error) {
	if len(record) != batchNumFields {
		return model.ImportBatch{}, fmt.Errorf("expected %d fields, got %d", batchNumFields, len(record))
	}

	count, err := strconv.Atoi(record[batchColCount])
	if err != nil {
		return model.ImportBatch{}, fmt.Errorf("parsing parsed_count %q: %w", record[batchColCount], err)
	}

	createdAt, err := time.Parse(time.RFC3339, record[batchColCreated])
	if err != nil {
		return model.ImportBatch{}, fmt.Errorf("parsing created_at %q: %w", record[batchColCreated], err)
	}

	return model.ImportBatch{
		ID:          record[batchColID],
		FileName:    record[batchColFile],
		BankFormat:  record[batchColFormat],
		ParsedCount: count,
		Status:      model.BatchStatus(record[batchColStatus]),
		CreatedAt:   createdAt,
	}, nil
}
