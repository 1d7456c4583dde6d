package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

// TransactionHeader is the CSV header for transactions.csv.
const TransactionHeader = "id,date,description,amount,type,category,subcategory,confidence,needs_review,payee,source_upload_id,split_parent_id,split,created_at"

const (
	txnNumFields  = 14
	dateFormat    = "2006-01-02"
	colID         = 0
	colDate       = 1
	colDesc       = 2
	colAmount     = 3
	colType       = 4
	colCategory   = 5
	colSubcat     = 6
	colConfidence = 7
	colReview     = 8
	colPayee      = 9
	colUploadID   = 10
	colSplitPar   = 11
	colSplit      = 12
	colCreatedAt  = 13
)

// ReadTransactions reads all transactions from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = txnNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes transactions to a writer (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TransactionHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, txnNumFields)
	row[colID] = t.ID
	row[colDate] = t.Date.Format(dateFormat)
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.StringFixed(2)
	row[colType] = string(t.Type)
	row[colCategory] = t.Category
	row[colSubcat] = t.Subcategory
	if !t.Confidence.IsZero() {
		row[colConfidence] = t.Confidence.String()
	}
	row[colReview] = strconv.FormatBool(t.NeedsReview)
	row[colPayee] = t.Payee
	row[colUploadID] = t.SourceUploadID
	row[colSplitPar] = t.SplitParentID
	row[colSplit] = strconv.FormatBool(t.Split)
	row[colCreatedAt] = t.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != txnNumFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", txnNumFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var confidence decimal.Decimal
	if record[colConfidence] != "" {
		confidence, err = decimal.NewFromString(record[colConfidence])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing confidence %q: %w", record[colConfidence], err)
		}
	}

	needsReview, err := strconv.ParseBool(record[colReview])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing needs_review %q: %w", record[colReview], err)
	}

	split, err := strconv.ParseBool(record[colSplit])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing split %q: %w", record[colSplit], err)
	}

	createdAt, err := time.Parse(time.RFC3339, record[colCreatedAt])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
	}

	return model.Transaction{
		ID:             record[colID],
		Date:           date,
		Description:    record[colDesc],
		Amount:         amount,
		Type:           model.TransactionType(record[colType]),
		Category:       record[colCategory],
		Subcategory:    record[colSubcat],
		Confidence:     confidence,
		NeedsReview:    needsReview,
		Payee:          record[colPayee],
		SourceUploadID: record[colUploadID],
		SplitParentID:  record[colSplitPar],
		Split:          split,
		CreatedAt:      createdAt,
	}, nil
}
