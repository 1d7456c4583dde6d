package bankfmt

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tallyhq/tally/internal/model"
)

// ChaseCSVParser parses Chase checking account CSV exports.
type ChaseCSVParser struct{}

const (
	chaseHeader    = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #"
	chaseNumFields = 7
	chaseColDetail = 0
	chaseColDate   = 1
	chaseColDesc   = 2
	chaseColAmount = 3
	chaseColType   = 4
)

// Format returns the parser name.
func (p *ChaseCSVParser) Format() string { return "chase" }

// BankName returns the display name.
func (p *ChaseCSVParser) BankName() string { return "Chase" }

// Sniff matches the Chase checking export header row.
func (p *ChaseCSVParser) Sniff(content string) bool {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	return strings.EqualFold(strings.TrimSpace(firstLine), chaseHeader)
}

// Parse reads a Chase CSV and returns canonical transactions. Rows with
// malformed dates or amounts are flagged, not dropped or fatal.
func (p *ChaseCSVParser) Parse(r io.Reader) (*Statement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}
	if len(records) <= 1 {
		return &Statement{}, nil
	}

	stmt := &Statement{}
	for i, rec := range records[1:] {
		line := i + 2

		date := ParseDateToken(rec[chaseColDate], 0)
		if date == nil {
			stmt.Flagged = append(stmt.Flagged, FlaggedRow{
				Line:   line,
				Raw:    strings.Join(rec, ","),
				Reason: fmt.Sprintf("malformed date %q", rec[chaseColDate]),
			})
			continue
		}

		amount, err := parseAmount(rec[chaseColAmount])
		if err != nil {
			stmt.Flagged = append(stmt.Flagged, FlaggedRow{
				Line:   line,
				Raw:    strings.Join(rec, ","),
				Reason: err.Error(),
			})
			continue
		}

		// The Details column is the explicit direction signal.
		var explicit model.TransactionType
		switch strings.ToUpper(strings.TrimSpace(rec[chaseColDetail])) {
		case "CREDIT":
			explicit = model.TypeIncome
		case "DEBIT", "CHECK":
			explicit = model.TypeExpense
		}

		stmt.Transactions = append(stmt.Transactions, model.Transaction{
			Date:        *date,
			Description: strings.TrimSpace(rec[chaseColDesc]),
			Amount:      amount,
			Type:        deriveType(explicit, amount),
		})
	}
	return stmt, nil
}
