package bankfmt

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

const genericFormat = "generic"

// GenericCSVParser is the column-based fallback used when no bank
// profile matches. It maps columns by fuzzy header names (date,
// description, amount, or separate debit/credit) and, failing that,
// assumes the first three columns are date, description, amount.
type GenericCSVParser struct{}

// Format returns the parser name.
func (p *GenericCSVParser) Format() string { return genericFormat }

// BankName returns the display name.
func (p *GenericCSVParser) BankName() string { return "Unknown" }

// Sniff always declines; the generic mapper is chosen by fallback,
// never by detection.
func (p *GenericCSVParser) Sniff(string) bool { return false }

type genericColumns struct {
	date   int
	desc   int
	amount int
	debit  int
	credit int
}

// Parse reads arbitrary transaction CSV content.
func (p *GenericCSVParser) Parse(r io.Reader) (*Statement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return &Statement{}, nil
	}

	cols, hasHeader := mapColumns(records[0])
	rows := records
	if hasHeader {
		rows = records[1:]
	}

	stmt := &Statement{}
	for i, rec := range rows {
		line := i + 1
		if hasHeader {
			line++
		}
		p.parseRow(stmt, rec, line, cols)
	}
	return stmt, nil
}

func (p *GenericCSVParser) parseRow(stmt *Statement, rec []string, line int, cols genericColumns) {
	flag := func(reason string) {
		stmt.Flagged = append(stmt.Flagged, FlaggedRow{Line: line, Raw: strings.Join(rec, ","), Reason: reason})
	}

	maxCol := cols.date
	for _, c := range []int{cols.desc, cols.amount, cols.debit, cols.credit} {
		if c > maxCol {
			maxCol = c
		}
	}
	if len(rec) <= maxCol {
		flag("too few columns")
		return
	}

	date := ParseDateToken(rec[cols.date], 0)
	if date == nil {
		flag(fmt.Sprintf("malformed date %q", rec[cols.date]))
		return
	}

	var amount decimal.Decimal
	var explicit model.TransactionType
	switch {
	case cols.amount >= 0:
		v, err := parseAmount(rec[cols.amount])
		if err != nil {
			flag(err.Error())
			return
		}
		amount = v
	case cols.debit >= 0 && cols.credit >= 0:
		// Separate debit/credit columns are an explicit direction signal.
		if strings.TrimSpace(rec[cols.debit]) != "" {
			v, err := parseAmount(rec[cols.debit])
			if err != nil {
				flag(err.Error())
				return
			}
			amount = v.Abs().Neg()
			explicit = model.TypeExpense
		} else if strings.TrimSpace(rec[cols.credit]) != "" {
			v, err := parseAmount(rec[cols.credit])
			if err != nil {
				flag(err.Error())
				return
			}
			amount = v.Abs()
			explicit = model.TypeIncome
		} else {
			flag("neither debit nor credit populated")
			return
		}
	default:
		flag("no amount column")
		return
	}

	stmt.Transactions = append(stmt.Transactions, model.Transaction{
		Date:        *date,
		Description: strings.TrimSpace(rec[cols.desc]),
		Amount:      amount,
		Type:        deriveType(explicit, amount),
	})
}

// mapColumns inspects the first row. If it looks like a header it maps
// columns by name and reports hasHeader=true; otherwise it falls back
// to positional date/description/amount.
func mapColumns(first []string) (genericColumns, bool) {
	cols := genericColumns{date: -1, desc: -1, amount: -1, debit: -1, credit: -1}

	for i, name := range first {
		switch normalizeHeader(name) {
		case "date", "posting date", "transaction date", "posted":
			if cols.date < 0 {
				cols.date = i
			}
		case "description", "memo", "details", "payee", "name":
			if cols.desc < 0 {
				cols.desc = i
			}
		case "amount", "transaction amount":
			if cols.amount < 0 {
				cols.amount = i
			}
		case "debit", "withdrawal", "money out":
			if cols.debit < 0 {
				cols.debit = i
			}
		case "credit", "deposit", "money in":
			if cols.credit < 0 {
				cols.credit = i
			}
		}
	}

	if cols.date >= 0 && cols.desc >= 0 && (cols.amount >= 0 || (cols.debit >= 0 && cols.credit >= 0)) {
		return cols, true
	}
	return genericColumns{date: 0, desc: 1, amount: 2, debit: -1, credit: -1}, false
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(name)), " "))
}
