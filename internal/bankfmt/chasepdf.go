package bankfmt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tallyhq/tally/internal/model"
)

// ChasePDFParser parses the text extracted from a Chase statement PDF.
// The upload layer hands over plain text; this parser only cares about
// the statement's section structure.
type ChasePDFParser struct{}

// Section headings in Chase statement PDFs. The heading decides the
// transaction type; it outranks the amount sign.
var chaseSections = map[string]model.TransactionType{
	"DEPOSITS AND ADDITIONS":       model.TypeIncome,
	"CHECKS PAID":                  model.TypeExpense,
	"ATM & DEBIT CARD WITHDRAWALS": model.TypeExpense,
	"ELECTRONIC WITHDRAWALS":       model.TypeExpense,
	"FEES":                         model.TypeExpense,
	"OTHER WITHDRAWALS":            model.TypeExpense,
}

// Format returns the parser name.
func (p *ChasePDFParser) Format() string { return "chase-pdf" }

// BankName returns the display name.
func (p *ChasePDFParser) BankName() string { return "Chase" }

// Sniff matches known Chase statement section headings.
func (p *ChasePDFParser) Sniff(content string) bool {
	upper := strings.ToUpper(content)
	return strings.Contains(upper, "CHECKS PAID") ||
		strings.Contains(upper, "DEPOSITS AND ADDITIONS")
}

// Parse walks the statement text section by section. Statement dates
// are MM/DD tokens resolved against the year stated in the header.
func (p *ChasePDFParser) Parse(r io.Reader) (*Statement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading statement text: %w", err)
	}
	text := string(data)

	year := statementYear(text)
	stmt := &Statement{}

	var section model.TransactionType
	inChecks := false

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if t, ok := chaseSections[strings.ToUpper(line)]; ok {
			section = t
			inChecks = strings.EqualFold(line, "CHECKS PAID")
			continue
		}
		if section == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "TOTAL") {
			section = ""
			inChecks = false
			continue
		}

		if inChecks {
			p.parseCheckLine(stmt, line, lineNo, year)
			continue
		}
		p.parseEntryLine(stmt, line, lineNo, year, section)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning statement text: %w", err)
	}
	return stmt, nil
}

// parseEntryLine handles "MM/DD <description> <amount>" rows.
func (p *ChasePDFParser) parseEntryLine(stmt *Statement, line string, lineNo, year int, section model.TransactionType) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		stmt.Flagged = append(stmt.Flagged, FlaggedRow{Line: lineNo, Raw: line, Reason: "unrecognized statement row"})
		return
	}

	date := ParseDateToken(fields[0], year)
	if date == nil {
		stmt.Flagged = append(stmt.Flagged, FlaggedRow{
			Line:   lineNo,
			Raw:    line,
			Reason: fmt.Sprintf("malformed date %q", fields[0]),
		})
		return
	}

	amount, err := parseAmount(fields[len(fields)-1])
	if err != nil {
		stmt.Flagged = append(stmt.Flagged, FlaggedRow{Line: lineNo, Raw: line, Reason: err.Error()})
		return
	}
	// Statement sections print magnitudes; the section supplies direction.
	if section == model.TypeExpense && amount.IsPositive() {
		amount = amount.Neg()
	}

	stmt.Transactions = append(stmt.Transactions, model.Transaction{
		Date:        *date,
		Description: strings.Join(fields[1:len(fields)-1], " "),
		Amount:      amount,
		Type:        deriveType(section, amount),
	})
}

// parseCheckLine handles "NNNN [^] MM/DD <amount>" rows from the
// CHECKS PAID table. Banks print only a check number, so the payee is
// deliberately left empty: that emptiness is the downstream signal for
// manual vendor assignment.
func (p *ChasePDFParser) parseCheckLine(stmt *Statement, line string, lineNo, year int) {
	fields := strings.Fields(line)
	if len(fields) < 3 || !allDigits(fields[0]) {
		stmt.Flagged = append(stmt.Flagged, FlaggedRow{Line: lineNo, Raw: line, Reason: "unrecognized check row"})
		return
	}
	checkNum := fields[0]

	var date *time.Time
	for _, f := range fields[1 : len(fields)-1] {
		if d := ParseDateToken(f, year); d != nil {
			date = d
			break
		}
	}
	if date == nil {
		stmt.Flagged = append(stmt.Flagged, FlaggedRow{
			Line:   lineNo,
			Raw:    line,
			Reason: "malformed or missing check date",
		})
		return
	}

	amount, err := parseAmount(fields[len(fields)-1])
	if err != nil {
		stmt.Flagged = append(stmt.Flagged, FlaggedRow{Line: lineNo, Raw: line, Reason: err.Error()})
		return
	}
	if amount.IsPositive() {
		amount = amount.Neg()
	}

	stmt.Transactions = append(stmt.Transactions, model.Transaction{
		Date:        *date,
		Description: "CHECK #" + checkNum,
		Amount:      amount,
		Type:        model.TypeExpense,
		Payee:       "",
	})
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
