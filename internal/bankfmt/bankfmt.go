// Package bankfmt normalizes raw bank statement exports (CSV rows or
// extracted PDF text) into canonical transactions. Each supported bank
// has a parser; auto-detection picks one from structural signatures and
// falls back to a generic column mapper when nothing matches.
package bankfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

// FlaggedRow is a source row the parser could not fully normalize.
// Flagged rows are reported, never silently dropped.
type FlaggedRow struct {
	Line   int
	Raw    string
	Reason string
}

// Statement is the normalizer output: every transaction it could
// extract plus the rows it had to flag.
type Statement struct {
	Transactions []model.Transaction
	Flagged      []FlaggedRow
}

// Detection reports what the auto-detector decided.
type Detection struct {
	Format          string // registry key, e.g. "chase"
	BankName        string // display name, e.g. "Chase"
	RequiresMapping bool   // true when only the generic fallback applies
}

// Parser converts one bank's statement content into a Statement.
type Parser interface {
	// Format returns the registry key for this parser.
	Format() string
	// BankName returns the human-readable bank name.
	BankName() string
	// Sniff reports whether the content looks like this bank's format.
	Sniff(content string) bool
	// Parse normalizes the statement content.
	Parse(r io.Reader) (*Statement, error)
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
	order   []string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
	r.order = append(r.order, key)
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
// The generic mapper is deliberately not registered for sniffing; it is
// the fallback when nothing else matches.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseCSVParser{})
	r.Register(&ChasePDFParser{})
	return r
}

// Detect inspects statement content and picks the best-matching bank
// profile. When no profile matches it reports the generic fallback with
// RequiresMapping=true instead of failing the import.
func (r *Registry) Detect(content []byte) Detection {
	sample := string(content)
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	for _, key := range r.order {
		p := r.parsers[key]
		if p.Sniff(sample) {
			return Detection{Format: p.Format(), BankName: p.BankName()}
		}
	}
	return Detection{Format: genericFormat, BankName: "Unknown", RequiresMapping: true}
}

// Normalize parses statement content with the named format, or with the
// auto-detected one when format is "auto" or empty. It returns whatever
// it could extract; zero extractable rows is a user-facing error.
func (r *Registry) Normalize(format string, content []byte) (*Statement, Detection, error) {
	det := Detection{Format: strings.ToLower(format)}

	if format == "" || strings.EqualFold(format, "auto") {
		det = r.Detect(content)
	} else if p := r.Get(format); p != nil {
		det.BankName = p.BankName()
	} else if strings.EqualFold(format, genericFormat) {
		det = Detection{Format: genericFormat, BankName: "Unknown", RequiresMapping: true}
	} else {
		return nil, det, fmt.Errorf("unknown bank format %q", format)
	}

	var parser Parser = &GenericCSVParser{}
	if p := r.Get(det.Format); p != nil {
		parser = p
	}

	stmt, err := parser.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, det, err
	}
	if len(stmt.Transactions) == 0 {
		return stmt, det, fmt.Errorf("no transactions could be extracted from this %s statement", det.BankName)
	}
	return stmt, det, nil
}

// deriveType applies the canonical type precedence: explicit
// section/column semantics first, then the sign of the parsed amount.
// Category heuristics never participate.
func deriveType(explicit model.TransactionType, amount decimal.Decimal) model.TransactionType {
	if explicit != "" {
		return explicit
	}
	if amount.IsNegative() {
		return model.TypeExpense
	}
	return model.TypeIncome
}

// parseAmount reads a statement amount, tolerating "$", thousands
// separators and accounting-style parentheses. Unlike the fail-soft
// money.Parse, a garbled amount here is an error so the row gets
// flagged instead of importing as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")")
	}
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, "$", "")
	raw = strings.TrimSpace(raw)

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if negative {
		v = v.Neg()
	}
	return v, nil
}
