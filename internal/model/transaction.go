package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the direction of a transaction. It is set
// once when a statement is normalized and is never re-derived downstream.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Transaction is the canonical record produced by the normalizer,
// enriched by the classifier, and persisted by the store.
type Transaction struct {
	ID          string
	Date        time.Time       // calendar date, no timezone semantics
	Description string          // raw text from the source statement
	Amount      decimal.Decimal // cent-exact; positive = inflow, negative = outflow
	Type        TransactionType

	Category    string // empty = uncategorized
	Subcategory string
	Confidence  decimal.Decimal // 0.0 - 1.0
	NeedsReview bool
	Payee       string // empty when unknown (e.g. printed checks)

	SourceUploadID string // import batch back-reference; empty for manual rows
	SplitParentID  string // set on split parts
	Split          bool   // set on originals that have been split

	CreatedAt time.Time
}

// IsSplitPart reports whether this transaction is a part of a split.
func (t Transaction) IsSplitPart() bool {
	return t.SplitParentID != ""
}
