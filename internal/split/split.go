// Package split divides a stored transaction into category-tagged
// parts under an exact-sum invariant, and reverses that operation.
package split

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/id"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/money"
)

// InvalidSplitError reports a caller mistake in a split request. These
// fail fast with a specific reason; they are never coerced to a safe
// default.
type InvalidSplitError struct {
	Reason string
}

func (e *InvalidSplitError) Error() string {
	return "invalid split: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &InvalidSplitError{Reason: fmt.Sprintf(format, args...)}
}

// Part is one requested portion of a split. Amounts are positive
// magnitudes; sign restoration happens once, centrally, when parts are
// persisted.
type Part struct {
	Amount      decimal.Decimal
	Category    string
	Subcategory string
	Description string // optional; defaults to the original description
}

// Check reports the arithmetic of a validated split. A positive
// remainder is legal (a partially categorized split) and must be
// surfaced to the caller, never hidden.
type Check struct {
	OriginalAmount   decimal.Decimal // magnitude of the original
	TotalSplitAmount decimal.Decimal
	Remainder        decimal.Decimal
}

// epsilon absorbs caller float noise in the sum comparison only.
// Stored amounts are always cent-exact.
var epsilon = decimal.NewFromFloat(0.005)

// Validate checks parts against the original transaction and computes
// the split arithmetic. The validator works in positive magnitudes.
func Validate(original model.Transaction, parts []Part) (Check, error) {
	if len(parts) == 0 {
		return Check{}, invalid("no parts provided")
	}

	total := decimal.Zero
	for i, p := range parts {
		if !p.Amount.IsPositive() {
			return Check{}, invalid("part %d: amount must be a positive number", i+1)
		}
		if p.Category == "" {
			return Check{}, invalid("part %d: category is required", i+1)
		}
		total = total.Add(money.Round(p.Amount))
	}

	originalAmount := money.Round(original.Amount.Abs())
	if total.Sub(originalAmount).GreaterThan(epsilon) {
		return Check{}, invalid("split total %s exceeds original amount %s",
			total.StringFixed(2), originalAmount.StringFixed(2))
	}

	return Check{
		OriginalAmount:   originalAmount,
		TotalSplitAmount: total,
		Remainder:        originalAmount.Sub(total),
	}, nil
}

// Store is the persistence surface the reconciler needs.
type Store interface {
	GetTransaction(txnID string) (model.Transaction, bool)
	SplitParts(parentID string) []model.Transaction
	InsertTransactions(txns []model.Transaction) error
	UpdateTransaction(txn model.Transaction) error
	DeleteTransactions(ids []string) error
}

// Service applies and reverses splits against a store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a split Service.
func NewService(s Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Split validates parts and persists them as child transactions. The
// original is flagged as split and hidden from primary views, but is
// retained for audit, not deleted.
func (s *Service) Split(txnID string, parts []Part) (Check, error) {
	original, ok := s.store.GetTransaction(txnID)
	if !ok {
		return Check{}, fmt.Errorf("transaction %s not found", txnID)
	}
	if original.Split {
		return Check{}, invalid("transaction %s is already split", txnID)
	}
	if original.IsSplitPart() {
		return Check{}, invalid("transaction %s is itself a split part", txnID)
	}

	check, err := Validate(original, parts)
	if err != nil {
		return Check{}, err
	}

	// Sign restoration happens here and only here: the validator works
	// in magnitudes, the stored parts carry the original's direction.
	sign := decimal.NewFromInt(1)
	if original.Amount.IsNegative() {
		sign = decimal.NewFromInt(-1)
	}

	children := make([]model.Transaction, 0, len(parts))
	for _, p := range parts {
		desc := p.Description
		if desc == "" {
			desc = original.Description
		}
		children = append(children, model.Transaction{
			ID:             id.NewTransaction(),
			Date:           original.Date,
			Description:    desc,
			Amount:         money.Round(p.Amount).Mul(sign),
			Type:           original.Type,
			Category:       p.Category,
			Subcategory:    p.Subcategory,
			Confidence:     decimal.NewFromInt(1),
			Payee:          original.Payee,
			SourceUploadID: original.SourceUploadID,
			SplitParentID:  original.ID,
			CreatedAt:      s.now().UTC(),
		})
	}

	if err := s.store.InsertTransactions(children); err != nil {
		return Check{}, fmt.Errorf("persisting split parts: %w", err)
	}

	original.Split = true
	if err := s.store.UpdateTransaction(original); err != nil {
		return Check{}, fmt.Errorf("marking original as split: %w", err)
	}
	return check, nil
}

// Unsplit deletes a transaction's split parts and restores it to whole.
// Unsplitting an already-whole transaction is a no-op, not an error.
func (s *Service) Unsplit(txnID string) error {
	original, ok := s.store.GetTransaction(txnID)
	if !ok {
		return fmt.Errorf("transaction %s not found", txnID)
	}
	if !original.Split {
		return nil
	}

	parts := s.store.SplitParts(txnID)
	partIDs := make([]string, 0, len(parts))
	for _, p := range parts {
		partIDs = append(partIDs, p.ID)
	}
	if len(partIDs) > 0 {
		if err := s.store.DeleteTransactions(partIDs); err != nil {
			return fmt.Errorf("deleting split parts: %w", err)
		}
	}

	original.Split = false
	if err := s.store.UpdateTransaction(original); err != nil {
		return fmt.Errorf("restoring original: %w", err)
	}
	return nil
}

// BulkItem is one split request in a bulk operation.
type BulkItem struct {
	TransactionID string
	Parts         []Part
}

// BulkResult is the per-item outcome of a bulk split.
type BulkResult struct {
	TransactionID string
	Check         Check
	Err           error
}

// BulkSplit applies Split across a set, collecting per-item outcomes
// instead of failing the whole batch on one bad input.
func (s *Service) BulkSplit(items []BulkItem) []BulkResult {
	results := make([]BulkResult, 0, len(items))
	for _, item := range items {
		check, err := s.Split(item.TransactionID, item.Parts)
		results = append(results, BulkResult{
			TransactionID: item.TransactionID,
			Check:         check,
			Err:           err,
		})
	}
	return results
}
