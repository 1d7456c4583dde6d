// Package ingest drives the upload, preview and confirm flow for bank
// statements, applying the duplicate-skip policy before anything is
// persisted and running rule classification synchronously after.
package ingest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/bankfmt"
	"github.com/tallyhq/tally/internal/classify"
	"github.com/tallyhq/tally/internal/id"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/store"
)

// State is the session lifecycle. Cancel is only valid pre-persist;
// once rows are confirmed the compensating actions are unsplit or
// manual deletion, never a mid-import abort.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StatePreview   State = "preview"
	StateImporting State = "importing"
	StateSuccess   State = "success"
	StateError     State = "error"
)

// sampleSize bounds the preview row sample.
const sampleSize = 10

// Preview is what the caller sees before committing an import.
type Preview struct {
	BatchID     string
	ParsedCount int
	Sample      []model.Transaction
	Flagged     []bankfmt.FlaggedRow
	Detection   bankfmt.Detection
}

// Result reports a confirmed import. Counts are always populated so a
// partial success stays legible.
type Result struct {
	Imported                 int
	Duplicates               int
	Classified               int
	Unclassified             int
	UnclassifiedTransactions []model.Transaction
}

// ConfirmOptions controls the commit step.
type ConfirmOptions struct {
	SkipDuplicates bool
}

// DefaultConfirmOptions enables duplicate skipping.
func DefaultConfirmOptions() ConfirmOptions {
	return ConfirmOptions{SkipDuplicates: true}
}

// Session is one import flow. It is single-use: after success, error or
// cancel a new session is started for the next file.
type Session struct {
	store     *store.Service
	registry  *bankfmt.Registry
	threshold decimal.Decimal
	now       func() time.Time

	state State
	batch model.ImportBatch
	stmt  *bankfmt.Statement
}

// NewSession creates an idle import session.
func NewSession(s *store.Service, registry *bankfmt.Registry, threshold decimal.Decimal) *Session {
	return &Session{
		store:     s,
		registry:  registry,
		threshold: threshold,
		now:       time.Now,
		state:     StateIdle,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Upload parses the raw statement content and moves the session to
// preview. Nothing is persisted except the batch record itself, whose
// status tracks the flow for later inspection.
func (s *Session) Upload(fileName, format string, content []byte) (*Preview, error) {
	if s.state != StateIdle {
		return nil, fmt.Errorf("cannot upload from state %q", s.state)
	}
	s.state = StateUploading

	stmt, det, err := s.registry.Normalize(format, content)
	if err != nil {
		s.state = StateError
		return nil, err
	}

	batch := model.ImportBatch{
		ID:          id.NewBatch(),
		FileName:    fileName,
		BankFormat:  det.Format,
		ParsedCount: len(stmt.Transactions),
		Status:      model.BatchPreviewed,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.AddBatch(batch); err != nil {
		s.state = StateError
		return nil, fmt.Errorf("recording batch: %w", err)
	}

	s.batch = batch
	s.stmt = stmt
	s.state = StatePreview

	sample := stmt.Transactions
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	return &Preview{
		BatchID:     batch.ID,
		ParsedCount: len(stmt.Transactions),
		Sample:      sample,
		Flagged:     stmt.Flagged,
		Detection:   det,
	}, nil
}

// Cancel abandons a previewed import. No transactions were persisted,
// so the only side effect is marking the batch cancelled.
func (s *Session) Cancel() error {
	if s.state != StatePreview {
		return fmt.Errorf("cannot cancel from state %q", s.state)
	}
	if err := s.store.SetBatchStatus(s.batch.ID, model.BatchCancelled); err != nil {
		return err
	}
	s.state = StateIdle
	s.stmt = nil
	return nil
}

// Confirm commits the previewed rows. Duplicates are counted and
// excluded, never merged. The surviving rows are persisted in a single
// all-or-nothing write, then rule classification runs synchronously on
// what was written. Persistence errors propagate as-is and leave the
// batch status unresolved for an explicit retry.
func (s *Session) Confirm(opts ConfirmOptions) (*Result, error) {
	if s.state != StatePreview {
		return nil, fmt.Errorf("cannot confirm from state %q", s.state)
	}
	s.state = StateImporting

	ruleset := classify.NewRuleset(s.store.Rules(), s.threshold)
	now := s.now().UTC()

	type key struct{ date, amount, desc string }
	seen := make(map[key]bool)

	result := &Result{}
	var toInsert []model.Transaction
	for _, txn := range s.stmt.Transactions {
		k := key{txn.Date.Format("2006-01-02"), txn.Amount.StringFixed(2), txn.Description}
		if opts.SkipDuplicates {
			if seen[k] || s.store.HasDuplicate(k.date, txn.Amount, txn.Description) {
				result.Duplicates++
				continue
			}
		}
		seen[k] = true

		txn.ID = id.NewTransaction()
		txn.SourceUploadID = s.batch.ID
		txn.CreatedAt = now

		res := ruleset.Classify(txn)
		txn.Category = res.Category
		txn.Subcategory = res.Subcategory
		txn.Confidence = res.Confidence
		txn.NeedsReview = res.NeedsReview
		if txn.Payee == "" {
			txn.Payee = res.Payee
		}

		toInsert = append(toInsert, txn)
	}

	if err := s.store.InsertTransactions(toInsert); err != nil {
		s.state = StateError
		return nil, err
	}
	if err := s.store.SetBatchStatus(s.batch.ID, model.BatchConfirmed); err != nil {
		s.state = StateError
		return nil, fmt.Errorf("updating batch status: %w", err)
	}

	result.Imported = len(toInsert)
	for _, txn := range toInsert {
		if txn.NeedsReview {
			result.Unclassified++
			result.UnclassifiedTransactions = append(result.UnclassifiedTransactions, txn)
		} else {
			result.Classified++
		}
	}

	slog.Info("import confirmed",
		"batch", s.batch.ID,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"classified", result.Classified,
		"unclassified", result.Unclassified)

	s.state = StateSuccess
	return result, nil
}
