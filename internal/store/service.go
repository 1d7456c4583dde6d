// Package store persists canonical transactions, classification rules
// and import batches as flat CSV files under a project directory. It is
// the pipeline's stand-in for the downstream persistence collaborator:
// everything above it talks in model types and transaction IDs.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

const (
	dataDir          = "data"
	transactionsFile = "data/transactions.csv"
	rulesFile        = "data/rules.csv"
	batchesFile      = "data/batches.csv"
)

// Service provides CRUD over the CSV-backed data set. Mutations are
// write-through: each one rewrites the owning file so a crash never
// leaves memory and disk disagreeing.
type Service struct {
	root  string
	txns  []model.Transaction
	rules []model.ClassificationRule
	batch []model.ImportBatch
}

// Open loads the data set under root. Missing files mean an empty
// data set, not an error.
func Open(root string) (*Service, error) {
	s := &Service{root: root}

	if err := readFileInto(filepath.Join(root, transactionsFile), &s.txns, ReadTransactions); err != nil {
		return nil, err
	}
	if err := readFileInto(filepath.Join(root, rulesFile), &s.rules, ReadRules); err != nil {
		return nil, err
	}
	if err := readFileInto(filepath.Join(root, batchesFile), &s.batch, ReadBatches); err != nil {
		return nil, err
	}
	return s, nil
}

func readFileInto[T any](path string, dst *[]T, read func(r io.Reader) ([]T, error)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	items, err := read(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	*dst = items
	return nil
}

// Transactions returns all transactions, split originals included.
func (s *Service) Transactions() []model.Transaction {
	out := make([]model.Transaction, len(s.txns))
	copy(out, s.txns)
	return out
}

// GetTransaction returns a transaction by ID.
func (s *Service) GetTransaction(txnID string) (model.Transaction, bool) {
	for _, t := range s.txns {
		if t.ID == txnID {
			return t, true
		}
	}
	return model.Transaction{}, false
}

// SplitParts returns the split parts of the given parent transaction.
func (s *Service) SplitParts(parentID string) []model.Transaction {
	var parts []model.Transaction
	for _, t := range s.txns {
		if t.SplitParentID == parentID {
			parts = append(parts, t)
		}
	}
	return parts
}

// InsertTransactions appends transactions and persists in one write.
// The whole call either commits or leaves the file untouched.
func (s *Service) InsertTransactions(txns []model.Transaction) error {
	combined := append(append([]model.Transaction{}, s.txns...), txns...)
	if err := s.saveTransactions(combined); err != nil {
		return err
	}
	s.txns = combined
	return nil
}

// UpdateTransaction replaces the stored transaction with the same ID.
func (s *Service) UpdateTransaction(txn model.Transaction) error {
	combined := make([]model.Transaction, len(s.txns))
	copy(combined, s.txns)

	found := false
	for i := range combined {
		if combined[i].ID == txn.ID {
			combined[i] = txn
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("transaction %s not found", txn.ID)
	}

	if err := s.saveTransactions(combined); err != nil {
		return err
	}
	s.txns = combined
	return nil
}

// DeleteTransactions removes the transactions with the given IDs.
func (s *Service) DeleteTransactions(ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, txnID := range ids {
		drop[txnID] = true
	}

	var kept []model.Transaction
	for _, t := range s.txns {
		if !drop[t.ID] {
			kept = append(kept, t)
		}
	}

	if err := s.saveTransactions(kept); err != nil {
		return err
	}
	s.txns = kept
	return nil
}

// HasDuplicate reports whether a persisted transaction already matches
// on (date, amount, description). Split parts are excluded so splitting
// never makes later imports look like duplicates of themselves.
func (s *Service) HasDuplicate(date string, amount decimal.Decimal, description string) bool {
	for _, t := range s.txns {
		if t.IsSplitPart() {
			continue
		}
		if t.Date.Format(dateFormat) == date && t.Amount.Equal(amount) && t.Description == description {
			return true
		}
	}
	return false
}

// Rules returns all classification rules.
func (s *Service) Rules() []model.ClassificationRule {
	out := make([]model.ClassificationRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// AddRule appends a rule and persists.
func (s *Service) AddRule(rule model.ClassificationRule) error {
	combined := append(append([]model.ClassificationRule{}, s.rules...), rule)
	if err := s.saveRules(combined); err != nil {
		return err
	}
	s.rules = combined
	return nil
}

// UpdateRule replaces the stored rule with the same ID.
func (s *Service) UpdateRule(rule model.ClassificationRule) error {
	combined := make([]model.ClassificationRule, len(s.rules))
	copy(combined, s.rules)

	found := false
	for i := range combined {
		if combined[i].ID == rule.ID {
			combined[i] = rule
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("rule %s not found", rule.ID)
	}

	if err := s.saveRules(combined); err != nil {
		return err
	}
	s.rules = combined
	return nil
}

// DeleteRule removes a rule by ID.
func (s *Service) DeleteRule(ruleID string) error {
	var kept []model.ClassificationRule
	found := false
	for _, r := range s.rules {
		if r.ID == ruleID {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("rule %s not found", ruleID)
	}

	if err := s.saveRules(kept); err != nil {
		return err
	}
	s.rules = kept
	return nil
}

// Batches returns all import batches.
func (s *Service) Batches() []model.ImportBatch {
	out := make([]model.ImportBatch, len(s.batch))
	copy(out, s.batch)
	return out
}

// AddBatch appends an import batch and persists.
func (s *Service) AddBatch(b model.ImportBatch) error {
	combined := append(append([]model.ImportBatch{}, s.batch...), b)
	if err := s.saveBatches(combined); err != nil {
		return err
	}
	s.batch = combined
	return nil
}

// SetBatchStatus updates the status of the batch with the given ID.
func (s *Service) SetBatchStatus(batchID string, status model.BatchStatus) error {
	combined := make([]model.ImportBatch, len(s.batch))
	copy(combined, s.batch)

	found := false
	for i := range combined {
		if combined[i].ID == batchID {
			combined[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("batch %s not found", batchID)
	}

	if err := s.saveBatches(combined); err != nil {
		return err
	}
	s.batch = combined
	return nil
}

func (s *Service) saveTransactions(txns []model.Transaction) error {
	return s.saveFile(transactionsFile, func(f *os.File) error {
		return WriteTransactions(f, txns)
	})
}

func (s *Service) saveRules(rules []model.ClassificationRule) error {
	return s.saveFile(rulesFile, func(f *os.File) error {
		return WriteRules(f, rules)
	})
}

func (s *Service) saveBatches(batches []model.ImportBatch) error {
	return s.saveFile(batchesFile, func(f *os.File) error {
		return WriteBatches(f, batches)
	})
}

func (s *Service) saveFile(rel string, write func(f *os.File) error) error {
	dir := filepath.Join(s.root, dataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(s.root, rel)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(tmp), err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", filepath.Base(tmp), err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
