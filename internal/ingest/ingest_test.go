package ingest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/bankfmt"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/store"
)

const chaseHeader = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n"

func chaseCSV(rows ...string) []byte {
	return []byte(chaseHeader + strings.Join(rows, "\n") + "\n")
}

func row(details, date, desc, amount string) string {
	return fmt.Sprintf("%s,%s,%s,%s,,1000.00,", details, date, desc, amount)
}

func newSession(t *testing.T) (*Session, *store.Service) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	sess := NewSession(s, bankfmt.DefaultRegistry(), decimal.NewFromFloat(0.7))
	return sess, s
}

func TestUpload_PreviewDoesNotPersistTransactions(t *testing.T) {
	sess, s := newSession(t)

	content := chaseCSV(
		row("DEBIT", "03/14/2025", "OFFICE DEPOT #441", "-52.40"),
		row("CREDIT", "03/15/2025", "DEPOSIT FROM CUSTOMER", "1200.00"),
	)
	preview, err := sess.Upload("march.csv", "", content)
	require.NoError(t, err)

	assert.Equal(t, StatePreview, sess.State())
	assert.Equal(t, 2, preview.ParsedCount)
	assert.Len(t, preview.Sample, 2)
	assert.Equal(t, "chase", preview.Detection.Format)
	assert.False(t, preview.Detection.RequiresMapping)

	// Nothing in the ledger yet, only the batch record.
	assert.Empty(t, s.Transactions())
	batches := s.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, model.BatchPreviewed, batches[0].Status)
	assert.Equal(t, "march.csv", batches[0].FileName)
}

func TestUpload_SampleIsBounded(t *testing.T) {
	sess, _ := newSession(t)

	var rows []string
	for i := 0; i < 25; i++ {
		rows = append(rows, row("DEBIT", "03/14/2025", fmt.Sprintf("VENDOR %d", i), "-1.00"))
	}
	preview, err := sess.Upload("big.csv", "", chaseCSV(rows...))
	require.NoError(t, err)

	assert.Equal(t, 25, preview.ParsedCount)
	assert.Len(t, preview.Sample, sampleSize)
}

func TestUpload_UnparseableFileErrors(t *testing.T) {
	sess, s := newSession(t)

	_, err := sess.Upload("noise.csv", "", []byte("this is not a statement"))
	require.Error(t, err)
	assert.Equal(t, StateError, sess.State())
	assert.Empty(t, s.Transactions())
}

func TestCancel_LeavesNoTransactions(t *testing.T) {
	sess, s := newSession(t)

	_, err := sess.Upload("march.csv", "", chaseCSV(row("DEBIT", "03/14/2025", "OFFICE DEPOT", "-52.40")))
	require.NoError(t, err)

	require.NoError(t, sess.Cancel())
	assert.Equal(t, StateIdle, sess.State())
	assert.Empty(t, s.Transactions())

	batches := s.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, model.BatchCancelled, batches[0].Status)
}

func TestConfirm_ImportsAndClassifies(t *testing.T) {
	sess, s := newSession(t)

	content := chaseCSV(
		row("CREDIT", "03/15/2025", "DEPOSIT FROM CUSTOMER", "1200.00"),
		row("DEBIT", "03/16/2025", "XQZ 9981 UNKNOWN VENDOR", "-17.00"),
	)
	_, err := sess.Upload("march.csv", "", content)
	require.NoError(t, err)

	result, err := sess.Confirm(DefaultConfirmOptions())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, sess.State())

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 1, result.Classified)
	assert.Equal(t, 1, result.Unclassified)
	require.Len(t, result.UnclassifiedTransactions, 1)
	assert.Equal(t, "XQZ 9981 UNKNOWN VENDOR", result.UnclassifiedTransactions[0].Description)

	txns := s.Transactions()
	require.Len(t, txns, 2)
	for _, txn := range txns {
		assert.NotEmpty(t, txn.ID)
		assert.NotEmpty(t, txn.SourceUploadID)
		assert.False(t, txn.CreatedAt.IsZero())
	}

	batches := s.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, model.BatchConfirmed, batches[0].Status)
}

func TestConfirm_SkipsPersistedDuplicates(t *testing.T) {
	sess, s := newSession(t)

	existing := model.Transaction{
		ID:          "txn_existing",
		Date:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Description: "OFFICE DEPOT #441",
		Amount:      decimal.RequireFromString("-52.40"),
		Type:        model.TypeExpense,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.InsertTransactions([]model.Transaction{existing}))

	content := chaseCSV(
		row("DEBIT", "03/14/2025", "OFFICE DEPOT #441", "-52.40"),
		row("DEBIT", "03/16/2025", "ULINE SHIP SUPPLIES", "-80.00"),
	)
	_, err := sess.Upload("march.csv", "", content)
	require.NoError(t, err)

	result, err := sess.Confirm(DefaultConfirmOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
	assert.Len(t, s.Transactions(), 2)
}

func TestConfirm_SkipsIntraBatchDuplicates(t *testing.T) {
	sess, s := newSession(t)

	same := row("DEBIT", "03/14/2025", "OFFICE DEPOT #441", "-52.40")
	_, err := sess.Upload("march.csv", "", chaseCSV(same, same))
	require.NoError(t, err)

	result, err := sess.Confirm(DefaultConfirmOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
	assert.Len(t, s.Transactions(), 1)
}

func TestConfirm_SkipDuplicatesDisabled(t *testing.T) {
	sess, s := newSession(t)

	same := row("DEBIT", "03/14/2025", "OFFICE DEPOT #441", "-52.40")
	_, err := sess.Upload("march.csv", "", chaseCSV(same, same))
	require.NoError(t, err)

	result, err := sess.Confirm(ConfirmOptions{SkipDuplicates: false})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Duplicates)
	assert.Len(t, s.Transactions(), 2)
}

func TestConfirm_AppliesUserRules(t *testing.T) {
	sess, s := newSession(t)

	require.NoError(t, s.AddRule(model.ClassificationRule{
		ID:        "rule_1",
		Keywords:  []string{"uline"},
		Category:  "Office Supplies",
		Priority:  5,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}))

	_, err := sess.Upload("march.csv", "", chaseCSV(row("DEBIT", "03/16/2025", "ULINE SHIP SUPPLIES", "-80.00")))
	require.NoError(t, err)

	result, err := sess.Confirm(DefaultConfirmOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Classified)

	txns := s.Transactions()
	require.Len(t, txns, 1)
	assert.Equal(t, "Office Supplies", txns[0].Category)
	assert.True(t, txns[0].Confidence.Equal(decimal.NewFromFloat(0.95)))
	assert.False(t, txns[0].NeedsReview)
}

func TestSession_StateGuards(t *testing.T) {
	sess, _ := newSession(t)

	// Confirm and Cancel require a preview.
	_, err := sess.Confirm(DefaultConfirmOptions())
	assert.Error(t, err)
	assert.Error(t, sess.Cancel())

	_, err = sess.Upload("march.csv", "", chaseCSV(row("DEBIT", "03/14/2025", "OFFICE DEPOT", "-52.40")))
	require.NoError(t, err)

	// A session is single-use; a second upload is rejected.
	_, err = sess.Upload("april.csv", "", chaseCSV(row("DEBIT", "04/14/2025", "OFFICE DEPOT", "-52.40")))
	assert.Error(t, err)

	_, err = sess.Confirm(DefaultConfirmOptions())
	require.NoError(t, err)

	// And cannot be confirmed twice.
	_, err = sess.Confirm(DefaultConfirmOptions())
	assert.Error(t, err)
}
