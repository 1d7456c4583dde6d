package split

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openStore(t *testing.T) *store.Service {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func expense(txnID, desc, amount string) model.Transaction {
	return model.Transaction{
		ID:          txnID,
		Date:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Amount:      dec(amount),
		Type:        model.TypeExpense,
		CreatedAt:   time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestValidate_ExactSplit(t *testing.T) {
	original := expense("txn_1", "HOME DEPOT", "-100.00")
	check, err := Validate(original, []Part{
		{Amount: dec("60.00"), Category: "Repairs & Maintenance"},
		{Amount: dec("40.00"), Category: "Office Supplies"},
	})
	require.NoError(t, err)
	assert.True(t, check.OriginalAmount.Equal(dec("100.00")))
	assert.True(t, check.TotalSplitAmount.Equal(dec("100.00")))
	assert.True(t, check.Remainder.IsZero())
}

func TestValidate_ExceedsOriginal(t *testing.T) {
	original := expense("txn_1", "HOME DEPOT", "-100.00")
	_, err := Validate(original, []Part{
		{Amount: dec("60.00"), Category: "Repairs & Maintenance"},
		{Amount: dec("50.00"), Category: "Office Supplies"},
	})
	var invalidErr *InvalidSplitError
	require.ErrorAs(t, err, &invalidErr)
	assert.Contains(t, invalidErr.Reason, "exceeds original amount")
}

func TestValidate_PositiveRemainderSurfaced(t *testing.T) {
	original := expense("txn_1", "HOME DEPOT", "-100.00")
	check, err := Validate(original, []Part{
		{Amount: dec("75.00"), Category: "Repairs & Maintenance"},
	})
	require.NoError(t, err)
	assert.True(t, check.Remainder.Equal(dec("25.00")))
}

func TestValidate_Rejections(t *testing.T) {
	original := expense("txn_1", "HOME DEPOT", "-100.00")

	cases := map[string][]Part{
		"no parts":        nil,
		"zero amount":     {{Amount: decimal.Zero, Category: "Supplies"}},
		"negative amount": {{Amount: dec("-10.00"), Category: "Supplies"}},
		"no category":     {{Amount: dec("10.00")}},
	}
	for name, parts := range cases {
		_, err := Validate(original, parts)
		var invalidErr *InvalidSplitError
		assert.ErrorAs(t, err, &invalidErr, name)
	}
}

func TestValidate_EpsilonAbsorbsFloatNoise(t *testing.T) {
	original := expense("txn_1", "HOME DEPOT", "-100.00")
	// 100.004 quantizes to 100.00; comparison must not reject it.
	check, err := Validate(original, []Part{
		{Amount: decimal.NewFromFloat(100.004), Category: "Supplies"},
	})
	require.NoError(t, err)
	assert.True(t, check.TotalSplitAmount.Equal(dec("100.00")))
}

func TestSplit_PersistsSignedParts(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.InsertTransactions([]model.Transaction{expense("txn_1", "HOME DEPOT", "-100.00")}))

	svc := NewService(s)
	check, err := svc.Split("txn_1", []Part{
		{Amount: dec("60.00"), Category: "Repairs & Maintenance"},
		{Amount: dec("40.00"), Category: "Office Supplies"},
	})
	require.NoError(t, err)
	assert.True(t, check.Remainder.IsZero())

	parts := s.SplitParts("txn_1")
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.True(t, p.Amount.IsNegative(), "expense parts carry the original's sign")
		assert.Equal(t, model.TypeExpense, p.Type)
		assert.Equal(t, "txn_1", p.SplitParentID)
	}

	original, ok := s.GetTransaction("txn_1")
	require.True(t, ok)
	assert.True(t, original.Split, "original is hidden, not deleted")
	assert.True(t, original.Amount.Equal(dec("-100.00")))
}

func TestSplit_IncomePartsStayPositive(t *testing.T) {
	s := openStore(t)
	income := expense("txn_1", "CLIENT PAYMENT", "250.00")
	income.Type = model.TypeIncome
	require.NoError(t, s.InsertTransactions([]model.Transaction{income}))

	svc := NewService(s)
	_, err := svc.Split("txn_1", []Part{
		{Amount: dec("250.00"), Category: "Business Income"},
	})
	require.NoError(t, err)

	parts := s.SplitParts("txn_1")
	require.Len(t, parts, 1)
	assert.True(t, parts[0].Amount.Equal(dec("250.00")))
}

func TestSplit_AlreadySplitRejected(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.InsertTransactions([]model.Transaction{expense("txn_1", "HOME DEPOT", "-100.00")}))

	svc := NewService(s)
	_, err := svc.Split("txn_1", []Part{{Amount: dec("100.00"), Category: "Supplies"}})
	require.NoError(t, err)

	_, err = svc.Split("txn_1", []Part{{Amount: dec("100.00"), Category: "Supplies"}})
	var invalidErr *InvalidSplitError
	assert.ErrorAs(t, err, &invalidErr)
}

func TestUnsplit_RestoresOriginal(t *testing.T) {
	s := openStore(t)
	before := expense("txn_1", "HOME DEPOT", "-100.00")
	require.NoError(t, s.InsertTransactions([]model.Transaction{before}))

	svc := NewService(s)
	_, err := svc.Split("txn_1", []Part{
		{Amount: dec("60.00"), Category: "Repairs & Maintenance"},
		{Amount: dec("40.00"), Category: "Office Supplies"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Unsplit("txn_1"))

	after, ok := s.GetTransaction("txn_1")
	require.True(t, ok)
	assert.False(t, after.Split)
	assert.True(t, after.Amount.Equal(before.Amount), "numerically identical to pre-split original")
	assert.Empty(t, s.SplitParts("txn_1"))
}

func TestUnsplit_Idempotent(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.InsertTransactions([]model.Transaction{expense("txn_1", "HOME DEPOT", "-100.00")}))

	svc := NewService(s)
	assert.NoError(t, svc.Unsplit("txn_1"))
	assert.NoError(t, svc.Unsplit("txn_1"))
}

func TestUnsplit_UnknownTransaction(t *testing.T) {
	svc := NewService(openStore(t))
	assert.Error(t, svc.Unsplit("txn_missing"))
}

func TestBulkSplit_CollectsPerItemOutcomes(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.InsertTransactions([]model.Transaction{
		expense("txn_1", "HOME DEPOT", "-100.00"),
		expense("txn_2", "ULINE", "-50.00"),
	}))

	svc := NewService(s)
	results := svc.BulkSplit([]BulkItem{
		{TransactionID: "txn_1", Parts: []Part{{Amount: dec("100.00"), Category: "Supplies"}}},
		{TransactionID: "txn_2", Parts: []Part{{Amount: dec("99.00"), Category: "Supplies"}}},
	})
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)

	require.Error(t, results[1].Err)
	var invalidErr *InvalidSplitError
	assert.True(t, errors.As(results[1].Err, &invalidErr))

	// The good item committed even though its sibling failed.
	assert.Len(t, s.SplitParts("txn_1"), 1)
	assert.Empty(t, s.SplitParts("txn_2"))
}
