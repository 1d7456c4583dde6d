package bankfmt

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/model"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestChaseCSV_Parse(t *testing.T) {
	p := &ChaseCSVParser{}
	stmt, err := p.Parse(strings.NewReader(readFixture(t, "chase_checking.csv")))
	require.NoError(t, err)
	require.Len(t, stmt.Transactions, 6)
	assert.Empty(t, stmt.Flagged)

	first := stmt.Transactions[0]
	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", first.Description)
	assert.Equal(t, "-4.00", first.Amount.StringFixed(2))
	assert.Equal(t, model.TypeExpense, first.Type)
	assert.Equal(t, 2025, first.Date.Year())
	assert.Equal(t, 1, int(first.Date.Month()))
	assert.Equal(t, 3, first.Date.Day())

	income := stmt.Transactions[3]
	assert.Equal(t, model.TypeIncome, income.Type)
	assert.True(t, income.Amount.IsPositive())

	check := stmt.Transactions[4]
	assert.Equal(t, "CHECK #1234", check.Description)
	assert.Equal(t, model.TypeExpense, check.Type)
	assert.Empty(t, check.Payee)
}

func TestChaseCSV_TypeFromDetailsColumn(t *testing.T) {
	// A positive amount in a DEBIT row: the column wins over the sign.
	csv := "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
		"DEBIT,01/03/2025,REFUND REVERSAL,4.00,ACH_DEBIT,100.00,\n"
	p := &ChaseCSVParser{}
	stmt, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, stmt.Transactions, 1)
	assert.Equal(t, model.TypeExpense, stmt.Transactions[0].Type)
}

func TestChaseCSV_MalformedDateFlagsRow(t *testing.T) {
	csv := "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
		"DEBIT,NOTADATE,desc,-4.00,ACH_DEBIT,100.00,\n" +
		"DEBIT,01/05/2025,good row,-5.00,ACH_DEBIT,95.00,\n"
	p := &ChaseCSVParser{}
	stmt, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, stmt.Transactions, 1)
	require.Len(t, stmt.Flagged, 1)
	assert.Equal(t, 2, stmt.Flagged[0].Line)
	assert.Contains(t, stmt.Flagged[0].Reason, "malformed date")
}

func TestChaseCSV_BadAmountFlagsRow(t *testing.T) {
	csv := "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
		"DEBIT,01/03/2025,desc,NOTANUMBER,ACH_DEBIT,100.00,\n"
	p := &ChaseCSVParser{}
	stmt, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, stmt.Transactions)
	require.Len(t, stmt.Flagged, 1)
	assert.Contains(t, stmt.Flagged[0].Reason, "parsing amount")
}

func TestChaseCSV_HeaderOnly(t *testing.T) {
	p := &ChaseCSVParser{}
	stmt, err := p.Parse(strings.NewReader("Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n"))
	require.NoError(t, err)
	assert.Empty(t, stmt.Transactions)
}

func TestChasePDF_Parse(t *testing.T) {
	p := &ChasePDFParser{}
	stmt, err := p.Parse(strings.NewReader(readFixture(t, "chase_statement.txt")))
	require.NoError(t, err)

	// 2 deposits + 2 checks + 2 card + 1 electronic + 1 fee.
	require.Len(t, stmt.Transactions, 8)

	deposits := 0
	for _, txn := range stmt.Transactions {
		if txn.Type == model.TypeIncome {
			deposits++
			assert.True(t, txn.Amount.IsPositive())
		} else {
			assert.True(t, txn.Amount.IsNegative(), "expense %q must be negative", txn.Description)
		}
		assert.Equal(t, 2025, txn.Date.Year(), "year resolved from statement header")
		assert.Equal(t, 3, int(txn.Date.Month()))
	}
	assert.Equal(t, 2, deposits)
}

func TestChasePDF_ChecksHaveNoPayee(t *testing.T) {
	p := &ChasePDFParser{}
	stmt, err := p.Parse(strings.NewReader(readFixture(t, "chase_statement.txt")))
	require.NoError(t, err)

	var checks []model.Transaction
	for _, txn := range stmt.Transactions {
		if strings.HasPrefix(txn.Description, "CHECK #") {
			checks = append(checks, txn)
		}
	}
	require.Len(t, checks, 2)
	for _, c := range checks {
		assert.Empty(t, c.Payee)
		assert.Equal(t, model.TypeExpense, c.Type)
	}
	assert.Equal(t, "CHECK #1231", checks[0].Description)
	assert.Equal(t, "-450.00", checks[0].Amount.StringFixed(2))
	assert.Equal(t, 6, checks[0].Date.Day())
}

func TestChasePDF_MalformedDateFlagged(t *testing.T) {
	p := &ChasePDFParser{}
	stmt, err := p.Parse(strings.NewReader(readFixture(t, "chase_statement.txt")))
	require.NoError(t, err)

	require.Len(t, stmt.Flagged, 1)
	assert.Contains(t, stmt.Flagged[0].Raw, "Mystery Vendor")
	assert.Contains(t, stmt.Flagged[0].Reason, "malformed date")
}
