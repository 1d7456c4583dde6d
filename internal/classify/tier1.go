// Package classify assigns tax categories to canonical transactions.
// Tier 1 is deterministic rule and keyword matching; Tier 2 batches the
// leftovers through an external model. Neither tier ever touches a
// transaction's type.
package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

// Result is the output contract shared by both tiers.
type Result struct {
	Category    string
	Subcategory string
	Payee       string
	Confidence  decimal.Decimal
	NeedsReview bool
}

// Confidence levels for Tier 1 outcomes.
var (
	userRuleConfidence = decimal.NewFromFloat(0.95)
	keywordConfidence  = decimal.NewFromFloat(0.8)
	noMatchConfidence  = decimal.NewFromFloat(0.3)
)

// builtinKeyword is one entry of the built-in heuristic table, applied
// only when no user rule matches.
type builtinKeyword struct {
	txnType  model.TransactionType
	keyword  string
	category string
}

var builtinKeywords = []builtinKeyword{
	{model.TypeIncome, "DEPOSIT", "Business Income"},
	{model.TypeIncome, "INVOICE", "Business Income"},
	{model.TypeIncome, "INTEREST", "Interest Income"},
	{model.TypeIncome, "REFUND", "Other Income"},
	{model.TypeExpense, "FEE", "Bank Service Charges"},
	{model.TypeExpense, "SERVICE CHARGE", "Bank Service Charges"},
	{model.TypeExpense, "INSURANCE", "Insurance"},
	{model.TypeExpense, "PAYROLL", "Wages"},
	{model.TypeExpense, "SUBSCRIPTION", "Software & Subscriptions"},
	{model.TypeExpense, "RENT", "Rent & Lease"},
	{model.TypeExpense, "UTILITY", "Utilities"},
	{model.TypeExpense, "AIRLINE", "Travel"},
	{model.TypeTransfer, "TRANSFER", "Transfer"},
}

// Ruleset is an immutable snapshot of the user's classification rules,
// taken once at the start of a run so rule edits cannot tear an
// in-flight classification pass.
type Ruleset struct {
	rules     []model.ClassificationRule // active, priority desc, newest first on ties
	threshold decimal.Decimal
}

// NewRuleset snapshots the given rules. Confidence below threshold
// marks a result as needing review.
func NewRuleset(rules []model.ClassificationRule, threshold decimal.Decimal) *Ruleset {
	active := make([]model.ClassificationRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return &Ruleset{rules: active, threshold: threshold}
}

// Classify runs Tier 1 on a single transaction. It is a pure function
// of the snapshot and the transaction fields: re-running it on an
// already-classified transaction yields the same result.
func (rs *Ruleset) Classify(txn model.Transaction) Result {
	desc := strings.ToLower(txn.Description)
	payee := ExtractPayee(txn.Description)

	for _, rule := range rs.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(desc, strings.ToLower(kw)) {
				return rs.finish(Result{
					Category:   rule.Category,
					Payee:      payee,
					Confidence: userRuleConfidence,
				})
			}
		}
	}

	upper := strings.ToUpper(txn.Description)
	for _, b := range builtinKeywords {
		if b.txnType == txn.Type && strings.Contains(upper, b.keyword) {
			return rs.finish(Result{
				Category:   b.category,
				Payee:      payee,
				Confidence: keywordConfidence,
			})
		}
	}

	return rs.finish(Result{
		Category:   model.Uncategorized,
		Payee:      payee,
		Confidence: noMatchConfidence,
	})
}

// ClassifyAll runs Tier 1 over a set of transactions, keyed by ID.
func (rs *Ruleset) ClassifyAll(txns []model.Transaction) map[string]Result {
	out := make(map[string]Result, len(txns))
	for _, txn := range txns {
		out[txn.ID] = rs.Classify(txn)
	}
	return out
}

func (rs *Ruleset) finish(r Result) Result {
	r.NeedsReview = r.Confidence.LessThan(rs.threshold)
	return r
}

var checkPattern = regexp.MustCompile(`(?i)^check\s*#?\s*\d+`)

// ExtractPayee derives a payee from a raw description: the first
// whitespace-delimited token. Check descriptions are the exception:
// banks print only a check number, so the payee stays empty to signal
// that manual vendor assignment is needed.
func ExtractPayee(description string) string {
	description = strings.TrimSpace(description)
	if description == "" || checkPattern.MatchString(description) {
		return ""
	}
	fields := strings.Fields(description)
	return fields[0]
}
