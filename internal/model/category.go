package model

import "strings"

// Uncategorized is the category assigned when no classifier is confident.
const Uncategorized = "Uncategorized"

// Categories is the closed tax-category vocabulary. The normalizer,
// both classification tiers, and every export consumer share this one
// list; a category string outside it is a bug, not a style choice.
var Categories = []string{
	"Business Income",
	"Interest Income",
	"Other Income",
	"Advertising",
	"Bank Service Charges",
	"Car & Truck Expenses",
	"Commissions & Fees",
	"Contract Labor",
	"Insurance",
	"Interest Paid",
	"Legal & Professional Services",
	"Meals & Entertainment",
	"Office Supplies",
	"Rent & Lease",
	"Repairs & Maintenance",
	"Software & Subscriptions",
	"Supplies",
	"Taxes & Licenses",
	"Travel",
	"Utilities",
	"Wages",
	"Owner Draw",
	"Owner Contribution",
	"Transfer",
	Uncategorized,
}

var categoryIndex = func() map[string]string {
	m := make(map[string]string, len(Categories))
	for _, c := range Categories {
		m[normalizeCategory(c)] = c
	}
	return m
}()

// CanonicalCategory maps a free-form category string onto the closed
// vocabulary, tolerating case and whitespace differences. It returns
// the canonical spelling and whether the category is known.
func CanonicalCategory(name string) (string, bool) {
	c, ok := categoryIndex[normalizeCategory(name)]
	return c, ok
}

func normalizeCategory(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
