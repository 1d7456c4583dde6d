package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tallyhq/tally/internal/model"
)

// RuleHeader is the CSV header for rules.csv.
const RuleHeader = "id,keywords,category,priority,is_active,created_at"

const (
	ruleNumFields  = 6
	ruleColID      = 0
	ruleColKeys    = 1
	ruleColCat     = 2
	ruleColPrio    = 3
	ruleColActive  = 4
	ruleColCreated = 5
)

// ReadRules reads all rules from a rules.csv reader.
func ReadRules(r io.Reader) ([]model.ClassificationRule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = ruleNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rules CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var rules []model.ClassificationRule
	for i, rec := range records[1:] {
		rule, err := UnmarshalRule(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// WriteRules writes rules to a writer (including header).
func WriteRules(w io.Writer, rules []model.ClassificationRule) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(RuleHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rule := range rules {
		if err := cw.Write(MarshalRule(rule)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalRule converts a ClassificationRule to a CSV row.
// Keywords are semicolon-separated.
func MarshalRule(rule model.ClassificationRule) []string {
	row := make([]string, ruleNumFields)
	row[ruleColID] = rule.ID
	row[ruleColKeys] = strings.Join(rule.Keywords, ";")
	row[ruleColCat] = rule.Category
	row[ruleColPrio] = strconv.Itoa(rule.Priority)
	row[ruleColActive] = strconv.FormatBool(rule.IsActive)
	row[ruleColCreated] = rule.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

// UnmarshalRule converts a CSV row to a ClassificationRule.
func UnmarshalRule(record []string) (model.ClassificationRule, error) {
	if len(record) != ruleNumFields {
		return model.ClassificationRule{}, fmt.Errorf("expected %d fields, got %d", ruleNumFields, len(record))
	}

	priority, err := strconv.Atoi(record[ruleColPrio])
	if err != nil {
		return model.ClassificationRule{}, fmt.Errorf("parsing priority %q: %w", record[ruleColPrio], err)
	}

	active, err := strconv.ParseBool(record[ruleColActive])
	if err != nil {
		return model.ClassificationRule{}, fmt.Errorf("parsing is_active %q: %w", record[ruleColActive], err)
	}

	createdAt, err := time.Parse(time.RFC3339, record[ruleColCreated])
	if err != nil {
		return model.ClassificationRule{}, fmt.Errorf("parsing created_at %q: %w", record[ruleColCreated], err)
	}

	var keywords []string
	if record[ruleColKeys] != "" {
		keywords = strings.Split(record[ruleColKeys], ";")
	}

	return model.ClassificationRule{
		ID:        record[ruleColID],
		Keywords:  keywords,
		Category:  record[ruleColCat],
		Priority:  priority,
		IsActive:  active,
		CreatedAt: createdAt,
	}, nil
}
