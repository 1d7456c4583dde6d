package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/model"
)

// Request is one transaction submitted to the Tier 2 model.
type Request struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Type        model.TransactionType
}

// wireResult is the JSON shape the model is asked to return.
type wireResult struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Vendor      string  `json:"vendor"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// buildPrompt serializes a batch into the compact line format
// id|description|amount|type, preceded by the closed category list and
// the domain heuristics that keep the model inside that vocabulary.
func buildPrompt(reqs []Request) string {
	var b strings.Builder

	b.WriteString("You are a bookkeeping assistant classifying bank transactions ")
	b.WriteString("into tax categories for a small business.\n\n")

	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range model.Categories {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Heuristics:\n")
	b.WriteString("- Negative amounts are money out (expenses); positive amounts are money in (income).\n")
	b.WriteString("- Never assign an income category to a negative amount or an expense category to a positive one.\n")
	b.WriteString("- Recognizable vendor names (e.g. GITHUB, ULINE, DELTA AIR) decide the category; ")
	b.WriteString("extract the vendor into the \"vendor\" field.\n")
	b.WriteString("- Transfers between the business's own accounts are \"Transfer\".\n")
	b.WriteString("- If unsure, use \"Uncategorized\" with a low confidence.\n\n")

	b.WriteString("Transactions (one per line, id|description|amount|type):\n")
	for _, r := range reqs {
		fmt.Fprintf(&b, "%s|%s|%s|%s\n", r.ID, sanitizeLine(r.Description), r.Amount.StringFixed(2), r.Type)
	}
	b.WriteString("\n")

	b.WriteString("Return ONLY a raw JSON array, one object per transaction:\n")
	b.WriteString(`[{"id":"...","category":"...","subcategory":"","vendor":"","confidence":0.0,"reasoning":""}]` + "\n")
	b.WriteString("Confidence is between 0 and 1. Do not wrap the response in code fences.\n")

	return b.String()
}

// sanitizeLine keeps the pipe-delimited prompt lines unambiguous.
func sanitizeLine(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	return strings.Join(strings.Fields(s), " ")
}

// decodeResults parses the model's response. It tolerates markdown code
// fences and responses truncated mid-array by the output token limit:
// for a truncated array it salvages every syntactically complete
// element instead of discarding the batch.
func decodeResults(raw string) ([]wireResult, error) {
	clean := stripFences(raw)

	var results []wireResult
	if err := json.Unmarshal([]byte(clean), &results); err == nil {
		return results, nil
	}

	// Truncation recovery: cut back to the last complete element and
	// close the array there.
	if idx := strings.LastIndex(clean, "},"); idx != -1 {
		candidate := clean[:idx+1] + "]"
		if err := json.Unmarshal([]byte(candidate), &results); err == nil {
			return results, nil
		}
	}

	return nil, fmt.Errorf("response is not a JSON array")
}

// stripFences removes markdown code fences the model sometimes adds
// despite instructions, then trims to the outermost array brackets.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		s = s[start:]
		if end := strings.LastIndex(s, "]"); end != -1 {
			s = s[:end+1]
		}
	}
	return strings.TrimSpace(s)
}
