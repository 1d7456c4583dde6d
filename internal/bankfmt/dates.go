package bankfmt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ParseDateToken resolves a statement date token against the statement
// year. It accepts "MM/DD" and "MM/DD/YYYY". Malformed tokens (missing
// separator, missing month or day, out-of-range values) return nil so
// the caller can flag the owning row instead of aborting the parse.
func ParseDateToken(token string, year int) *time.Time {
	token = strings.TrimSpace(token)
	if token == "" || !strings.Contains(token, "/") {
		return nil
	}

	parts := strings.Split(token, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return nil
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil
		}
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return nil
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > 31 {
		return nil
	}
	if len(parts) == 3 {
		y, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil
		}
		if y < 100 {
			y += 2000
		}
		year = y
	}
	if year == 0 {
		return nil
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject normalized overflow like 02/31.
	if int(d.Month()) != month || d.Day() != day {
		return nil
	}
	return &d
}

// statementYear finds the statement's stated year in free-form header
// text such as "March 01, 2025 through March 31, 2025". Returns 0 when
// no year appears.
func statementYear(text string) int {
	m := yearPattern.FindString(text)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}
