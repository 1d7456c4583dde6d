// Package id generates the opaque identifiers used across the pipeline.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Prefixes keep IDs self-describing in logs and CSV files.
const (
	txnPrefix   = "txn_"
	rulePrefix  = "rule_"
	batchPrefix = "imp_"
)

// NewTransaction returns a new transaction ID.
func NewTransaction() string {
	return txnPrefix + uuid.NewString()
}

// NewRule returns a new classification rule ID.
func NewRule() string {
	return rulePrefix + uuid.NewString()
}

// NewBatch returns a new import batch ID.
func NewBatch() string {
	return batchPrefix + uuid.NewString()
}

// IsTransaction reports whether s looks like a transaction ID.
func IsTransaction(s string) bool {
	return strings.HasPrefix(s, txnPrefix)
}
