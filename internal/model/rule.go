package model

import "time"

// ClassificationRule maps description keywords to a tax category.
// Rules are user-owned; among matching active rules the highest
// priority wins, ties break by most recent creation.
type ClassificationRule struct {
	ID        string
	Keywords  []string // lowercase substrings matched against descriptions
	Category  string
	Priority  int
	IsActive  bool
	CreatedAt time.Time
}
