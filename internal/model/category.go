package model

import "time"

// Category represents an expense category. A category may be associated with
// zero or more funds; when the association set is non-empty, only those funds
// are admissible as the source of an expense in the category.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	ID          int64
	IsActive    bool
}
