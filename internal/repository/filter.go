package repository

import (
	"fmt"
	"strings"
)

// SortAscending is the only sort value that yields ascending price order;
// any other non-empty value sorts by price descending.
const SortAscending = "ascending"

// DefaultPageSize is used when the filter does not carry a configured size.
const DefaultPageSize = 10

// ProductFilter describes an ephemeral, per-request search/filter window.
// All match fields are optional and combine with AND.
type ProductFilter struct {
	Search   string   // case-insensitive substring match on name
	MaxPrice *float64 // price <= MaxPrice
	Category string   // exact match
	Sort     string   // "" = natural store order
	Page     int      // 1-based; values < 1 collapse to 1
	PageSize int
}

// Normalize returns a copy with pagination defaults applied.
func (f ProductFilter) Normalize() ProductFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	return f
}

// Offset is the number of rows skipped to reach the requested page.
func (f ProductFilter) Offset() int {
	return f.PageSize * (f.Page - 1)
}

// whereClause builds the parameterized WHERE clause shared by the page query
// and the companion count query. Returns an empty clause when no match field
// is set.
func (f ProductFilter) whereClause() (string, []any) {
	conditions := []string{}
	args := []any{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// orderClause maps the sort parameter to an ORDER BY on price.
func (f ProductFilter) orderClause() string {
	switch f.Sort {
	case "":
		return ""
	case SortAscending:
		return "ORDER BY price ASC"
	default:
		return "ORDER BY price DESC"
	}
}
