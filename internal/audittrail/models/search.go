package models

import "fmt"

// OrderBy selects one of the supported total orderings of a search.
type OrderBy int

const (
	// OrderByDateDescending sorts newest first. It is the default.
	OrderByDateDescending OrderBy = iota
	OrderByCategoryAscending
	OrderByEventAscending
)

var orderByNames = map[OrderBy]string{
	OrderByDateDescending:    "date",
	OrderByCategoryAscending: "category",
	OrderByEventAscending:    "event",
}

func (o OrderBy) String() string {
	if name, ok := orderByNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OrderBy(%d)", int(o))
}

// Valid reports whether o is one of the declared orderings.
func (o OrderBy) Valid() bool {
	_, ok := orderByNames[o]
	return ok
}

// ParseOrderBy accepts the query-string names of the orderings. An empty
// value selects the default.
func ParseOrderBy(s string) (OrderBy, error) {
	switch s {
	case "", "date", "DateDescending":
		return OrderByDateDescending, nil
	case "category", "CategoryAscending":
		return OrderByCategoryAscending, nil
	case "event", "EventAscending":
		return OrderByEventAscending, nil
	}
	return OrderByDateDescending, fmt.Errorf("unknown order %q", s)
}

// SearchResults is one page of events plus the count before pagination.
type SearchResults struct {
	Events     []*AuditEvent
	TotalCount int
}
