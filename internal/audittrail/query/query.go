// Package query models the predicates and orderings a search applies to the
// event store. Stores translate a Query into their own access path: the
// in-memory store evaluates Matches, the PostgreSQL store renders SQL.
package query

import (
	"sort"
	"strings"
	"time"

	"audittrail/internal/audittrail/models"
)

// Field names an indexed event attribute that filters can restrict.
type Field string

const (
	FieldCategory        Field = "category"
	FieldEventName       Field = "event_name"
	FieldFullEventName   Field = "full_event_name"
	FieldUserName        Field = "user_name"
	FieldCreatedUTC      Field = "created_utc"
	FieldClientIP        Field = "client_ip_address"
	FieldEventFilterKey  Field = "event_filter_key"
	FieldEventFilterData Field = "event_filter_data"
	FieldCorrelationID   Field = "correlation_id"
)

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpContains // case-insensitive substring
	OpSince    // created at or after
	OpUntil    // created at or before
)

// Condition is a single predicate over one field.
type Condition struct {
	Field  Field
	Op     Op
	Value  string
	Values []string
	Time   time.Time
}

// Eq matches events whose field equals value.
func Eq(f Field, value string) Condition {
	return Condition{Field: f, Op: OpEq, Value: value}
}

// In matches events whose field is one of values.
func In(f Field, values ...string) Condition {
	return Condition{Field: f, Op: OpIn, Values: values}
}

// Contains matches events whose field contains value, ignoring case.
func Contains(f Field, value string) Condition {
	return Condition{Field: f, Op: OpContains, Value: value}
}

// Since matches events created at or after t.
func Since(t time.Time) Condition {
	return Condition{Field: FieldCreatedUTC, Op: OpSince, Time: t}
}

// Until matches events created at or before t.
func Until(t time.Time) Condition {
	return Condition{Field: FieldCreatedUTC, Op: OpUntil, Time: t}
}

// Query is a conjunction of conditions. The zero value matches everything.
type Query struct {
	conditions []Condition
}

// New returns an empty query.
func New() *Query {
	return &Query{}
}

// Where narrows the query with c and returns q for chaining.
func (q *Query) Where(c Condition) *Query {
	q.conditions = append(q.conditions, c)
	return q
}

// Conditions returns the accumulated conditions in the order they were added.
func (q *Query) Conditions() []Condition {
	if q == nil {
		return nil
	}
	return append([]Condition(nil), q.conditions...)
}

// Matches reports whether e satisfies every condition.
func (q *Query) Matches(e *models.AuditEvent) bool {
	if q == nil {
		return true
	}
	for _, c := range q.conditions {
		if !c.Matches(e) {
			return false
		}
	}
	return true
}

// Matches reports whether e satisfies c.
func (c Condition) Matches(e *models.AuditEvent) bool {
	switch c.Op {
	case OpSince:
		return !e.CreatedUTC.Before(c.Time)
	case OpUntil:
		return !e.CreatedUTC.After(c.Time)
	}

	v := fieldValue(e, c.Field)
	switch c.Op {
	case OpEq:
		return v == c.Value
	case OpIn:
		for _, candidate := range c.Values {
			if v == candidate {
				return true
			}
		}
		return false
	case OpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	}
	return false
}

func fieldValue(e *models.AuditEvent, f Field) string {
	switch f {
	case FieldCategory:
		return e.Category
	case FieldEventName:
		return e.EventName
	case FieldFullEventName:
		return e.FullEventName
	case FieldUserName:
		return e.UserName
	case FieldClientIP:
		return e.ClientIPAddress
	case FieldEventFilterKey:
		return e.EventFilterKey
	case FieldEventFilterData:
		return e.EventFilterData
	case FieldCorrelationID:
		return e.CorrelationID
	case FieldCreatedUTC:
		return e.CreatedUTC.Format(time.RFC3339Nano)
	}
	return ""
}

// Sort orders events in place. Every ordering breaks ties on ID descending
// so pages stay stable when the primary key repeats.
func Sort(events []*models.AuditEvent, order models.OrderBy) {
	sort.SliceStable(events, func(i, j int) bool {
		return Less(events[i], events[j], order)
	})
}

// Less reports whether a sorts before b under order.
func Less(a, b *models.AuditEvent, order models.OrderBy) bool {
	switch order {
	case models.OrderByCategoryAscending:
		if a.Category != b.Category {
			return a.Category < b.Category
		}
	case models.OrderByEventAscending:
		if a.EventName != b.EventName {
			return a.EventName < b.EventName
		}
	default:
		if !a.CreatedUTC.Equal(b.CreatedUTC) {
			return a.CreatedUTC.After(b.CreatedUTC)
		}
	}
	return a.ID > b.ID
}

// FilterContext is handed to filter hooks and provider query filters. Each
// participant is expected to narrow Query, never to replace it.
type FilterContext struct {
	Query   *Query
	Filters *models.Filters
}

// NewFilterContext wraps q and the request filters.
func NewFilterContext(q *Query, filters *models.Filters) *FilterContext {
	return &FilterContext{Query: q, Filters: filters}
}
