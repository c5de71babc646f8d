package models

import (
	"net/url"
	"sort"
	"strings"
)

// Validation collects filter parsing errors for the caller. A search still
// runs when it is invalid; the caller decides what to show.
type Validation struct {
	errors map[string][]string
}

// NewValidation returns an empty validation context.
func NewValidation() *Validation {
	return &Validation{errors: make(map[string][]string)}
}

// AddError records a message against a filter key.
func (v *Validation) AddError(key, msg string) {
	v.errors[key] = append(v.errors[key], msg)
}

// IsValid reports whether no errors were recorded.
func (v *Validation) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns a copy of the recorded errors.
func (v *Validation) Errors() map[string][]string {
	out := make(map[string][]string, len(v.errors))
	for k, msgs := range v.errors {
		out[k] = append([]string(nil), msgs...)
	}
	return out
}

// Filters is an insertion-ordered set of filter key/values taken from a query
// string, bound to the validation context of the current request.
type Filters struct {
	keys       []string
	values     map[string]string
	Validation *Validation
}

// NewFilters returns empty filters bound to v. A nil v gets a fresh context.
func NewFilters(v *Validation) *Filters {
	if v == nil {
		v = NewValidation()
	}
	return &Filters{values: make(map[string]string), Validation: v}
}

// FiltersFrom builds filters from parsed query values. Multi-valued keys are
// joined with commas; empty values, and keys left without a value, are
// dropped. url.Values has no order, so keys are added sorted to keep hook
// invocation deterministic.
func FiltersFrom(values url.Values, v *Validation) *Filters {
	f := NewFilters(v)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var parts []string
		for _, val := range values[k] {
			if val != "" {
				parts = append(parts, val)
			}
		}
		if k == "" || len(parts) == 0 {
			continue
		}
		f.Add(k, strings.Join(parts, ","))
	}
	return f
}

// Add sets key to value and returns f for chaining.
func (f *Filters) Add(key, value string) *Filters {
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return f
}

// Get returns the value for key.
func (f *Filters) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the filter keys in insertion order.
func (f *Filters) Keys() []string {
	return append([]string(nil), f.keys...)
}

// Len returns the number of filters.
func (f *Filters) Len() int {
	return len(f.keys)
}
