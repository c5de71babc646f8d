package handlers

import (
	"context"
	"strings"
	"time"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	liststrings "audittrail/pkg/platform/strings"
	"audittrail/pkg/requestcontext"
)

// Filter keys understood by Common.
const (
	FilterCategory = "category"
	FilterEvent    = "event"
	FilterUser     = "user"
	FilterIP       = "ip"
	FilterFrom     = "from"
	FilterTo       = "to"
)

// DateLayout is the format of the from and to filters.
const DateLayout = "2006-01-02"

// RequestIDKey is the event data key the request id is stamped under.
const RequestIDKey = "RequestId"

// Common applies the standard search filters and stamps the request id on
// new events.
type Common struct {
	Base
}

func NewCommon() *Common { return &Common{} }

func (*Common) Create(ctx context.Context, cc *models.CreateContext) error {
	reqID := requestcontext.RequestID(ctx)
	if reqID == "" {
		return nil
	}
	if _, set := cc.EventData[RequestIDKey]; set {
		return nil
	}
	if cc.EventData == nil {
		cc.EventData = make(map[string]any)
	}
	cc.EventData[RequestIDKey] = reqID
	return nil
}

// Filter narrows the query by category, event name, user, client address
// and creation date range. Malformed dates are reported on the filters'
// validation context and otherwise ignored.
func (*Common) Filter(_ context.Context, fc *query.FilterContext) error {
	f := fc.Filters
	if f == nil {
		return nil
	}

	if v, ok := f.Get(FilterCategory); ok {
		if categories := liststrings.SplitList(v); len(categories) > 0 {
			fc.Query.Where(query.In(query.FieldCategory, categories...))
		}
	}
	if v, ok := f.Get(FilterEvent); ok {
		if events := liststrings.SplitList(v); len(events) > 0 {
			fc.Query.Where(query.In(query.FieldEventName, events...))
		}
	}
	if v, ok := f.Get(FilterUser); ok && strings.TrimSpace(v) != "" {
		fc.Query.Where(query.Contains(query.FieldUserName, strings.TrimSpace(v)))
	}
	if v, ok := f.Get(FilterIP); ok && strings.TrimSpace(v) != "" {
		fc.Query.Where(query.Eq(query.FieldClientIP, strings.TrimSpace(v)))
	}

	from, fromOK := parseDate(f, FilterFrom)
	to, toOK := parseDate(f, FilterTo)
	if fromOK && toOK && to.Before(from) {
		f.Validation.AddError(FilterTo, "to must not be before from")
		return nil
	}
	if fromOK {
		fc.Query.Where(query.Since(from))
	}
	if toOK {
		// Inclusive of the whole day.
		fc.Query.Where(query.Until(to.Add(24*time.Hour - time.Nanosecond)))
	}
	return nil
}

func parseDate(f *models.Filters, key string) (time.Time, bool) {
	v, ok := f.Get(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(v), time.UTC)
	if err != nil {
		f.Validation.AddError(key, "must be a date formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
