package providers

import (
	"context"
	"fmt"
	"strings"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/internal/audittrail/registry"
)

const (
	ContentProviderName = "content"
	ContentCategory     = "Content"

	// ContentItemIDKey is both the event data key producers set and the
	// search filter key.
	ContentItemIDKey     = "ContentItemId"
	ContentItemFilterKey = "contentItemId"
	contentPayloadKey    = "ContentItem"
)

// Content item lifecycle events.
const (
	ContentCreated     = "Created"
	ContentSaved       = "Saved"
	ContentPublished   = "Published"
	ContentUnpublished = "Unpublished"
	ContentRemoved     = "Removed"
	ContentCloned      = "Cloned"
	ContentRestored    = "Restored"
)

// Content declares content item events. Events are correlated by content
// item id so an item's history can be listed on its own.
type Content struct{}

func NewContent() *Content { return &Content{} }

func (*Content) Name() string { return ContentProviderName }

func (p *Content) Describe(dc *registry.DescribeContext) error {
	dc.For(p, ContentCategory, "Content").
		Event(ContentCreated, "Created", "A content item was created.", buildContentEvent, registry.EnabledByDefault()).
		Event(ContentSaved, "Saved", "A content item was saved.", buildContentEvent, registry.EnabledByDefault()).
		Event(ContentPublished, "Published", "A content item was published.", buildContentEvent, registry.EnabledByDefault()).
		Event(ContentUnpublished, "Unpublished", "A content item was unpublished.", buildContentEvent, registry.EnabledByDefault()).
		Event(ContentRemoved, "Removed", "A content item was deleted.", buildContentEvent, registry.EnabledByDefault()).
		Event(ContentCloned, "Cloned", "A content item was cloned.", buildContentEvent).
		Event(ContentRestored, "Restored", "A content item was restored to a previous version.", buildContentEvent, registry.EnabledByDefault())
	dc.QueryFilter(filterByContentItem)
	return nil
}

func buildContentEvent(event *models.AuditEvent, data map[string]any) {
	if id, ok := data[ContentItemIDKey]; ok && id != nil {
		event.CorrelationID = fmt.Sprint(id)
	}
	event.Put(contentPayloadKey, data)
}

func filterByContentItem(_ context.Context, fc *query.FilterContext) error {
	if fc.Filters == nil {
		return nil
	}
	value, _ := fc.Filters.Get(ContentItemFilterKey)
	id := strings.TrimSpace(value)
	if id == "" {
		return nil
	}
	fc.Query.Where(query.Eq(query.FieldCorrelationID, id))
	return nil
}
