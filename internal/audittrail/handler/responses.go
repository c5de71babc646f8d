package handler

import (
	"time"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/registry"
)

type eventResponse struct {
	ID              string         `json:"id"`
	Category        string         `json:"category"`
	EventName       string         `json:"event_name"`
	FullEventName   string         `json:"full_event_name"`
	UserName        string         `json:"user_name"`
	CreatedUTC      time.Time      `json:"created_utc"`
	Comment         string         `json:"comment,omitempty"`
	ClientIPAddress string         `json:"client_ip_address,omitempty"`
	EventFilterKey  string         `json:"event_filter_key,omitempty"`
	EventFilterData string         `json:"event_filter_data,omitempty"`
	CorrelationID   string         `json:"correlation_id,omitempty"`
	Payload         models.Payload `json:"payload,omitempty"`
}

type searchResponse struct {
	Events     []eventResponse     `json:"events"`
	TotalCount int                 `json:"total_count"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	OrderBy    string              `json:"order_by"`
	Filters    map[string]string   `json:"filters"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

type descriptorResponse struct {
	EventName           string `json:"event_name"`
	FullEventName       string `json:"full_event_name"`
	DisplayName         string `json:"display_name"`
	Description         string `json:"description,omitempty"`
	Category            string `json:"category"`
	CategoryDisplayName string `json:"category_display_name"`
	IsMandatory         bool   `json:"is_mandatory"`
	IsEnabledByDefault  bool   `json:"is_enabled_by_default"`
}

type eventDetailResponse struct {
	Event      eventResponse      `json:"event"`
	Descriptor descriptorResponse `json:"descriptor"`
}

type categoryResponse struct {
	Category     string               `json:"category"`
	DisplayName  string               `json:"display_name"`
	ProviderName string               `json:"provider_name,omitempty"`
	Contributors []string             `json:"contributors,omitempty"`
	Events       []descriptorResponse `json:"events"`
}

func toEventResponse(e *models.AuditEvent) eventResponse {
	return eventResponse{
		ID:              e.ID,
		Category:        e.Category,
		EventName:       e.EventName,
		FullEventName:   e.FullEventName,
		UserName:        e.UserName,
		CreatedUTC:      e.CreatedUTC,
		Comment:         e.Comment,
		ClientIPAddress: e.ClientIPAddress,
		EventFilterKey:  e.EventFilterKey,
		EventFilterData: e.EventFilterData,
		CorrelationID:   e.CorrelationID,
		Payload:         e.Payload,
	}
}

func toEventResponses(events []*models.AuditEvent) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out
}

func toDescriptorResponse(d *registry.EventDescriptor) descriptorResponse {
	resp := descriptorResponse{
		EventName:          d.EventName,
		FullEventName:      d.FullEventName,
		DisplayName:        d.DisplayName,
		Description:        d.Description,
		IsMandatory:        d.IsMandatory,
		IsEnabledByDefault: d.IsEnabledByDefault,
	}
	if d.Category != nil {
		resp.Category = d.Category.Category
		resp.CategoryDisplayName = d.Category.DisplayName
	}
	return resp
}

func toCategoryResponse(c *registry.CategoryDescriptor) categoryResponse {
	events := make([]descriptorResponse, 0, len(c.Events))
	for _, e := range c.Events {
		events = append(events, toDescriptorResponse(e))
	}
	return categoryResponse{
		Category:     c.Category,
		DisplayName:  c.DisplayName,
		ProviderName: c.ProviderName,
		Contributors: c.Contributors,
		Events:       events,
	}
}

func filterMap(f *models.Filters) map[string]string {
	out := make(map[string]string, f.Len())
	for _, k := range f.Keys() {
		v, _ := f.Get(k)
		out[k] = v
	}
	return out
}
