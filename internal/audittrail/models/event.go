package models

import (
	"strings"
	"time"
)

// EmptyUserName is stored when an event is recorded without an acting user.
const EmptyUserName = "[empty]"

// Payload is the open, provider-populated part of an event.
type Payload map[string]any

// AuditEvent is a persisted audit record. Once saved it is never mutated;
// the only lifecycle transitions are create and delete.
type AuditEvent struct {
	ID              string    `json:"id"`
	Category        string    `json:"category"`
	EventName       string    `json:"event_name"`
	FullEventName   string    `json:"full_event_name"`
	UserName        string    `json:"user_name"`
	CreatedUTC      time.Time `json:"created_utc"`
	Comment         string    `json:"comment,omitempty"`
	ClientIPAddress string    `json:"client_ip_address,omitempty"`
	EventFilterKey  string    `json:"event_filter_key,omitempty"`
	EventFilterData string    `json:"event_filter_data,omitempty"`
	// CorrelationID links the event to an external record (a content item for
	// content events) and backs the content-scoped secondary index.
	CorrelationID string  `json:"correlation_id,omitempty"`
	Payload       Payload `json:"payload,omitempty"`
}

// Put stores a payload value under key.
func (e *AuditEvent) Put(key string, value any) {
	if e.Payload == nil {
		e.Payload = make(Payload)
	}
	e.Payload[key] = value
}

// Get returns the payload value stored under key.
func (e *AuditEvent) Get(key string) (any, bool) {
	v, ok := e.Payload[key]
	return v, ok
}

// FullEventName joins a category and a local event name into the unique key
// used by settings overrides and descriptor lookups.
func FullEventName(category, eventName string) string {
	return category + "." + eventName
}

// NewlinesToHTML converts raw line breaks into <br /> markup. The output has
// no raw line breaks left, so applying it again is a no-op.
func NewlinesToHTML(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "<br />")
}
