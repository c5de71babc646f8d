package models

import "time"

// RecordRequest is what a producer submits when something auditable happens.
// CreatedUTC and ClientIPAddress override the clock and the request address.
type RecordRequest struct {
	EventName       string
	UserName        string
	EventData       map[string]any
	Comment         string
	EventFilterKey  string
	EventFilterData string
	CreatedUTC      *time.Time
	ClientIPAddress string
}

// CreateContext is handed to creation hooks before an event is materialized.
// Hooks may rewrite any field; the recorder reads it back afterwards.
type CreateContext struct {
	EventName       string
	UserName        string
	EventData       map[string]any
	Comment         string
	EventFilterKey  string
	EventFilterData string
	CreatedUTC      *time.Time
	ClientIPAddress string
}

// NewCreateContext copies a request into a fresh hook context. The event data
// map is copied so hooks cannot mutate the caller's map.
func NewCreateContext(req RecordRequest) *CreateContext {
	data := make(map[string]any, len(req.EventData))
	for k, v := range req.EventData {
		data[k] = v
	}
	return &CreateContext{
		EventName:       req.EventName,
		UserName:        req.UserName,
		EventData:       data,
		Comment:         req.Comment,
		EventFilterKey:  req.EventFilterKey,
		EventFilterData: req.EventFilterData,
		CreatedUTC:      req.CreatedUTC,
		ClientIPAddress: req.ClientIPAddress,
	}
}
