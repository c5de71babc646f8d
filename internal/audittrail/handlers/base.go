// Package handlers holds the built-in audit trail event handlers.
package handlers

import (
	"context"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
)

// Base is a no-op handler; embed it and override what you need.
type Base struct{}

func (Base) Create(context.Context, *models.CreateContext) error { return nil }

func (Base) Filter(context.Context, *query.FilterContext) error { return nil }
