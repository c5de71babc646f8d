// Package handler exposes the audit trail admin HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/registry"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/httputil"
)

// DefaultPageSize applies when the request does not set pageSize.
const DefaultPageSize = 10

// Reserved query keys; every other key is a search filter.
const (
	paramPage     = "page"
	paramPageSize = "pageSize"
	paramOrderBy  = "orderBy"
)

// Service is the audit trail surface the admin API needs.
type Service interface {
	Search(ctx context.Context, page, pageSize int, filters *models.Filters, orderBy models.OrderBy) (*models.SearchResults, error)
	GetEvent(ctx context.Context, id string) (*models.AuditEvent, error)
	DescribeEvent(ctx context.Context, event *models.AuditEvent) *registry.EventDescriptor
	DeleteEvent(ctx context.Context, id string) error
	Categories(ctx context.Context) []*registry.CategoryDescriptor
	Settings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, settings *models.Settings) error
	TrimWithSettings(ctx context.Context) (int, error)
}

// Handler serves /admin/audittrail.
type Handler struct {
	service         Service
	logger          *slog.Logger
	defaultPageSize int
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithDefaultPageSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.defaultPageSize = n
		}
	}
}

// New creates a new audit trail admin Handler.
func New(service Service, opts ...Option) *Handler {
	h := &Handler{
		service:         service,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultPageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the admin routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/audittrail", func(r chi.Router) {
		r.Get("/events", h.handleSearch)
		r.Get("/events/{eventID}", h.handleGetEvent)
		r.Delete("/events/{eventID}", h.handleDeleteEvent)
		r.Get("/categories", h.handleCategories)
		r.Get("/settings", h.handleGetSettings)
		r.Put("/settings", h.handlePutSettings)
		r.Post("/trim", h.handleTrim)
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()

	page, err := intParam(values.Get(paramPage), 1)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "page must be an integer"))
		return
	}
	pageSize, err := intParam(values.Get(paramPageSize), h.defaultPageSize)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "pageSize must be an integer"))
		return
	}
	orderBy, err := models.ParseOrderBy(values.Get(paramOrderBy))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "orderBy must be one of date, category, event"))
		return
	}

	values.Del(paramPage)
	values.Del(paramPageSize)
	values.Del(paramOrderBy)
	filters := models.FiltersFrom(values, models.NewValidation())

	results, err := h.service.Search(ctx, page, pageSize, filters, orderBy)
	if err != nil {
		h.writeServiceError(ctx, w, "audit trail search failed", err)
		return
	}

	resp := searchResponse{
		Events:     toEventResponses(results.Events),
		TotalCount: results.TotalCount,
		Page:       page,
		PageSize:   pageSize,
		OrderBy:    orderBy.String(),
		Filters:    filterMap(filters),
	}
	// An invalid search shows no rows but still reports how many matched.
	if !filters.Validation.IsValid() {
		resp.Events = []eventResponse{}
		resp.Errors = filters.Validation.Errors()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	event, err := h.service.GetEvent(ctx, chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeServiceError(ctx, w, "audit trail event lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eventDetailResponse{
		Event:      toEventResponse(event),
		Descriptor: toDescriptorResponse(h.service.DescribeEvent(ctx, event)),
	})
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "eventID")
	if err := h.service.DeleteEvent(ctx, id); err != nil {
		h.writeServiceError(ctx, w, "audit trail event delete failed", err)
		return
	}
	h.logger.InfoContext(ctx, "audit event deleted by admin", "event_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.service.Categories(r.Context())
	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, toCategoryResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"categories": resp})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := h.service.Settings(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "audit trail settings load failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.logger.WarnContext(ctx, "invalid settings request", "error", err.Error())
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	// The last sweep time belongs to the sweeper; an omitted value keeps it.
	if settings.Trimming.LastRunUTC == nil {
		current, err := h.service.Settings(ctx)
		if err != nil {
			h.writeServiceError(ctx, w, "audit trail settings load failed", err)
			return
		}
		settings.Trimming.LastRunUTC = current.Trimming.LastRunUTC
	}
	if err := h.service.UpdateSettings(ctx, &settings); err != nil {
		h.writeServiceError(ctx, w, "audit trail settings update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &settings)
}

func (h *Handler) handleTrim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deleted, err := h.service.TrimWithSettings(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "audit trail trim failed", err)
		return
	}
	h.logger.InfoContext(ctx, "audit trail trimmed on demand", "deleted", deleted)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// writeServiceError logs server-side failures and writes the mapped error.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "error", err)
	}
	httputil.WriteError(w, err)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
