package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	prom "github.com/prometheus/client_golang/prometheus/testutil"

	"audittrail/internal/audittrail/metrics"
	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	dErrors "audittrail/pkg/domain-errors"
)

type filterFunc func(ctx context.Context, fc *query.FilterContext) error

type filterHandler struct {
	filter filterFunc
}

func (filterHandler) Create(context.Context, *models.CreateContext) error { return nil }

func (h filterHandler) Filter(ctx context.Context, fc *query.FilterContext) error {
	return h.filter(ctx, fc)
}

func (s *ServiceSuite) seed(n int) []*models.AuditEvent {
	for i := 0; i < n; i++ {
		at := s.now.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{
			EventName:  "Default",
			UserName:   fmt.Sprintf("user-%02d", i),
			CreatedUTC: &at,
		}))
	}
	return s.all()
}

func (s *ServiceSuite) TestSearchPagination() {
	all := s.seed(25)

	s.Run("first page starts with the newest event", func() {
		res, err := s.service.Search(s.ctx, 1, 10, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Equal(25, res.TotalCount)
		s.Require().Len(res.Events, 10)
		s.Equal(all[0].ID, res.Events[0].ID)
		s.Equal("user-24", res.Events[0].UserName)
	})

	s.Run("second page of ten", func() {
		res, err := s.service.Search(s.ctx, 2, 10, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Equal(25, res.TotalCount)
		s.Require().Len(res.Events, 10)
		s.Equal(all[10].ID, res.Events[0].ID)
		s.Equal(all[19].ID, res.Events[9].ID)
		s.Equal("user-14", res.Events[0].UserName)
	})

	s.Run("last partial page", func() {
		res, err := s.service.Search(s.ctx, 3, 10, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Len(res.Events, 5)
	})

	s.Run("page past the end is empty but counted", func() {
		res, err := s.service.Search(s.ctx, 9, 10, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Empty(res.Events)
		s.Equal(25, res.TotalCount)
	})

	s.Run("huge page number is empty", func() {
		res, err := s.service.Search(s.ctx, math.MaxInt/2, 4, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Empty(res.Events)
		s.Equal(25, res.TotalCount)

		res, err = s.service.Search(s.ctx, math.MaxInt, math.MaxInt, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Empty(res.Events)
	})

	s.Run("non-positive size returns everything", func() {
		res, err := s.service.Search(s.ctx, 1, 0, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Len(res.Events, 25)

		res, err = s.service.Search(s.ctx, 1, -5, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Len(res.Events, 25)
	})

	s.Run("page below one is rejected", func() {
		_, err := s.service.Search(s.ctx, 0, 10, nil, models.OrderByDateDescending)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown order is rejected", func() {
		_, err := s.service.Search(s.ctx, 1, 10, nil, models.OrderBy(42))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestSearchDateOrderBreaksTiesOnID() {
	at := s.now
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default", CreatedUTC: &at}))
	}

	res, err := s.service.Search(s.ctx, 1, 0, nil, models.OrderByDateDescending)
	s.Require().NoError(err)
	for i := 1; i < len(res.Events); i++ {
		s.Greater(res.Events[i-1].ID, res.Events[i].ID)
	}
}

func (s *ServiceSuite) TestSearchFilters() {
	s.seed(3)

	s.Run("handler then provider filters narrow the query", func() {
		var order []string
		s.provider.filter = func(_ context.Context, fc *query.FilterContext) error {
			order = append(order, "provider")
			if v, ok := fc.Filters.Get("user"); ok {
				fc.Query.Where(query.Eq(query.FieldUserName, v))
			}
			return nil
		}
		svc := s.newService(WithEventHandlers(filterHandler{filter: func(context.Context, *query.FilterContext) error {
			order = append(order, "handler")
			return nil
		}}))

		res, err := svc.Search(s.ctx, 1, 10, models.NewFilters(nil).Add("user", "user-01"), models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Equal([]string{"handler", "provider"}, order)
		s.Equal(1, res.TotalCount)
		s.Equal("user-01", res.Events[0].UserName)
	})

	s.Run("filter hooks are skipped without filters", func() {
		called := false
		svc := s.newService(WithEventHandlers(filterHandler{filter: func(context.Context, *query.FilterContext) error {
			called = true
			return nil
		}}))
		_, err := svc.Search(s.ctx, 1, 10, nil, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.False(called)
	})

	s.Run("failing filter hooks are logged and skipped", func() {
		s.provider.filter = func(context.Context, *query.FilterContext) error { panic("bad filter") }
		svc := s.newService(WithEventHandlers(filterHandler{filter: func(context.Context, *query.FilterContext) error {
			return errors.New("bad handler")
		}}))

		res, err := svc.Search(s.ctx, 1, 10, models.NewFilters(nil), models.OrderByDateDescending)
		s.Require().NoError(err)
		s.Equal(3, res.TotalCount)
		s.Equal(1.0, prom.ToFloat64(s.metrics.HookFailures.WithLabelValues(metrics.StageFilter)))
		s.Equal(1.0, prom.ToFloat64(s.metrics.HookFailures.WithLabelValues(metrics.StageProvider)))
	})

	s.Run("validation errors do not stop the query", func() {
		s.provider.filter = nil
		svc := s.newService(WithEventHandlers(filterHandler{filter: func(_ context.Context, fc *query.FilterContext) error {
			fc.Filters.Validation.AddError("from", "invalid")
			return nil
		}}))
		filters := models.NewFilters(nil)
		res, err := svc.Search(s.ctx, 1, 10, filters, models.OrderByDateDescending)
		s.Require().NoError(err)
		s.False(filters.Validation.IsValid())
		s.Equal(3, res.TotalCount)
	})
}

func (s *ServiceSuite) TestGetEventAndDescribe() {
	events := s.seed(1)

	s.Run("returns a stored event with its descriptor", func() {
		e, err := s.service.GetEvent(s.ctx, events[0].ID)
		s.Require().NoError(err)
		d := s.service.DescribeEvent(s.ctx, e)
		s.Equal("Test.Default", d.FullEventName)
		s.True(d.IsEnabledByDefault)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.GetEvent(s.ctx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("orphaned event gets a basic descriptor", func() {
		orphan := &models.AuditEvent{ID: "o", Category: "Gone", EventName: "Away", FullEventName: "Gone.Away"}
		d := s.service.DescribeEvent(s.ctx, orphan)
		s.Equal("Gone.Away", d.FullEventName)
		s.Equal("Gone", d.Category.Category)
	})
}
