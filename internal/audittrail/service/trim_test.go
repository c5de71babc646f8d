package service

import (
	"context"
	"time"

	prom "github.com/prometheus/client_golang/prometheus/testutil"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	dErrors "audittrail/pkg/domain-errors"
)

type deleteObserver struct {
	deleted *[]string
}

func (deleteObserver) Create(context.Context, *models.CreateContext) error { return nil }

func (deleteObserver) Filter(context.Context, *query.FilterContext) error { return nil }

func (o deleteObserver) Deleted(_ context.Context, e *models.AuditEvent) error {
	*o.deleted = append(*o.deleted, e.ID)
	return nil
}

func (s *ServiceSuite) recordAt(at time.Time) {
	s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default", CreatedUTC: &at}))
}

func (s *ServiceSuite) TestTrimThreshold() {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s.Equal(time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC), TrimThreshold(now, 10*24*time.Hour))
}

func (s *ServiceSuite) TestTrim() {
	s.Run("deletes events at or before the threshold only", func() {
		s.store.Clear()
		threshold := TrimThreshold(s.now, 10*24*time.Hour)
		s.recordAt(threshold.Add(-time.Second))
		s.recordAt(threshold)
		s.recordAt(threshold.Add(time.Second))

		n, err := s.service.Trim(s.ctx, 10*24*time.Hour)
		s.Require().NoError(err)
		s.Equal(2, n)
		remaining := s.all()
		s.Require().Len(remaining, 1)
		s.True(remaining[0].CreatedUTC.After(threshold))
	})

	s.Run("is idempotent", func() {
		n, err := s.service.Trim(s.ctx, 10*24*time.Hour)
		s.Require().NoError(err)
		s.Equal(0, n)
	})

	s.Run("drains across batches and notifies delete hooks", func() {
		s.store.Clear()
		for i := 0; i < 7; i++ {
			s.recordAt(s.now.AddDate(0, 0, -30).Add(time.Duration(i) * time.Minute))
		}
		var deleted []string
		svc := s.newService(WithTrimBatchSize(3), WithEventHandlers(deleteObserver{deleted: &deleted}))

		n, err := svc.Trim(s.ctx, 10*24*time.Hour)
		s.Require().NoError(err)
		s.Equal(7, n)
		s.Len(deleted, 7)
		s.Empty(s.all())
	})
}

func (s *ServiceSuite) TestTrimThirtyDayRetention() {
	s.store.Clear()
	s.recordAt(s.now.AddDate(0, 0, -40))
	s.recordAt(s.now.AddDate(0, 0, -10))

	n, err := s.service.Trim(s.ctx, 30*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, n)

	remaining := s.all()
	s.Require().Len(remaining, 1)
	s.Equal(s.now.AddDate(0, 0, -10), remaining[0].CreatedUTC)
}

// TestTrimRetentionScenario seeds one event per day for 40 days and trims
// with a 10 day retention: only the 9 newest days survive.
func (s *ServiceSuite) TestTrimRetentionScenario() {
	s.store.Clear()
	for day := 0; day < 40; day++ {
		s.recordAt(s.now.AddDate(0, 0, -day))
	}

	n, err := s.service.Trim(s.ctx, 10*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(31, n)

	threshold := TrimThreshold(s.now, 10*24*time.Hour)
	remaining := s.all()
	s.Len(remaining, 9)
	for _, e := range remaining {
		s.True(e.CreatedUTC.After(threshold))
	}
	s.GreaterOrEqual(prom.ToFloat64(s.metrics.EventsTrimmed), 31.0)
}

func (s *ServiceSuite) TestTrimWithSettingsUsesRetention() {
	s.store.Clear()
	s.saveSettings(func(st *models.Settings) { st.RetentionDays = 3 })
	s.recordAt(s.now.AddDate(0, 0, -5))
	s.recordAt(s.now.AddDate(0, 0, -1))

	n, err := s.service.TrimWithSettings(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *ServiceSuite) TestDeleteEvent() {
	s.store.Clear()
	s.recordAt(s.now)
	id := s.all()[0].ID
	var deleted []string
	svc := s.newService(WithEventHandlers(deleteObserver{deleted: &deleted}))

	s.Require().NoError(svc.DeleteEvent(s.ctx, id))
	s.Equal([]string{id}, deleted)
	s.Empty(s.all())

	err := svc.DeleteEvent(s.ctx, id)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestUpdateSettings() {
	s.Run("stores valid settings", func() {
		st := models.DefaultSettings()
		st.RetentionDays = 30
		st.SetEventEnabled("Test.Optional", true)
		s.Require().NoError(s.service.UpdateSettings(s.ctx, st))

		got, err := s.service.Settings(s.ctx)
		s.Require().NoError(err)
		s.Equal(30, got.RetentionDays)
		es, ok := got.EventSetting("Test.Optional")
		s.True(ok)
		s.True(es.IsEnabled)
	})

	s.Run("rejects invalid settings", func() {
		st := models.DefaultSettings()
		st.RetentionDays = 0
		s.True(dErrors.HasCode(s.service.UpdateSettings(s.ctx, st), dErrors.CodeValidation))

		st = models.DefaultSettings()
		st.EventSettings = []models.EventSetting{{EventName: "A.B"}, {EventName: "A.B"}}
		s.True(dErrors.HasCode(s.service.UpdateSettings(s.ctx, st), dErrors.CodeValidation))

		s.True(dErrors.HasCode(s.service.UpdateSettings(s.ctx, nil), dErrors.CodeBadRequest))
	})
}
