package service

import (
	"context"
	"errors"
	"time"

	prom "github.com/prometheus/client_golang/prometheus/testutil"

	"audittrail/internal/audittrail/metrics"
	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/internal/audittrail/registry"
	"audittrail/pkg/requestcontext"
)

// orderedHandler logs its name on every create call and optionally mutates
// or fails.
type orderedHandler struct {
	name   string
	calls  *[]string
	create func(cc *models.CreateContext) error
}

func (h orderedHandler) Create(_ context.Context, cc *models.CreateContext) error {
	*h.calls = append(*h.calls, h.name)
	if h.create != nil {
		return h.create(cc)
	}
	return nil
}

func (orderedHandler) Filter(context.Context, *query.FilterContext) error { return nil }

func (s *ServiceSuite) TestRecordEvent() {
	s.Run("persists an enabled event with descriptor identity", func() {
		s.store.Clear()
		err := s.service.RecordEvent(s.ctx, "test", models.RecordRequest{
			EventName: "Default",
			UserName:  "alice",
			EventData: map[string]any{"k": "v"},
			Comment:   "first\r\nsecond",
		})
		s.Require().NoError(err)

		events := s.all()
		s.Require().Len(events, 1)
		e := events[0]
		s.NotEmpty(e.ID)
		s.Equal("Test", e.Category)
		s.Equal("Default", e.EventName)
		s.Equal("Test.Default", e.FullEventName)
		s.Equal("alice", e.UserName)
		s.Equal(s.now, e.CreatedUTC)
		s.Equal("first<br />second", e.Comment)
		payload, ok := e.Get("Default")
		s.Require().True(ok)
		s.Equal(map[string]any{"k": "v"}, payload)
	})

	s.Run("unknown provider or event is a no-op", func() {
		s.store.Clear()
		s.Require().NoError(s.service.RecordEvent(s.ctx, "nobody", models.RecordRequest{EventName: "Default"}))
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Missing"}))
		s.Empty(s.all())
		s.Equal(2.0, prom.ToFloat64(s.metrics.EventsSkipped.WithLabelValues(metrics.SkipUnknown)))
	})

	s.Run("missing user name falls back to the empty marker", func() {
		s.store.Clear()
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default", UserName: "  "}))
		s.Equal(models.EmptyUserName, s.all()[0].UserName)
	})

	s.Run("explicit timestamp wins over the clock", func() {
		s.store.Clear()
		at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default", CreatedUTC: &at}))
		got := s.all()[0].CreatedUTC
		s.True(at.Equal(got))
		s.Equal(time.UTC, got.Location())
	})
}

func (s *ServiceSuite) TestEnablement() {
	s.Run("disabled by default is not persisted", func() {
		s.store.Clear()
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Optional"}))
		s.Empty(s.all())
		s.Equal(1.0, prom.ToFloat64(s.metrics.EventsSkipped.WithLabelValues(metrics.SkipDisabled)))
	})

	s.Run("settings override enables and disables", func() {
		s.store.Clear()
		s.saveSettings(func(st *models.Settings) {
			st.SetEventEnabled("Test.Optional", true)
			st.SetEventEnabled("Test.Default", false)
		})
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Optional"}))
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default"}))

		events := s.all()
		s.Require().Len(events, 1)
		s.Equal("Test.Optional", events[0].FullEventName)
	})

	s.Run("mandatory events ignore overrides", func() {
		s.store.Clear()
		s.saveSettings(func(st *models.Settings) {
			st.SetEventEnabled("Test.Required", false)
		})
		s.Require().NoError(s.service.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Required"}))
		s.Len(s.all(), 1)
	})
}

func (s *ServiceSuite) TestClientAddress() {
	ctx := requestcontext.WithClientMetadata(s.ctx, "198.51.100.4", "")

	s.Run("not captured when disabled", func() {
		s.store.Clear()
		s.saveSettings(func(st *models.Settings) { st.EnableClientIPAddressLogging = false })
		s.Require().NoError(s.service.RecordEvent(ctx, "test", models.RecordRequest{EventName: "Default"}))
		s.Empty(s.all()[0].ClientIPAddress)
	})

	s.Run("captured from the request when enabled", func() {
		s.store.Clear()
		s.saveSettings(func(st *models.Settings) { st.EnableClientIPAddressLogging = true })
		s.Require().NoError(s.service.RecordEvent(ctx, "test", models.RecordRequest{EventName: "Default"}))
		s.Equal("198.51.100.4", s.all()[0].ClientIPAddress)
	})

	s.Run("explicit address always wins", func() {
		s.store.Clear()
		s.saveSettings(func(st *models.Settings) { st.EnableClientIPAddressLogging = false })
		s.Require().NoError(s.service.RecordEvent(ctx, "test", models.RecordRequest{EventName: "Default", ClientIPAddress: "192.0.2.1"}))
		s.Equal("192.0.2.1", s.all()[0].ClientIPAddress)
	})
}

func (s *ServiceSuite) TestCreateHooks() {
	s.Run("run in registration order and may rewrite the context", func() {
		s.store.Clear()
		var calls []string
		svc := s.newService(WithEventHandlers(
			orderedHandler{name: "first", calls: &calls, create: func(cc *models.CreateContext) error {
				cc.UserName = "rewritten"
				cc.EventData["added"] = true
				return nil
			}},
			orderedHandler{name: "second", calls: &calls},
		))

		s.Require().NoError(svc.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default", UserName: "alice"}))
		s.Equal([]string{"first", "second"}, calls)
		e := s.all()[0]
		s.Equal("rewritten", e.UserName)
		payload, _ := e.Get("Default")
		s.Equal(true, payload.(map[string]any)["added"])
	})

	s.Run("a failing or panicking hook does not stop recording", func() {
		s.store.Clear()
		var calls []string
		svc := s.newService(WithEventHandlers(
			orderedHandler{name: "fails", calls: &calls, create: func(*models.CreateContext) error { return errors.New("boom") }},
			orderedHandler{name: "panics", calls: &calls, create: func(*models.CreateContext) error { panic("boom") }},
			orderedHandler{name: "last", calls: &calls},
		))

		s.Require().NoError(svc.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default"}))
		s.Equal([]string{"fails", "panics", "last"}, calls)
		s.Len(s.all(), 1)
		s.Equal(2.0, prom.ToFloat64(s.metrics.HookFailures.WithLabelValues(metrics.StageCreate)))
	})

	s.Run("producer data map is not mutated by hooks", func() {
		s.store.Clear()
		var calls []string
		svc := s.newService(WithEventHandlers(orderedHandler{name: "h", calls: &calls, create: func(cc *models.CreateContext) error {
			cc.EventData["added"] = true
			return nil
		}}))
		data := map[string]any{"k": "v"}
		s.Require().NoError(svc.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default", EventData: data}))
		s.NotContains(data, "added")
	})
}

func (s *ServiceSuite) TestBuilderPanicStillPersists() {
	s.provider.build = func(*models.AuditEvent, map[string]any) { panic("bad builder") }
	svc := s.newService()

	s.Require().NoError(svc.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default"}))
	s.Len(s.all(), 1)
	s.Equal(1.0, prom.ToFloat64(s.metrics.HookFailures.WithLabelValues(metrics.StageBuild)))
}

func (s *ServiceSuite) TestClockTimestampsAreMonotonic() {
	svc := s.newService(WithClock(func(context.Context) time.Time { return time.Now() }))
	for i := 0; i < 20; i++ {
		s.Require().NoError(svc.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default"}))
	}

	events := s.all()
	s.Require().Len(events, 20)
	for i := 1; i < len(events); i++ {
		// newest first
		s.False(events[i].CreatedUTC.After(events[i-1].CreatedUTC))
		s.Greater(events[i-1].ID, events[i].ID)
	}
}

func (s *ServiceSuite) TestFailingProviderDoesNotBlockOthers() {
	bad := &failingProvider{}
	reg := registry.New([]registry.Provider{bad, s.provider})
	svc, err := New(reg, s.store, s.settings, WithClock(func(context.Context) time.Time { return s.now }))
	s.Require().NoError(err)

	s.Require().NoError(svc.RecordEvent(s.ctx, "test", models.RecordRequest{EventName: "Default"}))
	s.Len(s.all(), 1)
	s.Len(svc.Categories(s.ctx), 1)
}

type failingProvider struct{}

func (*failingProvider) Name() string { return "broken" }

func (p *failingProvider) Describe(dc *registry.DescribeContext) error {
	dc.For(p, "Broken", "Broken").Event("Half", "Half", "", nil)
	return errors.New("describe failed")
}

func (s *ServiceSuite) TestProviderExtendingSharedCategory() {
	extension := &stubProvider{
		name:     "extension",
		category: "Test",
		order:    []string{"Extra"},
		events:   map[string][]registry.EventOption{"Extra": {registry.EnabledByDefault()}},
	}
	reg := registry.New([]registry.Provider{s.provider, extension})
	svc, err := New(reg, s.store, s.settings, WithClock(func(context.Context) time.Time { return s.now }))
	s.Require().NoError(err)

	s.Require().NoError(svc.RecordEvent(s.ctx, "extension", models.RecordRequest{EventName: "Extra"}))

	events := s.all()
	s.Require().Len(events, 1)
	s.Equal("Test.Extra", events[0].FullEventName)
	s.Len(svc.Categories(s.ctx), 1)
}
