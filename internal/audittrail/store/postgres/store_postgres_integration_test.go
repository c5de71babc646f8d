//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/internal/audittrail/store/postgres"
	"audittrail/pkg/platform/sentinel"
	"audittrail/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	base     time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_trail_events"))
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) newEvent(category, name string, created time.Time) *models.AuditEvent {
	id, err := uuid.NewV7()
	s.Require().NoError(err)
	e := &models.AuditEvent{
		ID:            id.String(),
		Category:      category,
		EventName:     name,
		FullEventName: models.FullEventName(category, name),
		UserName:      "admin",
		CreatedUTC:    created,
		Comment:       "line one<br />line two",
	}
	e.Put(name, map[string]any{"UserName": "admin"})
	return e
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	e := s.newEvent("User", "LoggedIn", s.base)
	e.CorrelationID = "item-1"
	e.ClientIPAddress = "203.0.113.7"
	s.Require().NoError(s.store.Save(ctx, e))

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.FullEventName, found.FullEventName)
	s.Equal(e.CorrelationID, found.CorrelationID)
	s.Equal(e.ClientIPAddress, found.ClientIPAddress)
	s.True(e.CreatedUTC.Equal(found.CreatedUTC))
	payload, ok := found.Get("LoggedIn")
	s.Require().True(ok)
	s.Equal(map[string]any{"UserName": "admin"}, payload)

	_, err = s.store.FindByID(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFiltersAndOrders() {
	ctx := context.Background()
	older := s.newEvent("User", "LoggedIn", s.base)
	newer := s.newEvent("Content", "Published", s.base.Add(time.Hour))
	newer.CorrelationID = "item-9"
	s.Require().NoError(s.store.Save(ctx, older))
	s.Require().NoError(s.store.Save(ctx, newer))

	events, err := s.store.List(ctx, nil, models.OrderByDateDescending)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(newer.ID, events[0].ID)

	events, err = s.store.List(ctx, query.New().Where(query.Eq(query.FieldCorrelationID, "item-9")), models.OrderByDateDescending)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(newer.ID, events[0].ID)

	events, err = s.store.List(ctx, query.New().Where(query.In(query.FieldCategory, "User")), models.OrderByCategoryAscending)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(older.ID, events[0].ID)

	events, err = s.store.List(ctx, query.New().Where(query.Contains(query.FieldUserName, "ADM")), models.OrderByEventAscending)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *PostgresStoreSuite) TestListCreatedBeforeAndDelete() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Save(ctx, s.newEvent("User", fmt.Sprintf("E%d", i), s.base.Add(time.Duration(i)*time.Hour))))
	}

	expired, err := s.store.ListCreatedBefore(ctx, s.base.Add(2*time.Hour), 2)
	s.Require().NoError(err)
	s.Require().Len(expired, 2)
	s.Equal("E0", expired[0].EventName)
	s.Equal("E1", expired[1].EventName)

	for _, e := range expired {
		s.Require().NoError(s.store.Delete(ctx, e.ID))
		s.Require().NoError(s.store.Delete(ctx, e.ID))
	}

	remaining, err := s.store.List(ctx, nil, models.OrderByDateDescending)
	s.Require().NoError(err)
	s.Len(remaining, 3)
}
