// Package postgres stores audit events in PostgreSQL. Fixed attributes are
// columns; the open payload is a JSONB document.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/query"
	"audittrail/pkg/platform/sentinel"
	txcontext "audittrail/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const eventColumns = `id, category, event_name, full_event_name, user_name, created_utc,
	comment, client_ip_address, event_filter_key, event_filter_data, correlation_id, payload`

// Searches tolerate uncommitted rows; PostgreSQL treats this as read committed.
var readOptions = &sql.TxOptions{Isolation: sql.LevelReadUncommitted, ReadOnly: true}

// Store implements service.Store over database/sql.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit event store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the events table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit trail schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Save(ctx context.Context, event *models.AuditEvent) error {
	payload, err := marshalPayload(event.Payload)
	if err != nil {
		return err
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_trail_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		event.ID,
		event.Category,
		event.EventName,
		event.FullEventName,
		event.UserName,
		event.CreatedUTC.UTC(),
		event.Comment,
		event.ClientIPAddress,
		event.EventFilterKey,
		event.EventFilterData,
		event.CorrelationID,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.AuditEvent, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM audit_trail_events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// List returns every event matching q in the requested order.
func (s *Store) List(ctx context.Context, q *query.Query, order models.OrderBy) ([]*models.AuditEvent, error) {
	where, args := buildWhere(q)
	stmt := `SELECT ` + eventColumns + ` FROM audit_trail_events` + where + orderClause(order)

	var events []*models.AuditEvent
	err := txcontext.Run(ctx, s.db, readOptions, func(ctx context.Context) error {
		rows, err := s.execer(ctx).QueryContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("query audit events: %w", err)
		}
		defer rows.Close()
		events, err = scanEvents(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListCreatedBefore returns up to limit events created at or before
// threshold, oldest first. A non-positive limit returns all of them.
func (s *Store) ListCreatedBefore(ctx context.Context, threshold time.Time, limit int) ([]*models.AuditEvent, error) {
	stmt := `SELECT ` + eventColumns + ` FROM audit_trail_events
		WHERE created_utc <= $1
		ORDER BY created_utc ASC, id ASC`
	args := []any{threshold.UTC()}
	if limit > 0 {
		stmt += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query expired audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Delete removes an event. Deleting a missing event is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM audit_trail_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete audit event: %w", err)
	}
	return nil
}

func orderClause(order models.OrderBy) string {
	switch order {
	case models.OrderByCategoryAscending:
		return ` ORDER BY category COLLATE "C" ASC, id COLLATE "C" DESC`
	case models.OrderByEventAscending:
		return ` ORDER BY event_name COLLATE "C" ASC, id COLLATE "C" DESC`
	default:
		return ` ORDER BY created_utc DESC, id COLLATE "C" DESC`
	}
}

// buildWhere translates q into a parameterized WHERE clause.
func buildWhere(q *query.Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	conds := q.Conditions()
	if len(conds) == 0 {
		return "", nil
	}

	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	for _, c := range conds {
		col := string(c.Field)
		switch c.Op {
		case query.OpEq:
			clauses = append(clauses, col+" = "+next(c.Value))
		case query.OpIn:
			clauses = append(clauses, col+" = ANY("+next(c.Values)+")")
		case query.OpContains:
			clauses = append(clauses, col+" ILIKE "+next("%"+escapeLike(c.Value)+"%"))
		case query.OpSince:
			clauses = append(clauses, "created_utc >= "+next(c.Time.UTC()))
		case query.OpUntil:
			clauses = append(clauses, "created_utc <= "+next(c.Time.UTC()))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func marshalPayload(p models.Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.AuditEvent, error) {
	var (
		e       models.AuditEvent
		payload []byte
	)
	err := row.Scan(
		&e.ID,
		&e.Category,
		&e.EventName,
		&e.FullEventName,
		&e.UserName,
		&e.CreatedUTC,
		&e.Comment,
		&e.ClientIPAddress,
		&e.EventFilterKey,
		&e.EventFilterData,
		&e.CorrelationID,
		&payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit event: %w", err)
	}
	e.CreatedUTC = e.CreatedUTC.UTC()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]*models.AuditEvent, error) {
	events := []*models.AuditEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
