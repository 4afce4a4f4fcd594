// Package postgres persists audit events in the directory's Postgres database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "extid/pkg/platform/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS external_id_audit_events (
	id          UUID PRIMARY KEY,
	category    TEXT NOT NULL,
	action      TEXT NOT NULL,
	app_id      TEXT NOT NULL,
	identifier  TEXT NOT NULL,
	study_id    TEXT,
	reason      TEXT,
	request_id  TEXT,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS external_id_audit_events_identifier_idx
	ON external_id_audit_events (app_id, identifier, occurred_at);`

// Store implements audit.Store on Postgres.
type Store struct {
	db *sql.DB
}

// New creates a Postgres audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts one event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_id_audit_events
			(id, category, action, app_id, identifier, study_id, reason, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(),
		string(category),
		event.Action,
		event.AppID,
		event.Identifier,
		nullString(event.StudyID),
		nullString(event.Reason),
		nullString(event.RequestID),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByIdentifier returns the events for one identifier, oldest first.
func (s *Store) ListByIdentifier(ctx context.Context, appID, identifier string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, action, app_id, identifier, study_id, reason, request_id, occurred_at
		FROM external_id_audit_events
		WHERE app_id = $1 AND identifier = $2
		ORDER BY occurred_at, id`,
		appID, identifier,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                           audit.Event
			category                    string
			studyID, reason, requestID sql.NullString
		)
		if err := rows.Scan(&category, &e.Action, &e.AppID, &e.Identifier, &studyID, &reason, &requestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.StudyID = studyID.String
		e.Reason = reason.String
		e.RequestID = requestID.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
