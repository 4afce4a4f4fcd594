// Package sqlstore implements ports.Store on PostgreSQL and SQLite.
//
// Identifiers must sort byte-wise for cursors to be stable, so the Postgres
// schema declares identifier with the "C" collation. SQLite's default BINARY
// collation already compares bytes.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"extid/internal/externalid/models"
	"extid/internal/externalid/store"
	"extid/pkg/platform/sentinel"
)

// Dialect selects the SQL flavour a Store speaks.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS external_ids (
	app_id      TEXT NOT NULL,
	identifier  TEXT COLLATE "C" NOT NULL,
	study_id    TEXT,
	health_code TEXT,
	PRIMARY KEY (app_id, identifier)
)`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS external_ids (
	app_id      TEXT NOT NULL,
	identifier  TEXT NOT NULL,
	study_id    TEXT,
	health_code TEXT,
	PRIMARY KEY (app_id, identifier)
)`

const upsertQuery = `
	INSERT INTO external_ids (app_id, identifier, study_id, health_code)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (app_id, identifier) DO UPDATE SET
		study_id = excluded.study_id,
		health_code = excluded.health_code`

// Store persists external IDs in one table keyed by (app_id, identifier).
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. Call EnsureSchema before first use.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// EnsureSchema creates the external_ids table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := postgresSchema
	if s.dialect == SQLite {
		schema = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create external_ids table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, appID, identifier string) (*models.ExternalID, error) {
	var studyID, healthCode sql.NullString
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT study_id, health_code FROM external_ids WHERE app_id = ? AND identifier = ?`),
		appID, identifier,
	).Scan(&studyID, &healthCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get external id: %w", err)
	}
	return &models.ExternalID{
		AppID:      appID,
		Identifier: identifier,
		StudyID:    studyID.String,
		HealthCode: healthCode.String,
	}, nil
}

func (s *Store) Save(ctx context.Context, externalID *models.ExternalID, guard models.SaveGuard) error {
	if externalID == nil {
		return errors.New("external ID is required")
	}
	studyID := nullString(externalID.StudyID)
	healthCode := nullString(externalID.HealthCode)

	var (
		res sql.Result
		err error
	)
	switch guard {
	case models.GuardUnassigned:
		// An update, never an insert: a deleted record must stay deleted.
		res, err = s.db.ExecContext(ctx,
			s.rebind(`UPDATE external_ids SET study_id = ?, health_code = ?
				WHERE app_id = ? AND identifier = ? AND health_code IS NULL`),
			studyID, healthCode, externalID.AppID, externalID.Identifier,
		)
	default:
		_, err = s.db.ExecContext(ctx, s.rebind(upsertQuery),
			externalID.AppID, externalID.Identifier, studyID, healthCode,
		)
		if err != nil {
			return fmt.Errorf("save external id: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("save external id (guard %s): %w", guard, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save external id rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, appID, identifier string) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM external_ids WHERE app_id = ? AND identifier = ?`),
		appID, identifier,
	)
	if err != nil {
		return fmt.Errorf("delete external id: %w", err)
	}
	return nil
}

// Query reads one row past the limit to learn whether the range continues.
func (s *Store) Query(ctx context.Context, query models.RangeQuery) (*models.RangePage, error) {
	if query.Limit < 1 {
		return nil, errors.New("query limit must be positive")
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT identifier, study_id, health_code FROM external_ids
			WHERE app_id = ? AND identifier > ? AND substr(identifier, 1, ?) = ?
			ORDER BY identifier
			LIMIT ?`),
		query.AppID, query.StartAfter, utf8.RuneCountInString(query.IDPrefix), query.IDPrefix, query.Limit+1,
	)
	if err != nil {
		return nil, fmt.Errorf("query external ids: %w", err)
	}
	defer rows.Close()

	scanned := make([]*models.ExternalID, 0, query.Limit+1)
	for rows.Next() {
		var studyID, healthCode sql.NullString
		record := &models.ExternalID{AppID: query.AppID}
		if err := rows.Scan(&record.Identifier, &studyID, &healthCode); err != nil {
			return nil, fmt.Errorf("scan external id: %w", err)
		}
		record.StudyID = studyID.String
		record.HealthCode = healthCode.String
		scanned = append(scanned, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate external ids: %w", err)
	}

	page := &models.RangePage{}
	if len(scanned) > query.Limit {
		scanned = scanned[:query.Limit]
		page.LastEvaluatedKey = scanned[len(scanned)-1].Identifier
	}
	for _, record := range scanned {
		if query.Assignment.Matches(record) {
			page.Items = append(page.Items, record)
		}
	}
	page.ScannedCount = len(scanned)
	page.ConsumedCapacity = store.EstimateReadCapacity(scanned)
	return page, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
