package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresStore is an event store implementation on PostgreSQL using a
// composite primary key on (originator_id, version). Appends run in one
// transaction; a unique violation on the key is the
// optimistic-concurrency rejection.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// GetPostgresStore returns a new store over an open database handle.
// table must be a trusted identifier; it is interpolated into SQL.
func GetPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "events"
	}
	return &PostgresStore{db: db, table: table}
}

// EnsureSchema creates the events table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			originator_id TEXT  NOT NULL,
			version       INT   NOT NULL,
			event_data    BYTEA NOT NULL,
			PRIMARY KEY (originator_id, version)
		)`, s.table))
	return err
}

// Save implements the EventStore interface
func (s *PostgresStore) Save(ctx context.Context, originatorID string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	// the batch itself must be contiguous; the primary key alone would
	// accept holes between its members
	for i, r := range records {
		if r.Version != records[0].Version+i {
			return fmt.Errorf("%w: expected version %d for %s, got %d", ErrVersionConflict, records[0].Version+i, originatorID, r.Version)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var max int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s WHERE originator_id = $1", s.table),
		originatorID,
	).Scan(&max)
	if err != nil {
		return err
	}
	if max > 0 && records[0].Version != max+1 {
		return fmt.Errorf("%w: expected version %d for %s, got %d", ErrVersionConflict, max+1, originatorID, records[0].Version)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (originator_id, version, event_data) VALUES ($1, $2, $3)", s.table)
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, stmt, originatorID, r.Version, r.Data); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return fmt.Errorf("%w: competing write for %s at version %d", ErrVersionConflict, originatorID, r.Version)
			}
			return err
		}
	}

	return tx.Commit()
}

// Load implements the EventStore interface
func (s *PostgresStore) Load(ctx context.Context, originatorID string, fromVersion, toVersion int) (History, error) {
	query := fmt.Sprintf("SELECT version, event_data FROM %s WHERE originator_id = $1 AND version >= $2", s.table)
	args := []interface{}{originatorID, fromVersion}
	if toVersion > 0 {
		query += " AND version <= $3"
		args = append(args, toVersion)
	}
	query += " ORDER BY version"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := History{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Version, &r.Data); err != nil {
			return nil, err
		}
		history = append(history, r)
	}
	return history, rows.Err()
}
