// Package store persists serialized root property objects in SQLite.
//
// A snapshot row holds the object's JSON form as produced by the
// propertyobject serializer. The registry writes a snapshot whenever an
// object changes and reads them all back at startup.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store errors. Check with errors.Is().
var (
	// ErrSnapshotNotFound is returned when no snapshot has the requested ID.
	ErrSnapshotNotFound = errors.New("store: snapshot not found")

	// ErrSnapshotExists is returned when creating a snapshot whose ID or
	// name is taken.
	ErrSnapshotExists = errors.New("store: snapshot already exists")
)

// Snapshot is one persisted root object.
type Snapshot struct {
	ID        string
	Name      string
	ClassName string
	Data      []byte
	Frozen    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository abstracts snapshot persistence so the registry can be tested
// without a database.
type Repository interface {
	// Get returns the snapshot with id, or ErrSnapshotNotFound.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// List returns every snapshot ordered by name.
	List(ctx context.Context) ([]Snapshot, error)

	// Create inserts a new snapshot, or returns ErrSnapshotExists.
	Create(ctx context.Context, s *Snapshot) error

	// Save inserts or replaces the snapshot with s.ID.
	Save(ctx context.Context, s *Snapshot) error

	// Delete removes a snapshot, or returns ErrSnapshotNotFound.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository on the object_snapshots table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, name, class_name, data, frozen, created_at, updated_at FROM object_snapshots`

// Get retrieves a snapshot by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Snapshot, error) {
	s, err := scanSnapshot(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying snapshot by id: %w", err)
	}
	return s, nil
}

// List retrieves all snapshots.
func (r *SQLiteRepository) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// Create inserts a new snapshot. Timestamps are set when zero.
func (r *SQLiteRepository) Create(ctx context.Context, s *Snapshot) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO object_snapshots (id, name, class_name, data, frozen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, nullableString(s.ClassName), string(s.Data), boolToInt(s.Frozen),
		s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSnapshotExists
		}
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// Save upserts a snapshot, keeping the original created_at.
func (r *SQLiteRepository) Save(ctx context.Context, s *Snapshot) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO object_snapshots (id, name, class_name, data, frozen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			class_name = excluded.class_name,
			data = excluded.data,
			frozen = excluded.frozen,
			updated_at = excluded.updated_at`,
		s.ID, s.Name, nullableString(s.ClassName), string(s.Data), boolToInt(s.Frozen),
		s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSnapshotExists
		}
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Delete removes a snapshot by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM object_snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(scanner rowScanner) (*Snapshot, error) {
	var s Snapshot
	var className sql.NullString
	var data, createdAt, updatedAt string
	var frozen int

	if err := scanner.Scan(&s.ID, &s.Name, &className, &data, &frozen, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.ClassName = className.String
	s.Data = []byte(data)
	s.Frozen = frozen != 0

	var err error
	if s.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError reports a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
