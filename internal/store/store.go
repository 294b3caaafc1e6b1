// Package store persists encrypted voiceprint records to SQLite, grounded
// on the same database/sql + modernc.org/sqlite pattern and busy-retry
// discipline used for the queue store elsewhere in the corpus.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voiceauth/internal/corefail"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Record is the on-disk representation of one user's encrypted
// voiceprint: everything the cipher needs to decrypt it plus the
// bookkeeping fields Verify/Enroll/Delete consult without decrypting.
type Record struct {
	UserID             string
	SchemaVersion      string
	Salt               []byte
	Ciphertext         []byte
	IntegrityHash      string
	QualityScore       float64
	EnrollmentDuration float64
	CreatedAt          time.Time
	DeletedAt          *time.Time
}

// Store is the SQLite-backed voiceprint record repository.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS voiceprint_records (
	user_id             TEXT PRIMARY KEY,
	schema_version      TEXT NOT NULL,
	salt                BLOB NOT NULL,
	ciphertext          BLOB NOT NULL,
	integrity_hash      TEXT NOT NULL,
	quality_score       REAL NOT NULL,
	enrollment_duration REAL NOT NULL,
	created_at          TIMESTAMP NOT NULL,
	deleted_at          TIMESTAMP
);
`

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Load returns the active (non-deleted) record for userID, or
// corefail.NotEnrolled if none exists.
func (s *Store) Load(ctx context.Context, userID string) (*Record, error) {
	const stage = "store.load"

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, schema_version, salt, ciphertext, integrity_hash,
		       quality_score, enrollment_duration, created_at, deleted_at
		FROM voiceprint_records WHERE user_id = ? AND deleted_at IS NULL`, userID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, corefail.New(corefail.NotEnrolled, stage)
	}
	if err != nil {
		return nil, corefail.Wrap(corefail.InternalInvariant, stage, err)
	}
	return rec, nil
}

// Store inserts a new record. Fails with corefail.AlreadyEnrolled if an
// active record already exists for UserID.
func (s *Store) Store(ctx context.Context, rec *Record) error {
	const stage = "store.store"

	existing, err := s.Load(ctx, rec.UserID)
	if err != nil && !corefail.Is(err, corefail.NotEnrolled) {
		return err
	}
	if existing != nil {
		return corefail.New(corefail.AlreadyEnrolled, stage)
	}

	return retryOnBusy(ctx, func() error {
		// A soft-deleted row still holds the user_id primary key; clear it
		// so the user can enroll again.
		if _, execErr := s.db.ExecContext(ctx, `
			DELETE FROM voiceprint_records WHERE user_id = ? AND deleted_at IS NOT NULL`, rec.UserID); execErr != nil {
			return corefail.Wrap(corefail.InternalInvariant, stage, execErr)
		}
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO voiceprint_records
				(user_id, schema_version, salt, ciphertext, integrity_hash,
				 quality_score, enrollment_duration, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
			rec.UserID, rec.SchemaVersion, rec.Salt, rec.Ciphertext, rec.IntegrityHash,
			rec.QualityScore, rec.EnrollmentDuration, rec.CreatedAt)
		if execErr != nil {
			return corefail.Wrap(corefail.InternalInvariant, stage, execErr)
		}
		return nil
	})
}

// Replace overwrites the active record for rec.UserID in place,
// re-enrollment after a verified identity change.
func (s *Store) Replace(ctx context.Context, rec *Record) error {
	const stage = "store.replace"

	return retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `
			UPDATE voiceprint_records
			SET schema_version = ?, salt = ?, ciphertext = ?, integrity_hash = ?,
			    quality_score = ?, enrollment_duration = ?, created_at = ?
			WHERE user_id = ? AND deleted_at IS NULL`,
			rec.SchemaVersion, rec.Salt, rec.Ciphertext, rec.IntegrityHash,
			rec.QualityScore, rec.EnrollmentDuration, rec.CreatedAt, rec.UserID)
		if execErr != nil {
			return corefail.Wrap(corefail.InternalInvariant, stage, execErr)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return corefail.New(corefail.NotEnrolled, stage)
		}
		return nil
	})
}

// Delete soft-deletes the active record for userID by stamping
// deleted_at; the retention sweep worker later hard-deletes it once its
// retention window has passed.
func (s *Store) Delete(ctx context.Context, userID string, now time.Time) error {
	const stage = "store.delete"

	return retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `
			UPDATE voiceprint_records SET deleted_at = ?
			WHERE user_id = ? AND deleted_at IS NULL`, now, userID)
		if execErr != nil {
			return corefail.Wrap(corefail.InternalInvariant, stage, execErr)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return corefail.New(corefail.NotEnrolled, stage)
		}
		return nil
	})
}

// SweepExpired hard-deletes soft-deleted records whose deleted_at is
// older than cutoff, returning the number of rows removed.
func (s *Store) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const stage = "store.sweep"

	var n int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `
			DELETE FROM voiceprint_records WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
		if execErr != nil {
			return execErr
		}
		n, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, corefail.Wrap(corefail.InternalInvariant, stage, err)
	}
	return n, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var rec Record
	var deletedAt sql.NullTime
	if err := row.Scan(
		&rec.UserID, &rec.SchemaVersion, &rec.Salt, &rec.Ciphertext, &rec.IntegrityHash,
		&rec.QualityScore, &rec.EnrollmentDuration, &rec.CreatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Time
	}
	return &rec, nil
}
