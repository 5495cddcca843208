// Package sqlite is a refresh.Store backed by SQLite (modernc.org/sqlite).
//
// Retention is checked on every read and conditional update; rows past the
// window stay on disk until DeleteExpired runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/MrEthical07/sessionauth/refresh"
)

// Option customises a Store.
type Option func(*Store)

// WithRetention overrides refresh.DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a refresh.Store backed by a single SQLite table. Expired rows are
// filtered on read and removed by DeleteExpired.
type Store struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

var _ refresh.Store = (*Store)(nil)
var _ refresh.Sweeper = (*Store)(nil)

// NewStore opens dsn. Call ApplyMigrations before first use.
func NewStore(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers anyway; one connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, retention: refresh.DefaultRetention, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) cutoff(now time.Time) int64 {
	return now.Add(-s.retention).UnixMilli()
}

// Put inserts a record for token, first clearing any expired row that still
// holds the same hash. A live duplicate maps to refresh.ErrDuplicateRecord.
func (s *Store) Put(ctx context.Context, subjectID, token string) (refresh.Record, error) {
	now := s.now()
	rec := refresh.Record{
		ID:        refresh.NewRecordID(now),
		SubjectID: subjectID,
		TokenHash: refresh.HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.retention),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// An expired row may still hold the hash until the next sweep.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM refresh_tokens WHERE token_hash = ? AND created_at <= ?`,
			rec.TokenHash, s.cutoff(now),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO refresh_tokens (id, subject_id, token_hash, created_at) VALUES (?, ?, ?, ?)`,
			rec.ID, rec.SubjectID, rec.TokenHash, now.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return refresh.Record{}, mapError(err)
	}
	return rec, nil
}

// Find returns the live record for token owned by subjectID, or
// refresh.ErrNotFound.
func (s *Store) Find(ctx context.Context, subjectID, token string) (refresh.Record, error) {
	hash := refresh.HashToken(token)

	var (
		id        string
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM refresh_tokens WHERE subject_id = ? AND token_hash = ? AND created_at > ?`,
		subjectID, hash, s.cutoff(s.now()),
	).Scan(&id, &createdMs)
	if err != nil {
		return refresh.Record{}, mapError(err)
	}

	created := time.UnixMilli(createdMs)
	return refresh.Record{
		ID:        id,
		SubjectID: subjectID,
		TokenHash: hash,
		CreatedAt: created,
		ExpiresAt: created.Add(s.retention),
	}, nil
}

// Replace is a single conditional UPDATE; zero affected rows means the record
// is gone, expired, or was already rotated by another caller.
func (s *Store) Replace(ctx context.Context, recordID, currentToken, nextToken string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET token_hash = ? WHERE id = ? AND token_hash = ? AND created_at > ?`,
		refresh.HashToken(nextToken), recordID, refresh.HashToken(currentToken), s.cutoff(s.now()),
	)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return refresh.ErrNotFound
	}
	return nil
}

// Delete removes the row holding token. Missing tokens are not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ?`,
		refresh.HashToken(token),
	); err != nil {
		return mapError(err)
	}
	return nil
}

// DeleteExpired reclaims rows past the retention window.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE created_at <= ?`,
		s.cutoff(s.now()),
	)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return refresh.ErrNotFound
	}
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return refresh.ErrDuplicateRecord
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
}
