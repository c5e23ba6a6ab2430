// Package store is the Postgres-backed persistence layer for every
// entity in internal/models, built on jmoiron/sqlx and lib/pq. Grounded
// on the BaseRepository pattern (Create/GetByID/Update/List/Transaction
// helpers over a *sqlx.DB) from the growth-server example, adapted from
// its generic query-string methods to typed repository methods per
// entity.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/vaultline/wallet-core/internal/apperr"
)

// Store wraps a *sqlx.DB and exposes typed repository methods grouped by
// entity across the other files in this package.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres at dsn and verifies connectivity.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithTx runs fn inside a transaction, rolling back on error or panic and
// committing otherwise. Grounded on the Transaction helper in the
// growth-server BaseRepository.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Internal("beginning transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	err = fn(tx)
	return err
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}
