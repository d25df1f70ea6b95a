// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package sqlite stores records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/storage"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - records table
const currentSchemaVersion = 1

type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path and applies the schema.
// Use ":memory:" for a throwaway database. Transactions begin IMMEDIATE so
// a commit holds the write lock from its first read.
func Open(path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Migrate is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, addr address.Address) (*storage.Record, error) {
	return get(ctx, s.db, addr)
}

func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	staged, err := storage.Stage(ctx, b, func(ctx context.Context, addr address.Address) (*storage.Record, error) {
		return get(ctx, tx, addr)
	})
	if err != nil {
		return err
	}
	for _, c := range staged {
		if err := put(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func put(ctx context.Context, tx *sql.Tx, c storage.Change) error {
	r := c.Record
	if c.Created {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (address, kind, capacity, data, updated_at)
			VALUES (?, ?, ?, ?, strftime('%s', 'now'))`,
			r.Address[:], int(r.Kind), r.Capacity, r.Data)
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %w: %s", storage.ErrConflict, storage.ErrExists, r.Address)
		}
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.Address, err)
		}
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE records SET capacity = ?, data = ?, updated_at = strftime('%s', 'now')
		WHERE address = ?`,
		r.Capacity, r.Data, r.Address[:])
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", r.Address, err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, addr address.Address) (*storage.Record, error) {
	var (
		kind int
		r    = storage.Record{Address: addr}
	)
	err := q.QueryRowContext(ctx,
		`SELECT kind, capacity, data FROM records WHERE address = ?`, addr[:]).
		Scan(&kind, &r.Capacity, &r.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	r.Kind = codec.Kind(kind)
	if r.Data == nil {
		r.Data = []byte{}
	}
	return &r, nil
}
