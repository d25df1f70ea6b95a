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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/storage"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database at dsn and checks it is reachable.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return NewStore(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, addr address.Address) (*storage.Record, error) {
	return get(ctx, s.db, addr, false)
}

// Commit stages the batch against rows locked with FOR UPDATE. New records
// are plain inserts, so two commits racing to create the same address
// cannot both succeed.
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
		return get(ctx, tx, addr, true)
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

// uniqueViolation is the SQLSTATE for a duplicate primary key.
const uniqueViolation = "23505"

func put(ctx context.Context, tx *sql.Tx, c storage.Change) error {
	r := c.Record
	if c.Created {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (address, kind, capacity, data, updated_at)
			VALUES ($1, $2, $3, $4, now())`,
			r.Address[:], int16(r.Kind), r.Capacity, r.Data)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %w: %s", storage.ErrConflict, storage.ErrExists, r.Address)
		}
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.Address, err)
		}
		return nil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE records SET capacity = $2, data = $3, updated_at = now()
		WHERE address = $1`,
		r.Address[:], r.Capacity, r.Data)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", r.Address, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s was removed", storage.ErrConflict, r.Address)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, addr address.Address, lock bool) (*storage.Record, error) {
	query := `SELECT kind, capacity, data FROM records WHERE address = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		kind int16
		r    = storage.Record{Address: addr}
	)
	err := q.QueryRowContext(ctx, query, addr[:]).Scan(&kind, &r.Capacity, &r.Data)
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
