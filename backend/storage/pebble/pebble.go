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

// Package pebble stores records in a pebble LSM.
package pebble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/storage"
)

type Store struct {
	db *pebble.DB
	// pebble has no read-write transactions; commits are serialized here and
	// written through one atomic batch.
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, addr address.Address) (*storage.Record, error) {
	v, closer, err := s.db.Get(storage.Key(addr))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return storage.UnmarshalValue(addr, v)
}

func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged, err := storage.Stage(ctx, b, s.Get)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for _, c := range staged {
		if err := batch.Set(storage.Key(c.Record.Address), storage.MarshalValue(c.Record), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}
