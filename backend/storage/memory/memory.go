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

// Package memory is an in-process record store. It backs tests and
// single-process tooling.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/storage"
)

type Store struct {
	mu      sync.RWMutex
	records map[address.Address]*storage.Record
	commits int
}

func New() *Store {
	return &Store{records: make(map[address.Address]*storage.Record)}
}

func (s *Store) Get(ctx context.Context, addr address.Address) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, addr)
	}
	return clone(r), nil
}

func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged, err := storage.Stage(ctx, b, func(_ context.Context, addr address.Address) (*storage.Record, error) {
		r, ok := s.records[addr]
		if !ok {
			return nil, storage.ErrNotFound
		}
		return r, nil
	})
	if err != nil {
		return err
	}
	for _, c := range staged {
		s.records[c.Record.Address] = c.Record
	}
	if b.Mutates() {
		s.commits++
	}
	return nil
}

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Commits reports how many batches that changed something have been
// applied.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

func (s *Store) Close() error { return nil }

func clone(r *storage.Record) *storage.Record {
	c := *r
	c.Data = append([]byte(nil), r.Data...)
	return &c
}
