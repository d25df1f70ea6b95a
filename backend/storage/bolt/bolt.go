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

// Package bolt stores records in a single boltdb bucket.
package bolt

import (
	"context"
	"fmt"
	"os"

	"github.com/boltdb/bolt"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/storage"
)

const mode = 0600

var recordBucket = []byte("records")

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, os.FileMode(mode), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create the bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, addr address.Address) (*storage.Record, error) {
	var r *storage.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		r, err = get(tx, addr)
		return err
	})
	return r, err
}

// Commit runs the batch in one read-write transaction. Returning an error
// from the closure rolls everything back.
func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		staged, err := storage.Stage(ctx, b, func(_ context.Context, addr address.Address) (*storage.Record, error) {
			return get(tx, addr)
		})
		if err != nil {
			return err
		}
		bkt := tx.Bucket(recordBucket)
		for _, c := range staged {
			if err := bkt.Put(storage.Key(c.Record.Address), storage.MarshalValue(c.Record)); err != nil {
				return err
			}
		}
		return nil
	})
}

func get(tx *bolt.Tx, addr address.Address) (*storage.Record, error) {
	// Values returned by Get are only valid for the life of tx;
	// UnmarshalValue copies.
	v := tx.Bucket(recordBucket).Get(storage.Key(addr))
	if v == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, addr)
	}
	return storage.UnmarshalValue(addr, v)
}
