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

package storage

import (
	"context"
	"errors"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrExists           = errors.New("record already exists")
	ErrShrink           = errors.New("record cannot shrink")
	ErrCapacityMismatch = errors.New("write length does not match record capacity")
	ErrConflict         = errors.New("record changed during commit")
	ErrInvalidStep      = errors.New("invalid batch step")
)

// Record is one addressed, exactly sized blob. Capacity always equals
// len(Data).
type Record struct {
	Address  address.Address `json:"address"`
	Kind     codec.Kind      `json:"kind"`
	Capacity int             `json:"capacity"`
	Data     []byte          `json:"data"`
}

// Reader loads records by address.
type Reader interface {
	// Get returns ErrNotFound if nothing is stored at addr.
	Get(ctx context.Context, addr address.Address) (*Record, error)
}

// Committer applies a batch of steps. Either every step takes effect or
// none does.
type Committer interface {
	Commit(ctx context.Context, b *Batch) error
}

// Migrator prepares a backend's schema. Backends without one do not
// implement it.
type Migrator interface {
	Migrate(ctx context.Context) error
}

type RecordStore interface {
	Reader
	Committer
	Close() error
}
