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

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/storage"
	"github.com/efchatnet/stem/backend/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordStore {
		s, err := Open(filepath.Join(t.TempDir(), "records.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "records.sqlite"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.sqlite")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	var a [32]byte
	a[0] = 1
	b := storage.NewBatch()
	b.Create(a, 1, 2)
	b.Write(a, []byte{4, 2})
	require.NoError(t, s.Commit(ctx, b))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	r, err := s.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 2}, r.Data)
}

func TestInsertOfExistingRecordConflicts(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "records.sqlite"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	var a address.Address
	a[0] = 9
	b := storage.NewBatch()
	b.Create(a, codec.KindChat, 1)
	require.NoError(t, s.Commit(ctx, b))

	// A create staged before the row appeared must not overwrite it.
	tx, err := s.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	err = put(ctx, tx, storage.Change{
		Record:  &storage.Record{Address: a, Kind: codec.KindChat, Capacity: 1, Data: []byte{7}},
		Created: true,
	})
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.ErrorIs(t, err, storage.ErrExists)
}
