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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/storage"
	"github.com/efchatnet/stem/backend/storage/storagetest"
)

// openTestStore connects to DATABASE_URL and empties the records table.
func openTestStore(t *testing.T) *Store {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	_, err = s.db.ExecContext(ctx, `TRUNCATE records`)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordStore {
		return openTestStore(t)
	})
}

func TestInsertOfExistingRecordConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var a address.Address
	a[0] = 9
	b := storage.NewBatch()
	b.Create(a, codec.KindChat, 1)
	require.NoError(t, s.Commit(ctx, b))

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
