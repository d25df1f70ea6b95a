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

// Package storagetest holds the behaviour every storage.RecordStore must
// share.
package storagetest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/models"
	"github.com/efchatnet/stem/backend/storage"
)

// Factory returns an empty store. It registers its own cleanup.
type Factory func(t *testing.T) storage.RecordStore

func addr(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

// Run exercises s against the record store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), addr(1))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("CreateZeroFills", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(1), codec.KindWallet, 12)
		require.NoError(t, s.Commit(ctx, b))

		r, err := s.Get(ctx, addr(1))
		require.NoError(t, err)
		assert.Equal(t, codec.KindWallet, r.Kind)
		assert.Equal(t, 12, r.Capacity)
		assert.Equal(t, make([]byte, 12), r.Data)
	})

	t.Run("CreateWriteGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		data := []byte("exactly sixteen!")
		b := storage.NewBatch()
		b.Create(addr(2), codec.KindChat, len(data))
		b.Write(addr(2), data)
		require.NoError(t, s.Commit(ctx, b))

		r, err := s.Get(ctx, addr(2))
		require.NoError(t, err)
		assert.Equal(t, addr(2), r.Address)
		assert.Equal(t, codec.KindChat, r.Kind)
		assert.Equal(t, data, r.Data)
	})

	t.Run("CreateExisting", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(3), codec.KindGroup, 4)
		require.NoError(t, s.Commit(ctx, b))

		err := s.Commit(ctx, b)
		assert.ErrorIs(t, err, storage.ErrExists)
	})

	t.Run("ResizeGrowsAndKeepsPrefix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(4), codec.KindWallet, 3)
		b.Write(addr(4), []byte{1, 2, 3})
		require.NoError(t, s.Commit(ctx, b))

		b = storage.NewBatch()
		b.Resize(addr(4), 5)
		require.NoError(t, s.Commit(ctx, b))

		r, err := s.Get(ctx, addr(4))
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 0, 0}, r.Data)
		assert.Equal(t, 5, r.Capacity)
	})

	t.Run("ResizeShrinkRejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(5), codec.KindWallet, 8)
		require.NoError(t, s.Commit(ctx, b))

		b = storage.NewBatch()
		b.Resize(addr(5), 7)
		assert.ErrorIs(t, s.Commit(ctx, b), storage.ErrShrink)
	})

	t.Run("WriteLengthMismatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(6), codec.KindWallet, 8)
		require.NoError(t, s.Commit(ctx, b))

		b = storage.NewBatch()
		b.Write(addr(6), []byte{1, 2, 3})
		assert.ErrorIs(t, s.Commit(ctx, b), storage.ErrCapacityMismatch)
	})

	t.Run("WriteMissing", func(t *testing.T) {
		s := newStore(t)
		b := storage.NewBatch()
		b.Write(addr(7), []byte{1})
		assert.ErrorIs(t, s.Commit(context.Background(), b), storage.ErrNotFound)
	})

	t.Run("FailedBatchLeavesNothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(8), codec.KindWallet, 2)
		b.Write(addr(8), []byte{9, 9})
		require.NoError(t, s.Commit(ctx, b))

		b = storage.NewBatch()
		b.Create(addr(9), codec.KindChat, 4)
		b.Write(addr(9), []byte{1, 2, 3, 4})
		b.Resize(addr(8), 3)
		b.Write(addr(8), []byte{1, 2, 3})
		b.Write(addr(9), []byte{1}) // wrong length
		require.ErrorIs(t, s.Commit(ctx, b), storage.ErrCapacityMismatch)

		_, err := s.Get(ctx, addr(9))
		assert.ErrorIs(t, err, storage.ErrNotFound)
		r, err := s.Get(ctx, addr(8))
		require.NoError(t, err)
		assert.Equal(t, []byte{9, 9}, r.Data)
	})

	t.Run("MultiRecordBatch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		for i := byte(10); i < 14; i++ {
			data := bytes.Repeat([]byte{i}, int(i))
			b.Create(addr(i), codec.KindGroup, len(data))
			b.Write(addr(i), data)
		}
		require.NoError(t, s.Commit(ctx, b))

		for i := byte(10); i < 14; i++ {
			r, err := s.Get(ctx, addr(i))
			require.NoError(t, err)
			assert.Equal(t, bytes.Repeat([]byte{i}, int(i)), r.Data)
		}
	})

	t.Run("ReturnedDataIsACopy", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		data := []byte{1, 2}
		b := storage.NewBatch()
		b.Create(addr(20), codec.KindWallet, 2)
		b.Write(addr(20), data)
		require.NoError(t, s.Commit(ctx, b))
		data[0] = 7

		r, err := s.Get(ctx, addr(20))
		require.NoError(t, err)
		r.Data[1] = 7

		again, err := s.Get(ctx, addr(20))
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2}, again.Data)
	})

	t.Run("EncodedWalletRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var id models.Identity
		id[0] = 0xAA
		d := &models.WalletDescriptor{IdentityKey: id}
		data, err := codec.EncodeWallet(codec.Current, d)
		require.NoError(t, err)

		b := storage.NewBatch()
		b.Create(address.Wallet(id), codec.KindWallet, len(data))
		b.Write(address.Wallet(id), data)
		require.NoError(t, s.Commit(ctx, b))

		r, err := s.Get(ctx, address.Wallet(id))
		require.NoError(t, err)
		got, schema, err := codec.DecodeWallet(r.Data)
		require.NoError(t, err)
		assert.Equal(t, codec.Current, schema)
		assert.Equal(t, id, got.IdentityKey)
	})

	t.Run("ExpectMatchingCommits", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(30), codec.KindWallet, 2)
		b.Write(addr(30), []byte{1, 2})
		require.NoError(t, s.Commit(ctx, b))

		b = storage.NewBatch()
		b.Expect(addr(30), codec.KindWallet, []byte{1, 2})
		b.ExpectAbsent(addr(31))
		b.Resize(addr(30), 3)
		b.Write(addr(30), []byte{1, 2, 3})
		require.NoError(t, s.Commit(ctx, b))

		r, err := s.Get(ctx, addr(30))
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, r.Data)
		_, err = s.Get(ctx, addr(31))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("StaleExpectConflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(32), codec.KindChat, 2)
		b.Write(addr(32), []byte{1, 2})
		require.NoError(t, s.Commit(ctx, b))

		// Read {1,2}, then someone else writes {3,4} first.
		seen, err := s.Get(ctx, addr(32))
		require.NoError(t, err)
		other := storage.NewBatch()
		other.Write(addr(32), []byte{3, 4})
		require.NoError(t, s.Commit(ctx, other))

		b = storage.NewBatch()
		b.Expect(addr(32), seen.Kind, seen.Data)
		b.Create(addr(33), codec.KindWallet, 1)
		b.Write(addr(32), []byte{5, 6})
		assert.ErrorIs(t, s.Commit(ctx, b), storage.ErrConflict)

		r, err := s.Get(ctx, addr(32))
		require.NoError(t, err)
		assert.Equal(t, []byte{3, 4}, r.Data)
		_, err = s.Get(ctx, addr(33))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ExpectAbsentConflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.Create(addr(34), codec.KindGroup, 1)
		require.NoError(t, s.Commit(ctx, b))

		b = storage.NewBatch()
		b.ExpectAbsent(addr(34))
		b.Create(addr(35), codec.KindGroup, 1)
		assert.ErrorIs(t, s.Commit(ctx, b), storage.ErrConflict)
		_, err := s.Get(ctx, addr(35))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ExpectOnlyBatchWritesNothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		b := storage.NewBatch()
		b.ExpectAbsent(addr(36))
		require.NoError(t, s.Commit(ctx, b))
		_, err := s.Get(ctx, addr(36))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
