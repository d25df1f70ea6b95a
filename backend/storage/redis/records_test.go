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

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/storage"
	"github.com/efchatnet/stem/backend/storage/storagetest"
)

func openTestStore(t *testing.T) *RecordStore {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url)
	require.NoError(t, err)
	require.NoError(t, s.rdb.FlushDB(ctx).Err())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordStore {
		return openTestStore(t)
	})
}

func TestCommitPublishesNotification(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var a address.Address
	a[0] = 0x42
	notes, err := s.Subscribe(ctx, a)
	require.NoError(t, err)

	b := storage.NewBatch()
	b.Create(a, codec.KindChat, 4)
	require.NoError(t, s.Commit(ctx, b))

	select {
	case n := <-notes:
		assert.Equal(t, "record_created", n.Type)
		assert.Equal(t, a.String(), n.Address)
		assert.Equal(t, "PrivateChat", n.Kind)
		assert.Equal(t, 4, n.Capacity)
	case <-ctx.Done():
		t.Fatal("no notification received")
	}
}

func TestNotifyReportsPublishFailures(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := NewRecordStore(rdb)
	t.Cleanup(func() { s.Close() })

	var a address.Address
	a[0] = 0x43
	err := s.notify(context.Background(), []storage.Change{{
		Record:  &storage.Record{Address: a, Kind: codec.KindWallet, Capacity: 0, Data: []byte{}},
		Created: true,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish notification for "+a.String())
}
