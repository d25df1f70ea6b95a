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

package social

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/models"
	"github.com/efchatnet/stem/backend/storage"
	"github.com/efchatnet/stem/backend/storage/memory"
)

const testNow = 1700000000

func fill(b byte) models.Identity {
	var id models.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

var (
	alice = fill(0x01)
	bob   = fill(0x02)
	carol = fill(0x03)
	dave  = fill(0x04)
)

type env struct {
	ctx   context.Context
	store *memory.Store
	svc   *Service
}

func newEnv(t *testing.T, cfg Config) *env {
	t.Helper()
	if cfg.Clock == nil {
		cfg.Clock = FixedClock(testNow)
	}
	store := memory.New()
	return &env{ctx: context.Background(), store: store, svc: NewService(store, cfg)}
}

// with returns a service over the same store using cfg.
func (e *env) with(cfg Config) *env {
	if cfg.Clock == nil {
		cfg.Clock = FixedClock(testNow)
	}
	return &env{ctx: e.ctx, store: e.store, svc: NewService(e.store, cfg)}
}

func (e *env) register(t *testing.T, ids ...models.Identity) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, e.svc.Register(e.ctx, id))
	}
}

func (e *env) wallet(t *testing.T, id models.Identity) *models.WalletDescriptor {
	t.Helper()
	w, _, err := e.svc.Descriptor(e.ctx, id)
	require.NoError(t, err)
	return w
}

func (e *env) group(t *testing.T, id models.GroupID) *models.GroupDescriptor {
	t.Helper()
	g, err := e.svc.Group(e.ctx, id)
	require.NoError(t, err)
	return g
}

// capacityOf returns the stored capacity of the record at addr.
func (e *env) capacityOf(t *testing.T, addr address.Address) int {
	t.Helper()
	r, err := e.store.Get(e.ctx, addr)
	require.NoError(t, err)
	return r.Capacity
}

// putWallet stores d for id as is, bypassing the state machine.
func (e *env) putWallet(t *testing.T, id models.Identity, s codec.Schema, d *models.WalletDescriptor) {
	t.Helper()
	data, err := codec.EncodeWallet(s, d)
	require.NoError(t, err)
	b := storage.NewBatch()
	b.Create(address.Wallet(id), codec.KindWallet, len(data))
	b.Write(address.Wallet(id), data)
	require.NoError(t, e.store.Commit(e.ctx, b))
}

func (e *env) assertPeers(t *testing.T, a, b models.Identity, stateA, stateB models.PeerState) {
	t.Helper()
	p, ok := e.wallet(t, a).Peer(b)
	require.True(t, ok, "no peer entry for %s in %s", b, a)
	assert.Equal(t, stateA, p.State)
	p, ok = e.wallet(t, b).Peer(a)
	require.True(t, ok, "no peer entry for %s in %s", a, b)
	assert.Equal(t, stateB, p.State)
}

func (e *env) assertMember(t *testing.T, gid models.GroupID, id models.Identity, state models.MemberState) {
	t.Helper()
	m, ok := e.group(t, gid).Member(id)
	require.True(t, ok, "%s is not a member of %s", id, gid)
	assert.Equal(t, state, m.State)
	ref, ok := e.wallet(t, id).GroupRef(gid)
	require.True(t, ok, "%s holds no reference to %s", id, gid)
	assert.Equal(t, state, ref.State)
}

// assertUnchanged runs fn and checks it failed with want without committing.
func (e *env) assertUnchanged(t *testing.T, want error, fn func() error) {
	t.Helper()
	before := e.store.Commits()
	assert.ErrorIs(t, fn(), want)
	assert.Equal(t, before, e.store.Commits())
}
