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

package integration

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/config"
	"github.com/efchatnet/stem/backend/logging"
	"github.com/efchatnet/stem/backend/models"
	"github.com/efchatnet/stem/backend/storage/memory"
)

func identity(b byte) models.Identity {
	var id models.Identity
	copy(id[:], bytes.Repeat([]byte{b}, len(id)))
	return id
}

func TestOpenMemory(t *testing.T) {
	cfg := config.Default()
	stem, err := Open(t.Context(), cfg, logging.Discard())
	require.NoError(t, err)
	defer stem.Close()

	_, ok := stem.Store().(*memory.Store)
	assert.True(t, ok)
	assert.Equal(t, codec.Current, stem.Service().Schema())
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "tape"
	_, err := Open(t.Context(), cfg, logging.Discard())
	assert.ErrorContains(t, err, "unknown backend")
}

func TestEmbeddedBackendsPersist(t *testing.T) {
	alice, bob := identity(0x0a), identity(0x0b)

	for _, backend := range []string{config.BackendSQLite, config.BackendBolt, config.BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			ctx := t.Context()
			cfg := config.Default()
			cfg.Backend = backend
			cfg.Storage.DataPath = filepath.Join(t.TempDir(), "data", backend)
			cfg.Social.SchemaVersion = codec.SchemaV2.Version

			stem, err := Open(ctx, cfg, logging.Discard())
			require.NoError(t, err)
			svc := stem.Service()
			require.NoError(t, svc.Register(ctx, alice))
			require.NoError(t, svc.Register(ctx, bob))
			id, err := svc.Invite(ctx, alice, bob, nil)
			require.NoError(t, err)
			require.NoError(t, svc.Accept(ctx, bob, alice, id))
			require.NoError(t, svc.SendMessage(ctx, alice, id, []byte("hello"), false))
			require.NoError(t, stem.Close())

			stem, err = Open(ctx, cfg, logging.Discard())
			require.NoError(t, err)
			defer stem.Close()

			w, schema, err := stem.Service().Descriptor(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, codec.SchemaV2, schema)
			peer, ok := w.Peer(bob)
			require.True(t, ok)
			assert.Equal(t, models.PeerAccepted, peer.State)

			chat, err := stem.Service().ChatByID(ctx, id)
			require.NoError(t, err)
			require.Len(t, chat.Messages, 1)
			assert.Equal(t, []byte("hello"), chat.Messages[0].Content)
		})
	}
}

func TestMigrateWithoutMigrator(t *testing.T) {
	assert.NoError(t, Migrate(t.Context(), memory.New()))
}
