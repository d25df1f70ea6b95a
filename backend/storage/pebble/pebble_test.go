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

package pebble

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/storage"
	"github.com/efchatnet/stem/backend/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.RecordStore {
		s, err := Open(filepath.Join(t.TempDir(), "records"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
