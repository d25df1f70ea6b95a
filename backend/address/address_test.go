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

package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/chatid"
	"github.com/efchatnet/stem/backend/models"
)

func fill(b byte) models.Identity {
	var id models.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func mustParse(t *testing.T, s string) Address {
	a, err := models.ParseIdentity(s)
	require.NoError(t, err)
	return a
}

func TestKnownAddresses(t *testing.T) {
	a, b := fill(1), fill(2)
	assert.Equal(t, mustParse(t, "94edd1cb2f6dd663384c556e2119961b0eec0826700c0229d3e770675c0b0749"), Wallet(a))
	assert.Equal(t, mustParse(t, "4538ea17550adfa9ae4366d0e8593e54f0361beb5b9d2c5de67bf1eb3a392b0c"), Group(a, 1))
	assert.Equal(t, mustParse(t, "1aaec889acded5fca677af63584c4b9664db6116f05ca312d73426d30a13b44f"), Chat(chatid.Compute(a, b)))
}

func TestSeedsSeparateKinds(t *testing.T) {
	id := fill(7)
	assert.NotEqual(t, Wallet(id), Chat(id))
	assert.NotEqual(t, Group(id, 0), Group(id, 1))
	assert.NotEqual(t, Group(fill(1), 0), Group(fill(2), 0))
}
