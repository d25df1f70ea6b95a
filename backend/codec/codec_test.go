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

package codec

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/near/borsh-go"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/stem/backend/models"
)

func id(b byte) models.Identity {
	var out models.Identity
	for i := range out {
		out[i] = b
	}
	return out
}

// hexLines renders b as lowercase hex, 32 bytes per line.
func hexLines(b []byte) []byte {
	s := hex.EncodeToString(b)
	var sb strings.Builder
	for len(s) > 64 {
		sb.WriteString(s[:64])
		sb.WriteByte('\n')
		s = s[64:]
	}
	sb.WriteString(s)
	sb.WriteByte('\n')
	return []byte(sb.String())
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sampleWallet() *models.WalletDescriptor {
	return &models.WalletDescriptor{
		IdentityKey: id(1),
		Peers:       []models.Peer{{Counterparty: id(2), State: models.PeerAccepted}},
		Groups:      []models.GroupRef{{Group: id(3), State: models.MemberJoined}},
	}
}

func sampleChat(s Schema) *models.PrivateChat {
	c := &models.PrivateChat{Participants: [2]models.Identity{id(1), id(2)}}
	m := models.Message{Sender: id(1), Content: []byte("hi"), Timestamp: 1700000000}
	c.Append(m, uint32(MessageSize(s, len(m.Content))))
	return c
}

func sampleGroup(s Schema) *models.GroupDescriptor {
	g := &models.GroupDescriptor{
		Title:    []byte("g"),
		ImageURL: []byte("u"),
		Owner:    id(1),
		Type:     models.GroupPublic,
		State:    models.GroupActive,
		Members:  []models.Member{{Identity: id(1), State: models.MemberJoined}},
	}
	m := models.Message{Sender: id(1), Content: []byte("yo"), Timestamp: 5}
	g.Append(m, uint32(MessageSize(s, len(m.Content))))
	return g
}

func TestGoldenEncodings(t *testing.T) {
	cases := []struct {
		name   string
		encode func() ([]byte, error)
		size   int
	}{
		{"wallet_v3", func() ([]byte, error) { return EncodeWallet(SchemaV3, sampleWallet()) }, WalletSize(SchemaV3, sampleWallet())},
		{"wallet_v1", func() ([]byte, error) {
			return EncodeWallet(SchemaV1, &models.WalletDescriptor{Peers: []models.Peer{{Counterparty: id(2)}}})
		}, 45},
		{"chat_v3", func() ([]byte, error) { return EncodeChat(SchemaV3, sampleChat(SchemaV3)) }, ChatSize(sampleChat(SchemaV3))},
		{"group_v2", func() ([]byte, error) { return EncodeGroup(SchemaV2, sampleGroup(SchemaV2)) }, GroupSize(sampleGroup(SchemaV2))},
	}

	g := newGoldie(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := tc.encode()
			require.NoError(t, err)
			assert.Len(t, data, tc.size)
			g.Assert(t, tc.name, hexLines(data))
		})
	}
}

func TestWalletRoundTrip(t *testing.T) {
	for _, s := range []Schema{SchemaV2, SchemaV3} {
		w := sampleWallet()
		data, err := EncodeWallet(s, w)
		require.NoError(t, err)
		assert.Len(t, data, WalletSize(s, w))

		got, schema, err := DecodeWallet(data)
		require.NoError(t, err)
		assert.Equal(t, s, schema)
		assert.Equal(t, w.Peers, got.Peers)
		assert.Equal(t, w.Groups, got.Groups)
		if s.IdentityKey {
			assert.Equal(t, w.IdentityKey, got.IdentityKey)
		} else {
			assert.True(t, got.IdentityKey.IsZero())
		}
	}
}

func TestWalletV1RefusesGroups(t *testing.T) {
	_, err := EncodeWallet(SchemaV1, sampleWallet())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestChatRoundTrip(t *testing.T) {
	for _, s := range []Schema{SchemaV1, SchemaV2, SchemaV3} {
		c := sampleChat(s)
		data, err := EncodeChat(s, c)
		require.NoError(t, err)
		assert.Len(t, data, ChatSize(c))

		got, schema, err := DecodeChat(data)
		require.NoError(t, err)
		assert.Equal(t, s, schema)
		assert.Equal(t, c, got)
	}
}

func TestGroupRoundTrip(t *testing.T) {
	for _, s := range []Schema{SchemaV1, SchemaV2, SchemaV3} {
		g := sampleGroup(s)
		data, err := EncodeGroup(s, g)
		require.NoError(t, err)
		assert.Len(t, data, GroupSize(g))

		got, _, err := DecodeGroup(data)
		require.NoError(t, err)
		assert.Equal(t, g, got)
	}
}

func TestMessageSize(t *testing.T) {
	assert.Equal(t, 32+4+2+8, MessageSize(SchemaV2, 2))
	assert.Equal(t, 32+1+4+2+8, MessageSize(SchemaV3, 2))
	assert.Equal(t, 44, MessageSize(SchemaV1, 0))

	msgs := []models.Message{{Content: []byte("a")}, {Content: []byte("bcd")}, {}}
	assert.Equal(t, 46+48+45, MessagesSize(SchemaV3, msgs))
}

func TestEncryptedFlagNeedsSchema(t *testing.T) {
	c := &models.PrivateChat{}
	c.Append(models.Message{Encrypted: true}, uint32(MessageSize(SchemaV2, 0)))
	_, err := EncodeChat(SchemaV2, c)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestContentLengthMustMatch(t *testing.T) {
	c := sampleChat(SchemaV3)
	c.ContentLength++
	_, err := EncodeChat(SchemaV3, c)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	// Corrupt the stored content_length of a valid encoding.
	data, err := EncodeChat(SchemaV3, sampleChat(SchemaV3))
	require.NoError(t, err)
	data[HeaderSize+2*IdentitySize]++
	_, _, err = DecodeChat(data)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDecodeErrors(t *testing.T) {
	wallet, err := EncodeWallet(SchemaV3, sampleWallet())
	require.NoError(t, err)

	t.Run("ShortHeader", func(t *testing.T) {
		_, _, err := DecodeWallet(wallet[:4])
		assert.ErrorIs(t, err, ErrShortBuffer)
	})
	t.Run("UnknownTag", func(t *testing.T) {
		bad := append([]byte(nil), wallet...)
		bad[0] ^= 0xFF
		_, _, err := DecodeWallet(bad)
		assert.ErrorIs(t, err, ErrUnknownTag)
	})
	t.Run("WrongKind", func(t *testing.T) {
		_, _, err := DecodeChat(wallet)
		assert.ErrorIs(t, err, ErrWrongKind)
	})
	t.Run("Truncated", func(t *testing.T) {
		_, _, err := DecodeWallet(wallet[:len(wallet)-1])
		assert.ErrorIs(t, err, ErrShortBuffer)
	})
	t.Run("TrailingBytes", func(t *testing.T) {
		_, _, err := DecodeWallet(append(append([]byte(nil), wallet...), 0))
		assert.ErrorIs(t, err, ErrTrailingBytes)
	})
	t.Run("InvalidPeerState", func(t *testing.T) {
		bad := append([]byte(nil), wallet...)
		bad[HeaderSize+IdentitySize+LengthSize+IdentitySize] = 9
		_, _, err := DecodeWallet(bad)
		assert.ErrorIs(t, err, ErrInvalidEnum)
	})
	t.Run("HugeCount", func(t *testing.T) {
		bad := append([]byte(nil), wallet...)
		copy(bad[HeaderSize+IdentitySize:], []byte{0xFF, 0xFF, 0xFF, 0x7F})
		_, _, err := DecodeWallet(bad)
		assert.ErrorIs(t, err, ErrShortBuffer)
	})
}

func TestReadHeader(t *testing.T) {
	for _, s := range []Schema{SchemaV1, SchemaV2, SchemaV3} {
		for k := KindWallet; k <= KindGroup; k++ {
			tag := TagFor(k, s)
			kind, schema, err := ReadHeader(tag[:])
			require.NoError(t, err)
			assert.Equal(t, k, kind)
			assert.Equal(t, s, schema)
		}
	}
	assert.NotEqual(t, TagFor(KindWallet, SchemaV1), TagFor(KindWallet, SchemaV2))
	assert.NotEqual(t, TagFor(KindWallet, SchemaV3), TagFor(KindChat, SchemaV3))
}

func TestLookupSchema(t *testing.T) {
	s, err := LookupSchema(2)
	require.NoError(t, err)
	assert.Equal(t, SchemaV2, s)

	_, err = LookupSchema(9)
	assert.ErrorIs(t, err, ErrUnknownSchema)
	assert.Equal(t, SchemaV3, Current)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "WalletDescriptor", KindWallet.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
	assert.False(t, Kind(4).Valid())
}

func TestWireLayoutMatchesSizes(t *testing.T) {
	for _, s := range []Schema{SchemaV1, SchemaV2, SchemaV3} {
		w := sampleWallet()
		if !s.Groups {
			w.Groups = nil
		}
		data, err := EncodeWallet(s, w)
		require.NoError(t, err)
		assert.Len(t, data, WalletSize(s, w), "wallet v%d", s.Version)

		c := sampleChat(s)
		data, err = EncodeChat(s, c)
		require.NoError(t, err)
		assert.Len(t, data, ChatSize(c), "chat v%d", s.Version)

		g := sampleGroup(s)
		data, err = EncodeGroup(s, g)
		require.NoError(t, err)
		assert.Len(t, data, GroupSize(g), "group v%d", s.Version)
	}

	// The body after the tag is plain borsh.
	body, err := borsh.Serialize(walletV1{Peers: []wireEntry{{Key: id(2), State: uint8(models.PeerAccepted)}}})
	require.NoError(t, err)
	w := &models.WalletDescriptor{Peers: []models.Peer{{Counterparty: id(2), State: models.PeerAccepted}}}
	data, err := EncodeWallet(SchemaV1, w)
	require.NoError(t, err)
	assert.Equal(t, body, data[HeaderSize:])
}

func TestDecodeMessageErrors(t *testing.T) {
	chat, err := EncodeChat(SchemaV3, sampleChat(SchemaV3))
	require.NoError(t, err)
	flag := HeaderSize + 2*IdentitySize + LengthSize + LengthSize + IdentitySize

	t.Run("InvalidFlag", func(t *testing.T) {
		bad := append([]byte(nil), chat...)
		bad[flag] = 2
		_, _, err := DecodeChat(bad)
		assert.ErrorIs(t, err, ErrInvalidEnum)
	})
	t.Run("EncryptedFlag", func(t *testing.T) {
		ok := append([]byte(nil), chat...)
		ok[flag] = 1
		c, _, err := DecodeChat(ok)
		require.NoError(t, err)
		assert.True(t, c.Messages[0].Encrypted)
	})
	t.Run("HugeMessageCount", func(t *testing.T) {
		bad := append([]byte(nil), chat...)
		copy(bad[HeaderSize+2*IdentitySize+LengthSize:], []byte{0xFF, 0xFF, 0xFF, 0x7F})
		_, _, err := DecodeChat(bad)
		assert.ErrorIs(t, err, ErrShortBuffer)
	})
	t.Run("EmptyContentDecodesNil", func(t *testing.T) {
		c := &models.PrivateChat{Participants: [2]models.Identity{id(1), id(2)}}
		c.Append(models.Message{Sender: id(2), Timestamp: 9}, uint32(MessageSize(SchemaV3, 0)))
		data, err := EncodeChat(SchemaV3, c)
		require.NoError(t, err)
		got, _, err := DecodeChat(data)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.Nil(t, got.Messages[0].Content)
	})
}
