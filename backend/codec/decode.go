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
	"fmt"

	"github.com/efchatnet/stem/backend/models"
)

func open(data []byte, want Kind) (Schema, error) {
	k, s, err := ReadHeader(data)
	if err != nil {
		return Schema{}, err
	}
	if k != want {
		return Schema{}, fmt.Errorf("%w: want %s, got %s", ErrWrongKind, want, k)
	}
	return s, nil
}

// DecodeWallet parses a wallet descriptor and reports the schema it was
// written with.
func DecodeWallet(data []byte) (*models.WalletDescriptor, Schema, error) {
	s, err := open(data, KindWallet)
	if err != nil {
		return nil, s, err
	}
	d := &models.WalletDescriptor{}
	var peers, groups []wireEntry
	switch {
	case s.IdentityKey && s.Groups:
		var v walletV3
		err = unmarshal(data, &v)
		d.IdentityKey, peers, groups = v.IdentityKey, v.Peers, v.Groups
	case s.Groups:
		var v walletV2
		err = unmarshal(data, &v)
		peers, groups = v.Peers, v.Groups
	case !s.IdentityKey:
		var v walletV1
		err = unmarshal(data, &v)
		peers = v.Peers
	default:
		err = fmt.Errorf("%w: wallet layout of schema v%d", ErrUnsupported, s.Version)
	}
	if err != nil {
		return nil, s, err
	}
	if d.Peers, err = fromEntries(peers, entryPeer); err != nil {
		return nil, s, err
	}
	if d.Groups, err = fromEntries(groups, entryGroupRef); err != nil {
		return nil, s, err
	}
	if err := consumed(data, WalletSize(s, d)); err != nil {
		return nil, s, err
	}
	return d, s, nil
}

// DecodeChat parses a private chat and verifies its content length.
func DecodeChat(data []byte) (*models.PrivateChat, Schema, error) {
	s, err := open(data, KindChat)
	if err != nil {
		return nil, s, err
	}
	c := &models.PrivateChat{}
	if s.EncryptedFlag {
		var v wireChat[flaggedMessage]
		if err := unmarshal(data, &v); err != nil {
			return nil, s, err
		}
		c.Participants, c.ContentLength = v.Participants, v.ContentLength
		if c.Messages, err = fromFlagged(v.Messages); err != nil {
			return nil, s, err
		}
	} else {
		var v wireChat[plainMessage]
		if err := unmarshal(data, &v); err != nil {
			return nil, s, err
		}
		c.Participants, c.ContentLength = v.Participants, v.ContentLength
		c.Messages = fromPlain(v.Messages)
	}
	got := MessagesSize(s, c.Messages)
	if err := consumed(data, ChatSize(&models.PrivateChat{ContentLength: uint32(got)})); err != nil {
		return nil, s, err
	}
	if got != int(c.ContentLength) {
		return nil, s, fmt.Errorf("%w: content_length=%d, messages=%d", ErrLengthMismatch, c.ContentLength, got)
	}
	return c, s, nil
}

// DecodeGroup parses a group descriptor and verifies its content length.
func DecodeGroup(data []byte) (*models.GroupDescriptor, Schema, error) {
	s, err := open(data, KindGroup)
	if err != nil {
		return nil, s, err
	}
	g := &models.GroupDescriptor{}
	var members []wireEntry
	if s.EncryptedFlag {
		var v wireGroup[flaggedMessage]
		if err := unmarshal(data, &v); err != nil {
			return nil, s, err
		}
		g.Title, g.Description, g.ImageURL = v.Title, v.Description, v.ImageURL
		g.Owner, g.Type, g.State = v.Owner, models.GroupType(v.Type), models.GroupState(v.State)
		members, g.ContentLength = v.Members, v.ContentLength
		if g.Messages, err = fromFlagged(v.Messages); err != nil {
			return nil, s, err
		}
	} else {
		var v wireGroup[plainMessage]
		if err := unmarshal(data, &v); err != nil {
			return nil, s, err
		}
		g.Title, g.Description, g.ImageURL = v.Title, v.Description, v.ImageURL
		g.Owner, g.Type, g.State = v.Owner, models.GroupType(v.Type), models.GroupState(v.State)
		members, g.ContentLength = v.Members, v.ContentLength
		g.Messages = fromPlain(v.Messages)
	}
	if !g.Type.Valid() || !g.State.Valid() {
		return nil, s, fmt.Errorf("%w: group type %d state %d", ErrInvalidEnum, g.Type, g.State)
	}
	if g.Members, err = fromEntries(members, entryMember); err != nil {
		return nil, s, err
	}
	g.Title, g.Description, g.ImageURL = nonEmpty(g.Title), nonEmpty(g.Description), nonEmpty(g.ImageURL)

	got := MessagesSize(s, g.Messages)
	sized := *g
	sized.ContentLength = uint32(got)
	if err := consumed(data, GroupSize(&sized)); err != nil {
		return nil, s, err
	}
	if got != int(g.ContentLength) {
		return nil, s, fmt.Errorf("%w: content_length=%d, messages=%d", ErrLengthMismatch, g.ContentLength, got)
	}
	return g, s, nil
}
