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
	"math"

	"github.com/efchatnet/stem/backend/models"
)

func checkLen(field string, n int) error {
	if uint64(n) > math.MaxUint32 {
		return fmt.Errorf("%w: %s has %d entries", ErrTooLarge, field, n)
	}
	return nil
}

func checkMessages(s Schema, contentLength uint32, msgs []models.Message) error {
	if err := checkLen("messages", len(msgs)); err != nil {
		return err
	}
	for i := range msgs {
		if msgs[i].Encrypted && !s.EncryptedFlag {
			return fmt.Errorf("%w: encrypted flag in schema v%d", ErrUnsupported, s.Version)
		}
		if err := checkLen("content", len(msgs[i].Content)); err != nil {
			return err
		}
	}
	if got := MessagesSize(s, msgs); got != int(contentLength) {
		return fmt.Errorf("%w: content_length=%d, messages=%d", ErrLengthMismatch, contentLength, got)
	}
	return nil
}

// EncodeWallet serializes w under s. The result is exactly WalletSize bytes.
func EncodeWallet(s Schema, d *models.WalletDescriptor) ([]byte, error) {
	if !s.Groups && len(d.Groups) > 0 {
		return nil, fmt.Errorf("%w: group references in schema v%d", ErrUnsupported, s.Version)
	}
	if err := checkLen("peers", len(d.Peers)); err != nil {
		return nil, err
	}
	if err := checkLen("groups", len(d.Groups)); err != nil {
		return nil, err
	}
	for _, p := range d.Peers {
		if !p.State.Valid() {
			return nil, fmt.Errorf("%w: peer state %d", ErrInvalidEnum, p.State)
		}
	}
	for _, g := range d.Groups {
		if !g.State.Valid() {
			return nil, fmt.Errorf("%w: member state %d", ErrInvalidEnum, g.State)
		}
	}

	peers := toEntries(d.Peers, peerEntry)
	groups := toEntries(d.Groups, groupRefEntry)
	var body any
	switch {
	case s.IdentityKey && s.Groups:
		body = walletV3{IdentityKey: d.IdentityKey, Peers: peers, Groups: groups}
	case s.Groups:
		body = walletV2{Peers: peers, Groups: groups}
	case !s.IdentityKey:
		body = walletV1{Peers: peers}
	default:
		return nil, fmt.Errorf("%w: wallet layout of schema v%d", ErrUnsupported, s.Version)
	}
	return marshal(KindWallet, s, WalletSize(s, d), body)
}

// EncodeChat serializes c under s. The result is exactly ChatSize bytes.
func EncodeChat(s Schema, c *models.PrivateChat) ([]byte, error) {
	if err := checkMessages(s, c.ContentLength, c.Messages); err != nil {
		return nil, err
	}
	if s.EncryptedFlag {
		return marshal(KindChat, s, ChatSize(c), wireChat[flaggedMessage]{
			Participants:  c.Participants,
			ContentLength: c.ContentLength,
			Messages:      flaggedMessages(c.Messages),
		})
	}
	return marshal(KindChat, s, ChatSize(c), wireChat[plainMessage]{
		Participants:  c.Participants,
		ContentLength: c.ContentLength,
		Messages:      plainMessages(c.Messages),
	})
}

// EncodeGroup serializes g under s. The result is exactly GroupSize bytes.
func EncodeGroup(s Schema, g *models.GroupDescriptor) ([]byte, error) {
	if !g.Type.Valid() || !g.State.Valid() {
		return nil, fmt.Errorf("%w: group type %d state %d", ErrInvalidEnum, g.Type, g.State)
	}
	for _, f := range [][]byte{g.Title, g.Description, g.ImageURL} {
		if err := checkLen("text field", len(f)); err != nil {
			return nil, err
		}
	}
	if err := checkLen("members", len(g.Members)); err != nil {
		return nil, err
	}
	for _, m := range g.Members {
		if !m.State.Valid() {
			return nil, fmt.Errorf("%w: member state %d", ErrInvalidEnum, m.State)
		}
	}
	if err := checkMessages(s, g.ContentLength, g.Messages); err != nil {
		return nil, err
	}

	members := toEntries(g.Members, memberEntry)
	if s.EncryptedFlag {
		return marshal(KindGroup, s, GroupSize(g), wireGroup[flaggedMessage]{
			Title: g.Title, Description: g.Description, ImageURL: g.ImageURL,
			Owner: g.Owner, Type: uint8(g.Type), State: uint8(g.State),
			Members:       members,
			ContentLength: g.ContentLength,
			Messages:      flaggedMessages(g.Messages),
		})
	}
	return marshal(KindGroup, s, GroupSize(g), wireGroup[plainMessage]{
		Title: g.Title, Description: g.Description, ImageURL: g.ImageURL,
		Owner: g.Owner, Type: uint8(g.Type), State: uint8(g.State),
		Members:       members,
		ContentLength: g.ContentLength,
		Messages:      plainMessages(g.Messages),
	})
}
