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

	"github.com/near/borsh-go"

	"github.com/efchatnet/stem/backend/models"
)

// Wire layouts, one struct per schema variant. Field order is the byte
// order; borsh writes u32 length prefixes for slices, fixed arrays as raw
// bytes, u8 discriminants and little-endian integers. The record tag is not
// part of these structs.

type wireEntry struct {
	Key   models.Identity
	State uint8
}

type walletV1 struct {
	Peers []wireEntry
}

type walletV2 struct {
	Peers  []wireEntry
	Groups []wireEntry
}

type walletV3 struct {
	IdentityKey models.Identity
	Peers       []wireEntry
	Groups      []wireEntry
}

type plainMessage struct {
	Sender    models.Identity
	Content   []byte
	Timestamp int64
}

// flaggedMessage carries the encrypted flag as a raw u8 so that values
// other than 0 and 1 surface as ErrInvalidEnum.
type flaggedMessage struct {
	Sender    models.Identity
	Encrypted uint8
	Content   []byte
	Timestamp int64
}

type wireChat[M any] struct {
	Participants  [2]models.Identity
	ContentLength uint32
	Messages      []M
}

type wireGroup[M any] struct {
	Title         []byte
	Description   []byte
	ImageURL      []byte
	Owner         models.Identity
	Type          uint8
	State         uint8
	Members       []wireEntry
	ContentLength uint32
	Messages      []M
}

// marshal prefixes the borsh encoding of body with the record tag.
func marshal(k Kind, s Schema, size int, body any) ([]byte, error) {
	b, err := borsh.Serialize(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", k, err)
	}
	t := TagFor(k, s)
	out := make([]byte, 0, size)
	out = append(out, t[:]...)
	return append(out, b...), nil
}

// unmarshal decodes the body after the tag into v. borsh only fails here
// when the input runs out, which is reported as ErrShortBuffer.
func unmarshal(data []byte, v any) error {
	if err := borsh.Deserialize(v, data[HeaderSize:]); err != nil {
		return fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	return nil
}

// consumed compares the size the decoded value occupies with what was
// stored. borsh ignores unread input, so surplus bytes are caught here.
func consumed(data []byte, size int) error {
	if size < len(data) {
		return fmt.Errorf("%w: %d bytes after offset %d", ErrTrailingBytes, len(data)-size, size)
	}
	return nil
}

func toEntries[T any](in []T, split func(T) (models.Identity, uint8)) []wireEntry {
	if len(in) == 0 {
		return nil
	}
	out := make([]wireEntry, len(in))
	for i, v := range in {
		out[i].Key, out[i].State = split(v)
	}
	return out
}

func fromEntries[T any](in []wireEntry, build func(wireEntry) (T, error)) ([]T, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]T, len(in))
	for i, e := range in {
		v, err := build(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func peerEntry(p models.Peer) (models.Identity, uint8)         { return p.Counterparty, uint8(p.State) }
func groupRefEntry(g models.GroupRef) (models.Identity, uint8) { return g.Group, uint8(g.State) }
func memberEntry(m models.Member) (models.Identity, uint8)     { return m.Identity, uint8(m.State) }

func entryPeer(e wireEntry) (models.Peer, error) {
	p := models.Peer{Counterparty: e.Key, State: models.PeerState(e.State)}
	if !p.State.Valid() {
		return p, fmt.Errorf("%w: peer state %d", ErrInvalidEnum, e.State)
	}
	return p, nil
}

func entryGroupRef(e wireEntry) (models.GroupRef, error) {
	g := models.GroupRef{Group: e.Key, State: models.MemberState(e.State)}
	if !g.State.Valid() {
		return g, fmt.Errorf("%w: member state %d", ErrInvalidEnum, e.State)
	}
	return g, nil
}

func entryMember(e wireEntry) (models.Member, error) {
	m := models.Member{Identity: e.Key, State: models.MemberState(e.State)}
	if !m.State.Valid() {
		return m, fmt.Errorf("%w: member state %d", ErrInvalidEnum, e.State)
	}
	return m, nil
}

func plainMessages(msgs []models.Message) []plainMessage {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]plainMessage, len(msgs))
	for i, m := range msgs {
		out[i] = plainMessage{Sender: m.Sender, Content: m.Content, Timestamp: m.Timestamp}
	}
	return out
}

func flaggedMessages(msgs []models.Message) []flaggedMessage {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]flaggedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = flaggedMessage{Sender: m.Sender, Content: m.Content, Timestamp: m.Timestamp}
		if m.Encrypted {
			out[i].Encrypted = 1
		}
	}
	return out
}

func fromPlain(in []plainMessage) []models.Message {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Message, len(in))
	for i, m := range in {
		out[i] = models.Message{Sender: m.Sender, Content: nonEmpty(m.Content), Timestamp: m.Timestamp}
	}
	return out
}

func fromFlagged(in []flaggedMessage) ([]models.Message, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]models.Message, len(in))
	for i, m := range in {
		if m.Encrypted > 1 {
			return nil, fmt.Errorf("%w: flag %d", ErrInvalidEnum, m.Encrypted)
		}
		out[i] = models.Message{Sender: m.Sender, Encrypted: m.Encrypted == 1, Content: nonEmpty(m.Content), Timestamp: m.Timestamp}
	}
	return out, nil
}

// nonEmpty maps empty buffers to nil so decoded values compare equal to
// freshly built ones.
func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
