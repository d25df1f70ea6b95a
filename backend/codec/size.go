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

import "github.com/efchatnet/stem/backend/models"

// Fixed field widths in bytes.
const (
	HeaderSize    = 8
	IdentitySize  = models.IdentitySize
	EnumSize      = 1
	FlagSize      = 1
	LengthSize    = 4
	TimestampSize = 8

	// PeerSize, GroupRefSize and MemberSize are the same shape: a key
	// followed by a state discriminant.
	PeerSize     = IdentitySize + EnumSize
	GroupRefSize = IdentitySize + EnumSize
	MemberSize   = IdentitySize + EnumSize
)

// BytesSize is the cost of a length prefixed buffer of n bytes.
func BytesSize(n int) int { return LengthSize + n }

// SeqSize is the cost of a sequence of k elements of width elem.
func SeqSize(k, elem int) int { return LengthSize + k*elem }

// MessageSize is the cost of one message carrying n content bytes.
func MessageSize(s Schema, n int) int {
	size := IdentitySize + LengthSize + n + TimestampSize
	if s.EncryptedFlag {
		size += FlagSize
	}
	return size
}

// MessagesSize walks msgs and sums their costs. Sizing of stored records uses
// the running ContentLength instead; this is for verification.
func MessagesSize(s Schema, msgs []models.Message) int {
	total := 0
	for i := range msgs {
		total += MessageSize(s, len(msgs[i].Content))
	}
	return total
}

// WalletSize is the exact encoded size of w under s.
func WalletSize(s Schema, w *models.WalletDescriptor) int {
	size := HeaderSize + SeqSize(len(w.Peers), PeerSize)
	if s.IdentityKey {
		size += IdentitySize
	}
	if s.Groups {
		size += SeqSize(len(w.Groups), GroupRefSize)
	}
	return size
}

// ChatSize is the exact encoded size of c. The layout of a chat does not vary
// between schemas; only its messages do, and those are accounted for by
// ContentLength.
func ChatSize(c *models.PrivateChat) int {
	return HeaderSize + 2*IdentitySize + LengthSize + LengthSize + int(c.ContentLength)
}

// GroupSize is the exact encoded size of g.
func GroupSize(g *models.GroupDescriptor) int {
	return HeaderSize +
		BytesSize(len(g.Title)) +
		BytesSize(len(g.Description)) +
		BytesSize(len(g.ImageURL)) +
		IdentitySize +
		EnumSize + // group type
		EnumSize + // lifecycle state
		SeqSize(len(g.Members), MemberSize) +
		LengthSize + // content length
		LengthSize + int(g.ContentLength)
}
