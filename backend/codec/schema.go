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

// Package codec implements the borsh record layouts shared by every
// record store adapter. Sizes computed here are bit-exact: a record's
// capacity is always the length of its encoding.
package codec

import (
	"crypto/sha256"
	"fmt"
)

// Kind identifies the record type stored behind an address.
type Kind uint8

const (
	KindWallet Kind = iota + 1
	KindChat
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindWallet:
		return "WalletDescriptor"
	case KindChat:
		return "PrivateChat"
	case KindGroup:
		return "GroupDescriptor"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) Valid() bool { return k >= KindWallet && k <= KindGroup }

// Schema selects which optional fields a record layout carries.
type Schema struct {
	Version uint8

	// IdentityKey stores the owner's key at the head of a wallet descriptor.
	IdentityKey bool
	// Groups stores group membership references in wallet descriptors.
	Groups bool
	// EncryptedFlag stores a one byte flag in every message.
	EncryptedFlag bool
	// ChatOnInvite creates the private chat when the invite is sent rather
	// than when it is accepted.
	ChatOnInvite bool
	// AcceptProof requires the invitee to present the chat id on accept.
	AcceptProof bool
}

var (
	SchemaV1 = Schema{Version: 1}
	SchemaV2 = Schema{Version: 2, Groups: true, ChatOnInvite: true, AcceptProof: true}
	SchemaV3 = Schema{Version: 3, IdentityKey: true, Groups: true, EncryptedFlag: true, ChatOnInvite: true, AcceptProof: true}

	// Current is the layout new records are written with by default.
	Current = SchemaV3
)

var schemas = []Schema{SchemaV1, SchemaV2, SchemaV3}

// LookupSchema returns the schema registered for version.
func LookupSchema(version uint8) (Schema, error) {
	for _, s := range schemas {
		if s.Version == version {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("%w: %d", ErrUnknownSchema, version)
}

// Tag is the record header. It is the first HeaderSize bytes of
// SHA-256("account:<Kind>:v<version>").
type Tag [HeaderSize]byte

type tagEntry struct {
	kind   Kind
	schema Schema
}

var tags = map[Tag]tagEntry{}

func init() {
	for _, s := range schemas {
		for k := KindWallet; k <= KindGroup; k++ {
			tags[TagFor(k, s)] = tagEntry{kind: k, schema: s}
		}
	}
}

// TagFor computes the header of a record of kind k written with schema s.
func TagFor(k Kind, s Schema) Tag {
	sum := sha256.Sum256([]byte(fmt.Sprintf("account:%s:v%d", k, s.Version)))
	var t Tag
	copy(t[:], sum[:HeaderSize])
	return t
}

// ReadHeader identifies the kind and schema of an encoded record.
func ReadHeader(data []byte) (Kind, Schema, error) {
	if len(data) < HeaderSize {
		return 0, Schema{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrShortBuffer, HeaderSize, len(data))
	}
	var t Tag
	copy(t[:], data[:HeaderSize])
	e, ok := tags[t]
	if !ok {
		return 0, Schema{}, fmt.Errorf("%w: %x", ErrUnknownTag, t[:])
	}
	return e.kind, e.schema, nil
}
