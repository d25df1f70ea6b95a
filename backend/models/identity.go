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

package models

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// IdentitySize is the width of every identity key and record handle.
const IdentitySize = 32

// Identity is an opaque 32-byte public key. Group ids and chat ids share the
// same shape.
type Identity [IdentitySize]byte

// ChatID addresses the private chat of an unordered pair of identities.
type ChatID = Identity

// GroupID is the address of a group descriptor.
type GroupID = Identity

func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// Compare orders identities lexicographically byte by byte.
func (id Identity) Compare(other Identity) int {
	return bytes.Compare(id[:], other[:])
}

func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity decodes a hex encoded identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid identity %q: %w", s, err)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("invalid identity %q: want %d bytes, got %d", s, IdentitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
