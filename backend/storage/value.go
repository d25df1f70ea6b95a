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

package storage

import (
	"fmt"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
)

// KeyPrefix namespaces record keys in key-value backends.
const KeyPrefix = "rec:"

// Key returns the key-value key for addr.
func Key(addr address.Address) []byte {
	k := make([]byte, 0, len(KeyPrefix)+len(addr))
	k = append(k, KeyPrefix...)
	return append(k, addr[:]...)
}

// MarshalValue lays a record out as one kind byte followed by its data.
func MarshalValue(r *Record) []byte {
	v := make([]byte, 1+len(r.Data))
	v[0] = byte(r.Kind)
	copy(v[1:], r.Data)
	return v
}

// UnmarshalValue is the inverse of MarshalValue. v is copied.
func UnmarshalValue(addr address.Address, v []byte) (*Record, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("record %s: empty value", addr)
	}
	kind := codec.Kind(v[0])
	if !kind.Valid() {
		return nil, fmt.Errorf("record %s: unknown kind %d", addr, v[0])
	}
	data := make([]byte, len(v)-1)
	copy(data, v[1:])
	return &Record{Address: addr, Kind: kind, Capacity: len(data), Data: data}, nil
}
