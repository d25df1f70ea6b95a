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

// Package address locates records in a record store. Every address is a
// SHA-256 over a seed naming the record kind and the parts that key it.
package address

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/efchatnet/stem/backend/models"
)

// Address is the key of one record in a record store.
type Address = models.Identity

// Seeds for the three record kinds.
const (
	SeedWallet = "wallet_descriptor"
	SeedChat   = "private_chat"
	SeedGroup  = "group_descriptor"
)

func derive(seed string, parts ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte{0x00})
	for _, p := range parts {
		h.Write(p)
	}
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

// Wallet is the address of id's wallet descriptor.
func Wallet(id models.Identity) Address {
	return derive(SeedWallet, id[:])
}

// Chat is the address of the private chat with the given chat id.
func Chat(id models.ChatID) Address {
	return derive(SeedChat, id[:])
}

// Group is the address of the index-th group created by owner. The address
// doubles as the group's id.
func Group(owner models.Identity, index uint32) Address {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)
	return derive(SeedGroup, owner[:], idx[:])
}
