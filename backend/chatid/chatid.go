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

// Package chatid derives the identifier of the private chat between two
// identities. The identifier does not depend on argument order.
package chatid

import (
	"crypto/sha256"

	"github.com/efchatnet/stem/backend/models"
)

// Order returns a and b with the lexicographically smaller key first.
func Order(a, b models.Identity) (lo, hi models.Identity) {
	if b.Compare(a) < 0 {
		return b, a
	}
	return a, b
}

// Compute returns SHA-256(lo || hi) where lo is the smaller of a and b.
func Compute(a, b models.Identity) models.ChatID {
	lo, hi := Order(a, b)
	var raw [2 * models.IdentitySize]byte
	copy(raw[:models.IdentitySize], lo[:])
	copy(raw[models.IdentitySize:], hi[:])
	return sha256.Sum256(raw[:])
}

// Matches reports whether expected is the chat id of a and b. A mismatch
// means the caller named participants other than the ones the chat record
// is keyed on.
func Matches(a, b models.Identity, expected models.ChatID) bool {
	return Compute(a, b) == expected
}
