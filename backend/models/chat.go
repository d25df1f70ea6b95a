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

// Message is one immutable entry of a chat or group log. Encrypted is only
// persisted by schemas that carry the flag.
type Message struct {
	Sender    Identity `json:"sender"`
	Encrypted bool     `json:"encrypted,omitempty"`
	Content   []byte   `json:"content"`
	Timestamp int64    `json:"timestamp"`
}

// PrivateChat is the message log of two identities, keyed by their chat id.
// Participants are kept in canonical order (smaller key first).
type PrivateChat struct {
	Participants  [2]Identity `json:"participants"`
	ContentLength uint32      `json:"content_length"`
	Messages      []Message   `json:"messages"`
}

// HasParticipant reports whether id is one of the two chat members.
func (c *PrivateChat) HasParticipant(id Identity) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// Append adds m to the log. cost is the serialized size of m and is added to
// ContentLength so sizing never has to walk the log.
func (c *PrivateChat) Append(m Message, cost uint32) {
	c.Messages = append(c.Messages, m)
	c.ContentLength += cost
}
