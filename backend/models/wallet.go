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

// Peer is one relationship entry in a wallet descriptor.
type Peer struct {
	Counterparty Identity  `json:"counterparty"`
	State        PeerState `json:"state"`
}

// GroupRef mirrors, from the member's side, the Member entry held by a group.
type GroupRef struct {
	Group GroupID     `json:"group"`
	State MemberState `json:"state"`
}

// WalletDescriptor is the per-identity index of relationships and group
// memberships. IdentityKey and Groups are only persisted by schemas that
// carry them.
type WalletDescriptor struct {
	IdentityKey Identity   `json:"identity_key"`
	Peers       []Peer     `json:"peers"`
	Groups      []GroupRef `json:"groups"`
}

// PeerIndex returns the position of the entry for counterparty, or -1.
func (w *WalletDescriptor) PeerIndex(counterparty Identity) int {
	for i := range w.Peers {
		if w.Peers[i].Counterparty == counterparty {
			return i
		}
	}
	return -1
}

// Peer looks up the relationship with counterparty.
func (w *WalletDescriptor) Peer(counterparty Identity) (Peer, bool) {
	if i := w.PeerIndex(counterparty); i >= 0 {
		return w.Peers[i], true
	}
	return Peer{}, false
}

// AddPeer appends a relationship entry. It refuses duplicates so a
// descriptor never holds two entries for one counterparty.
func (w *WalletDescriptor) AddPeer(counterparty Identity, state PeerState) bool {
	if w.PeerIndex(counterparty) >= 0 {
		return false
	}
	w.Peers = append(w.Peers, Peer{Counterparty: counterparty, State: state})
	return true
}

// SetPeerState rewrites the state of an existing entry in place.
func (w *WalletDescriptor) SetPeerState(counterparty Identity, state PeerState) bool {
	i := w.PeerIndex(counterparty)
	if i < 0 {
		return false
	}
	w.Peers[i].State = state
	return true
}

// GroupIndex returns the position of the membership reference for group, or -1.
func (w *WalletDescriptor) GroupIndex(group GroupID) int {
	for i := range w.Groups {
		if w.Groups[i].Group == group {
			return i
		}
	}
	return -1
}

func (w *WalletDescriptor) GroupRef(group GroupID) (GroupRef, bool) {
	if i := w.GroupIndex(group); i >= 0 {
		return w.Groups[i], true
	}
	return GroupRef{}, false
}

func (w *WalletDescriptor) AddGroupRef(group GroupID, state MemberState) bool {
	if w.GroupIndex(group) >= 0 {
		return false
	}
	w.Groups = append(w.Groups, GroupRef{Group: group, State: state})
	return true
}

func (w *WalletDescriptor) SetGroupState(group GroupID, state MemberState) bool {
	i := w.GroupIndex(group)
	if i < 0 {
		return false
	}
	w.Groups[i].State = state
	return true
}
