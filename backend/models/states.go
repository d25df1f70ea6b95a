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

import "fmt"

// PeerState is the state of a two-party relationship as seen by one side.
//
//	inviter: Invited   -> Accepted | Rejected
//	invitee: Requested -> Accepted | Rejected
type PeerState uint8

const (
	PeerInvited PeerState = iota
	PeerRequested
	PeerAccepted
	PeerRejected
)

var peerStateNames = [...]string{"invited", "requested", "accepted", "rejected"}

func (s PeerState) Valid() bool { return int(s) < len(peerStateNames) }

func (s PeerState) Terminal() bool { return s == PeerAccepted || s == PeerRejected }

func (s PeerState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("PeerState(%d)", uint8(s))
	}
	return peerStateNames[s]
}

// MemberState is the state of one identity's membership in one group. It is
// stored both in the group's member list and in the member's wallet.
type MemberState uint8

const (
	MemberInvited MemberState = iota
	MemberJoined
	MemberRejected
	MemberLeft
	MemberKicked
)

var memberStateNames = [...]string{"invited", "joined", "rejected", "left", "kicked"}

func (s MemberState) Valid() bool { return int(s) < len(memberStateNames) }

func (s MemberState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("MemberState(%d)", uint8(s))
	}
	return memberStateNames[s]
}

// GroupState is the lifecycle of a group. Closed is terminal.
type GroupState uint8

const (
	GroupActive GroupState = iota
	GroupClosed
)

func (s GroupState) Valid() bool { return s <= GroupClosed }

func (s GroupState) String() string {
	switch s {
	case GroupActive:
		return "active"
	case GroupClosed:
		return "closed"
	}
	return fmt.Sprintf("GroupState(%d)", uint8(s))
}

// GroupType decides whether identities may join without an invite.
type GroupType uint8

const (
	GroupPrivate GroupType = iota
	GroupPublic
)

func (t GroupType) Valid() bool { return t <= GroupPublic }

func (t GroupType) String() string {
	switch t {
	case GroupPrivate:
		return "private"
	case GroupPublic:
		return "public"
	}
	return fmt.Sprintf("GroupType(%d)", uint8(t))
}
