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

// Member is one entry of a group's member list.
type Member struct {
	Identity Identity    `json:"identity"`
	State    MemberState `json:"state"`
}

// GroupDescriptor holds a group's metadata, member list and message log.
type GroupDescriptor struct {
	Title         []byte     `json:"title"`
	Description   []byte     `json:"description"`
	ImageURL      []byte     `json:"image_url"`
	Owner         Identity   `json:"owner"`
	Type          GroupType  `json:"group_type"`
	State         GroupState `json:"state"`
	Members       []Member   `json:"members"`
	ContentLength uint32     `json:"content_length"`
	Messages      []Message  `json:"messages"`
}

func (g *GroupDescriptor) Active() bool { return g.State == GroupActive }

func (g *GroupDescriptor) IsOwner(id Identity) bool { return g.Owner == id }

// MemberIndex returns the position of id in the member list, or -1.
func (g *GroupDescriptor) MemberIndex(id Identity) int {
	for i := range g.Members {
		if g.Members[i].Identity == id {
			return i
		}
	}
	return -1
}

func (g *GroupDescriptor) Member(id Identity) (Member, bool) {
	if i := g.MemberIndex(id); i >= 0 {
		return g.Members[i], true
	}
	return Member{}, false
}

func (g *GroupDescriptor) AddMember(id Identity, state MemberState) bool {
	if g.MemberIndex(id) >= 0 {
		return false
	}
	g.Members = append(g.Members, Member{Identity: id, State: state})
	return true
}

func (g *GroupDescriptor) SetMemberState(id Identity, state MemberState) bool {
	i := g.MemberIndex(id)
	if i < 0 {
		return false
	}
	g.Members[i].State = state
	return true
}

// Append adds m to the group log; see PrivateChat.Append.
func (g *GroupDescriptor) Append(m Message, cost uint32) {
	g.Messages = append(g.Messages, m)
	g.ContentLength += cost
}
