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

package social

import "fmt"

// Error is a precondition failure. Every Error is detected before any record
// is written, so the operation that returns one has changed nothing.
type Error int

const (
	// NoError is never returned.
	NoError = Error(iota)

	//------ Relationship errors ------//

	// ErrAlreadyInvited is returned when either wallet already holds a peer
	// entry for the other party.
	ErrAlreadyInvited

	// ErrNotInvited is returned when the counterparty's entry is not Invited.
	ErrNotInvited

	// ErrNotRequested is returned when the caller's entry is not Requested.
	ErrNotRequested

	// ErrNotInChat is returned when the sender is not one of the chat's
	// participants.
	ErrNotInChat

	// ErrInvalidHash is returned when a chat id does not match the
	// participants it names.
	ErrInvalidHash

	// ErrCannotInviteSelf is returned by Invite when both parties are the
	// same identity.
	ErrCannotInviteSelf

	// ErrNotAccepted is returned when messaging requires an accepted
	// relationship and the sender's is not.
	ErrNotAccepted

	// ErrChatNotFound is returned when no chat record exists for a chat id.
	ErrChatNotFound

	//------ Group errors ------//

	// ErrAlreadyInGroup is returned when an identity already has a member
	// entry or membership reference for the group.
	ErrAlreadyInGroup

	// ErrYouAreNotOwner is returned for owner-only operations.
	ErrYouAreNotOwner

	// ErrNotInGroup is returned when the member is not Joined on both sides.
	ErrNotInGroup

	// ErrOwnerCannotLeave is returned when the owner tries to leave or be
	// kicked.
	ErrOwnerCannotLeave

	// ErrGroupIsNotActive is returned for any mutation of a closed group.
	ErrGroupIsNotActive

	// ErrGroupIsNotPublic is returned by JoinGroup on a private group.
	ErrGroupIsNotPublic

	// ErrGroupNotFound is returned when no group record exists for an id.
	ErrGroupNotFound

	// ErrInvalidGroupType is returned by CreateGroup for an unknown type.
	ErrInvalidGroupType

	//------ Descriptor errors ------//

	// ErrAlreadyRegistered is returned by Register for an existing wallet.
	ErrAlreadyRegistered

	// ErrNotRegistered is returned when an operation names an identity with
	// no wallet descriptor.
	ErrNotRegistered

	// ErrUnsupportedBySchema is returned when a record's schema cannot hold
	// what the operation needs, such as group references in a v1 wallet.
	ErrUnsupportedBySchema
)

var errorStrings = map[Error]string{
	NoError:                "no error",
	ErrAlreadyInvited:      "already invited",
	ErrNotInvited:          "not invited",
	ErrNotRequested:        "not requested",
	ErrNotInChat:           "not in chat",
	ErrInvalidHash:         "invalid hash",
	ErrCannotInviteSelf:    "cannot invite self",
	ErrNotAccepted:         "relationship not accepted",
	ErrChatNotFound:        "chat not found",
	ErrAlreadyInGroup:      "already in group",
	ErrYouAreNotOwner:      "you are not owner",
	ErrNotInGroup:          "not in group",
	ErrOwnerCannotLeave:    "owner cannot leave",
	ErrGroupIsNotActive:    "group is not active",
	ErrGroupIsNotPublic:    "group is not public",
	ErrGroupNotFound:       "group not found",
	ErrInvalidGroupType:    "invalid group type",
	ErrAlreadyRegistered:   "already registered",
	ErrNotRegistered:       "not registered",
	ErrUnsupportedBySchema: "unsupported by schema",
}

var errorLabels = map[Error]string{
	ErrAlreadyInvited:      "already_invited",
	ErrNotInvited:          "not_invited",
	ErrNotRequested:        "not_requested",
	ErrNotInChat:           "not_in_chat",
	ErrInvalidHash:         "invalid_hash",
	ErrCannotInviteSelf:    "cannot_invite_self",
	ErrNotAccepted:         "not_accepted",
	ErrChatNotFound:        "chat_not_found",
	ErrAlreadyInGroup:      "already_in_group",
	ErrYouAreNotOwner:      "not_owner",
	ErrNotInGroup:          "not_in_group",
	ErrOwnerCannotLeave:    "owner_cannot_leave",
	ErrGroupIsNotActive:    "group_not_active",
	ErrGroupIsNotPublic:    "group_not_public",
	ErrGroupNotFound:       "group_not_found",
	ErrInvalidGroupType:    "invalid_group_type",
	ErrAlreadyRegistered:   "already_registered",
	ErrNotRegistered:       "not_registered",
	ErrUnsupportedBySchema: "unsupported_by_schema",
}

func (e Error) Error() string {
	if s, ok := errorStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("unknown social error %d", int(e))
}

// label is the metrics label for e.
func (e Error) label() string {
	if s, ok := errorLabels[e]; ok {
		return s
	}
	return "unknown"
}
