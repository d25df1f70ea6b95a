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

import (
	"context"
	"fmt"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/capacity"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/models"
)

// GroupInfo is what CreateGroup needs to describe a new group.
type GroupInfo struct {
	Title       []byte
	Description []byte
	ImageURL    []byte
	Type        models.GroupType
}

// CreateGroup creates an Active group owned by owner, with the owner as its
// only Joined member. The group is addressed by the owner and the number of
// group references the owner held before, which is also its id.
func (s *Service) CreateGroup(ctx context.Context, owner models.Identity, info GroupInfo) (models.GroupID, error) {
	var id models.GroupID
	err := s.run(ctx, "create_group", func(t *txn) error {
		if !info.Type.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidGroupType, info.Type)
		}
		w, err := t.groupWallet(owner)
		if err != nil {
			return err
		}
		id = address.Group(owner, uint32(len(w.v.Groups)))
		if w.v.GroupIndex(id) >= 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyInGroup, id)
		}

		g := &groupRecord{
			addr:   address.Address(id),
			kind:   codec.KindGroup,
			schema: s.schema,
			v: &models.GroupDescriptor{
				Title:       info.Title,
				Description: info.Description,
				ImageURL:    info.ImageURL,
				Owner:       owner,
				Type:        info.Type,
				State:       models.GroupActive,
			},
		}
		groupSize, err := plan(t, g,
			capacity.SetTitle{New: len(info.Title)},
			capacity.SetDescription{New: len(info.Description)},
			capacity.SetImageURL{New: len(info.ImageURL)},
			capacity.AddMember{},
		)
		if err != nil {
			return err
		}
		walletSize, err := plan(t, w, capacity.AddGroupRef{})
		if err != nil {
			return err
		}

		g.v.AddMember(owner, models.MemberJoined)
		w.v.AddGroupRef(id, models.MemberJoined)
		if err := t.stageGroup(g, groupSize); err != nil {
			return err
		}
		return t.stageWallet(w, walletSize)
	}, "owner", owner, "type", info.Type)
	if err != nil {
		return models.GroupID{}, err
	}
	return id, nil
}

// ownedGroup loads an active group and checks caller owns it.
func (t *txn) ownedGroup(id models.GroupID, caller models.Identity) (*groupRecord, error) {
	g, err := t.activeGroup(id)
	if err != nil {
		return nil, err
	}
	if !g.v.IsOwner(caller) {
		return nil, fmt.Errorf("%w: %s", ErrYouAreNotOwner, caller)
	}
	return g, nil
}

// addMember gives member a fresh entry in state on both sides. Either side
// already knowing the member is ErrAlreadyInGroup.
func (t *txn) addMember(g *groupRecord, member models.Identity, state models.MemberState) error {
	w, err := t.groupWallet(member)
	if err != nil {
		return err
	}
	id := models.GroupID(g.addr)
	if g.v.MemberIndex(member) >= 0 || w.v.GroupIndex(id) >= 0 {
		return fmt.Errorf("%w: %s in %s", ErrAlreadyInGroup, member, id)
	}

	groupSize, err := plan(t, g, capacity.AddMember{})
	if err != nil {
		return err
	}
	walletSize, err := plan(t, w, capacity.AddGroupRef{})
	if err != nil {
		return err
	}
	g.v.AddMember(member, state)
	w.v.AddGroupRef(id, state)
	if err := t.stageGroup(g, groupSize); err != nil {
		return err
	}
	return t.stageWallet(w, walletSize)
}

// transition moves member from state from to state to on both sides.
// missing is returned when either side is not in from.
func (t *txn) transition(g *groupRecord, member models.Identity, from, to models.MemberState, missing Error) error {
	w, err := t.groupWallet(member)
	if err != nil {
		return err
	}
	id := models.GroupID(g.addr)
	m, inGroup := g.v.Member(member)
	ref, inWallet := w.v.GroupRef(id)
	if !inGroup || !inWallet || m.State != from || ref.State != from {
		return fmt.Errorf("%w: %s in %s", missing, member, id)
	}

	groupSize, err := plan(t, g)
	if err != nil {
		return err
	}
	walletSize, err := plan(t, w)
	if err != nil {
		return err
	}
	g.v.SetMemberState(member, to)
	w.v.SetGroupState(id, to)
	if err := t.stageGroup(g, groupSize); err != nil {
		return err
	}
	return t.stageWallet(w, walletSize)
}

// InviteToGroup is owner-only. The invitee becomes Invited on both sides.
func (s *Service) InviteToGroup(ctx context.Context, owner models.Identity, id models.GroupID, invitee models.Identity) error {
	return s.run(ctx, "invite_to_group", func(t *txn) error {
		g, err := t.ownedGroup(id, owner)
		if err != nil {
			return err
		}
		return t.addMember(g, invitee, models.MemberInvited)
	}, "group", id, "owner", owner, "invitee", invitee)
}

// AcceptGroupInvite moves an Invited member to Joined.
func (s *Service) AcceptGroupInvite(ctx context.Context, member models.Identity, id models.GroupID) error {
	return s.run(ctx, "accept_group_invite", func(t *txn) error {
		g, err := t.activeGroup(id)
		if err != nil {
			return err
		}
		return t.transition(g, member, models.MemberInvited, models.MemberJoined, ErrNotInvited)
	}, "group", id, "member", member)
}

// RejectGroupInvite moves an Invited member to Rejected.
func (s *Service) RejectGroupInvite(ctx context.Context, member models.Identity, id models.GroupID) error {
	return s.run(ctx, "reject_group_invite", func(t *txn) error {
		g, err := t.activeGroup(id)
		if err != nil {
			return err
		}
		return t.transition(g, member, models.MemberInvited, models.MemberRejected, ErrNotInvited)
	}, "group", id, "member", member)
}

// JoinGroup lets anyone with no membership join a Public group directly.
func (s *Service) JoinGroup(ctx context.Context, member models.Identity, id models.GroupID) error {
	return s.run(ctx, "join_group", func(t *txn) error {
		g, err := t.activeGroup(id)
		if err != nil {
			return err
		}
		if g.v.Type != models.GroupPublic {
			return fmt.Errorf("%w: %s", ErrGroupIsNotPublic, id)
		}
		return t.addMember(g, member, models.MemberJoined)
	}, "group", id, "member", member)
}

// LeaveGroup moves a Joined member other than the owner to Left.
func (s *Service) LeaveGroup(ctx context.Context, member models.Identity, id models.GroupID) error {
	return s.run(ctx, "leave_group", func(t *txn) error {
		g, err := t.activeGroup(id)
		if err != nil {
			return err
		}
		if g.v.IsOwner(member) {
			return fmt.Errorf("%w: %s", ErrOwnerCannotLeave, id)
		}
		return t.transition(g, member, models.MemberJoined, models.MemberLeft, ErrNotInGroup)
	}, "group", id, "member", member)
}

// KickFromGroup is owner-only and moves a Joined target to Kicked. The owner
// cannot kick themself.
func (s *Service) KickFromGroup(ctx context.Context, owner models.Identity, id models.GroupID, target models.Identity) error {
	return s.run(ctx, "kick_from_group", func(t *txn) error {
		g, err := t.ownedGroup(id, owner)
		if err != nil {
			return err
		}
		if target == owner {
			return fmt.Errorf("%w: %s", ErrOwnerCannotLeave, id)
		}
		return t.transition(g, target, models.MemberJoined, models.MemberKicked, ErrNotInGroup)
	}, "group", id, "owner", owner, "target", target)
}

// RenameGroup replaces the title. Records never shrink, so a title shorter
// than the current one fails with capacity.ErrWouldShrink.
func (s *Service) RenameGroup(ctx context.Context, owner models.Identity, id models.GroupID, title []byte) error {
	return s.run(ctx, "rename_group", func(t *txn) error {
		g, err := t.ownedGroup(id, owner)
		if err != nil {
			return err
		}
		size, err := plan(t, g, capacity.SetTitle{Old: len(g.v.Title), New: len(title)})
		if err != nil {
			return err
		}
		g.v.Title = title
		return t.stageGroup(g, size)
	}, "group", id, "owner", owner, "title_len", len(title))
}

// UpdateGroupInfo replaces description and image url together. Only the
// combined size has to stay the same or grow.
func (s *Service) UpdateGroupInfo(ctx context.Context, owner models.Identity, id models.GroupID, description, imageURL []byte) error {
	return s.run(ctx, "update_group_info", func(t *txn) error {
		g, err := t.ownedGroup(id, owner)
		if err != nil {
			return err
		}
		size, err := plan(t, g,
			capacity.SetDescription{Old: len(g.v.Description), New: len(description)},
			capacity.SetImageURL{Old: len(g.v.ImageURL), New: len(imageURL)},
		)
		if err != nil {
			return err
		}
		g.v.Description = description
		g.v.ImageURL = imageURL
		return t.stageGroup(g, size)
	}, "group", id, "owner", owner)
}

// CloseGroup is owner-only and terminal.
func (s *Service) CloseGroup(ctx context.Context, owner models.Identity, id models.GroupID) error {
	return s.run(ctx, "close_group", func(t *txn) error {
		g, err := t.ownedGroup(id, owner)
		if err != nil {
			return err
		}
		size, err := plan(t, g)
		if err != nil {
			return err
		}
		g.v.State = models.GroupClosed
		return t.stageGroup(g, size)
	}, "group", id, "owner", owner)
}

// SendGroupMessage appends content from a Joined member. Only the group's
// member entry is consulted.
func (s *Service) SendGroupMessage(ctx context.Context, sender models.Identity, id models.GroupID, content []byte, encrypted bool) error {
	return s.run(ctx, "send_group_message", func(t *txn) error {
		g, err := t.activeGroup(id)
		if err != nil {
			return err
		}
		if m, ok := g.v.Member(sender); !ok || m.State != models.MemberJoined {
			return fmt.Errorf("%w: %s in %s", ErrNotInGroup, sender, id)
		}
		return t.appendGroupMessage(g, t.message(sender, content, encrypted))
	}, "group", id, "sender", sender, "content_len", len(content), "encrypted", encrypted)
}
