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
	"errors"
	"fmt"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/capacity"
	"github.com/efchatnet/stem/backend/chatid"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/models"
)

// Register creates the wallet descriptor of id in the service schema.
func (s *Service) Register(ctx context.Context, id models.Identity) error {
	return s.run(ctx, "register", func(t *txn) error {
		if _, err := t.wallet(id); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
		} else if !errors.Is(err, ErrNotRegistered) {
			return err
		}

		w := &walletRecord{
			addr:   address.Wallet(id),
			kind:   codec.KindWallet,
			schema: s.schema,
			v:      &models.WalletDescriptor{IdentityKey: id},
		}
		size, err := plan(t, w)
		if err != nil {
			return err
		}
		return t.stageWallet(w, size)
	}, "identity", id)
}

// Invite opens a relationship from inviter to invitee. The inviter's wallet
// gains {invitee, Invited} and the invitee's gains {inviter, Requested}.
// Schemas with ChatOnInvite create the chat now; otherwise it is created
// here only to hold a non-empty initial message. Empty content never
// appends a message. The returned id keys the pair's chat.
func (s *Service) Invite(ctx context.Context, inviter, invitee models.Identity, content []byte) (models.ChatID, error) {
	id := chatid.Compute(inviter, invitee)
	err := s.run(ctx, "invite", func(t *txn) error {
		if inviter == invitee {
			return fmt.Errorf("%w: %s", ErrCannotInviteSelf, inviter)
		}
		a, err := t.wallet(inviter)
		if err != nil {
			return err
		}
		b, err := t.wallet(invitee)
		if err != nil {
			return err
		}
		if a.v.PeerIndex(invitee) >= 0 || b.v.PeerIndex(inviter) >= 0 {
			return fmt.Errorf("%w: %s and %s", ErrAlreadyInvited, inviter, invitee)
		}

		sizeA, err := plan(t, a, capacity.AddPeer{})
		if err != nil {
			return err
		}
		sizeB, err := plan(t, b, capacity.AddPeer{})
		if err != nil {
			return err
		}
		a.v.AddPeer(invitee, models.PeerInvited)
		b.v.AddPeer(inviter, models.PeerRequested)
		if err := t.stageWallet(a, sizeA); err != nil {
			return err
		}
		if err := t.stageWallet(b, sizeB); err != nil {
			return err
		}

		if len(content) == 0 && !s.schema.ChatOnInvite {
			return nil
		}
		c, ok, err := t.chat(id)
		if err != nil {
			return err
		}
		if !ok {
			c = t.newChat(inviter, invitee)
		}
		if len(content) > 0 {
			return t.appendChatMessage(c, t.message(inviter, content, false))
		}
		if ok {
			return nil
		}
		size, err := plan(t, c)
		if err != nil {
			return err
		}
		return t.stageChat(c, size)
	}, "inviter", inviter, "invitee", invitee, "content_len", len(content))
	if err != nil {
		return models.ChatID{}, err
	}
	return id, nil
}

// Accept is called by the invitee. Under schemas with AcceptProof, proof
// must be the pair's chat id. Both peer entries become Accepted and the
// chat is created if it does not exist yet.
func (s *Service) Accept(ctx context.Context, invitee, inviter models.Identity, proof models.ChatID) error {
	return s.run(ctx, "accept", func(t *txn) error {
		a, b, err := t.pendingInvite(invitee, inviter, proof)
		if err != nil {
			return err
		}
		if err := t.settle(a, b, invitee, inviter, models.PeerAccepted); err != nil {
			return err
		}

		_, ok, err := t.chat(chatid.Compute(invitee, inviter))
		if err != nil || ok {
			return err
		}
		c := t.newChat(invitee, inviter)
		size, err := plan(t, c)
		if err != nil {
			return err
		}
		return t.stageChat(c, size)
	}, "invitee", invitee, "inviter", inviter)
}

// Reject has the preconditions of Accept and moves both entries to
// Rejected.
func (s *Service) Reject(ctx context.Context, invitee, inviter models.Identity, proof models.ChatID) error {
	return s.run(ctx, "reject", func(t *txn) error {
		a, b, err := t.pendingInvite(invitee, inviter, proof)
		if err != nil {
			return err
		}
		return t.settle(a, b, invitee, inviter, models.PeerRejected)
	}, "invitee", invitee, "inviter", inviter)
}

// pendingInvite loads both wallets and checks the invitee holds Requested
// and the inviter Invited. It returns the invitee's wallet first.
func (t *txn) pendingInvite(invitee, inviter models.Identity, proof models.ChatID) (*walletRecord, *walletRecord, error) {
	mine, err := t.wallet(invitee)
	if err != nil {
		return nil, nil, err
	}
	theirs, err := t.wallet(inviter)
	if err != nil {
		return nil, nil, err
	}
	if p, ok := mine.v.Peer(inviter); !ok || p.State != models.PeerRequested {
		return nil, nil, fmt.Errorf("%w: %s by %s", ErrNotRequested, invitee, inviter)
	}
	if p, ok := theirs.v.Peer(invitee); !ok || p.State != models.PeerInvited {
		return nil, nil, fmt.Errorf("%w: %s by %s", ErrNotInvited, invitee, inviter)
	}
	if t.s.schema.AcceptProof && !chatid.Matches(invitee, inviter, proof) {
		return nil, nil, fmt.Errorf("%w: proof %s", ErrInvalidHash, proof)
	}
	return mine, theirs, nil
}

// settle moves both mirrored peer entries to state. Only discriminants
// change, so neither wallet is resized.
func (t *txn) settle(mine, theirs *walletRecord, me, them models.Identity, state models.PeerState) error {
	sizeMine, err := plan(t, mine)
	if err != nil {
		return err
	}
	sizeTheirs, err := plan(t, theirs)
	if err != nil {
		return err
	}
	mine.v.SetPeerState(them, state)
	theirs.v.SetPeerState(me, state)
	if err := t.stageWallet(mine, sizeMine); err != nil {
		return err
	}
	return t.stageWallet(theirs, sizeTheirs)
}

// SendMessage appends content from sender to the chat keyed by id. Only chat
// membership is checked unless RequireAcceptedPeers is set. Empty content
// is appended as a message with no body.
func (s *Service) SendMessage(ctx context.Context, sender models.Identity, id models.ChatID, content []byte, encrypted bool) error {
	return s.run(ctx, "send_message", func(t *txn) error {
		c, ok, err := t.chat(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrChatNotFound, id)
		}
		p := c.v.Participants
		if !chatid.Matches(p[0], p[1], id) {
			return fmt.Errorf("%w: chat %s", ErrInvalidHash, id)
		}
		if !c.v.HasParticipant(sender) {
			return fmt.Errorf("%w: %s", ErrNotInChat, sender)
		}

		if s.gate {
			other := p[0]
			if other == sender {
				other = p[1]
			}
			w, err := t.wallet(sender)
			if err != nil {
				return err
			}
			if peer, ok := w.v.Peer(other); !ok || peer.State != models.PeerAccepted {
				return fmt.Errorf("%w: %s with %s", ErrNotAccepted, sender, other)
			}
		}

		return t.appendChatMessage(c, t.message(sender, content, encrypted))
	}, "sender", sender, "chat", id, "content_len", len(content), "encrypted", encrypted)
}
