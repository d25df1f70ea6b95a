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

	"github.com/efchatnet/stem/backend/chatid"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/models"
	"github.com/efchatnet/stem/backend/storage"
)

// UpgradeDescriptor rewrites the wallet of id in the service schema. A
// wallet already in that schema is left alone. Moving to a schema that
// cannot hold the wallet's content, or that would shrink it, fails.
func (s *Service) UpgradeDescriptor(ctx context.Context, id models.Identity) error {
	return s.run(ctx, "upgrade_descriptor", func(t *txn) error {
		w, err := t.wallet(id)
		if err != nil {
			return err
		}
		if w.schema == s.schema {
			return nil
		}
		size, err := s.planner.Reschema(w.schema, s.schema, w.v)
		if err != nil {
			return err
		}
		w.schema = s.schema
		if w.v.IdentityKey.IsZero() {
			w.v.IdentityKey = id
		}
		return t.stageWallet(w, size)
	}, "identity", id, "schema", s.schema.Version)
}

// Descriptor returns the wallet of id and the schema it is stored in.
func (s *Service) Descriptor(ctx context.Context, id models.Identity) (*models.WalletDescriptor, codec.Schema, error) {
	t := s.reader(ctx)
	w, err := t.wallet(id)
	if err != nil {
		return nil, codec.Schema{}, err
	}
	return w.v, w.schema, nil
}

// Chat returns the chat between a and b.
func (s *Service) Chat(ctx context.Context, a, b models.Identity) (*models.PrivateChat, error) {
	return s.ChatByID(ctx, chatid.Compute(a, b))
}

// ChatByID returns the chat keyed by id.
func (s *Service) ChatByID(ctx context.Context, id models.ChatID) (*models.PrivateChat, error) {
	c, ok, err := s.reader(ctx).chat(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	return c.v, nil
}

// Group returns the group with id.
func (s *Service) Group(ctx context.Context, id models.GroupID) (*models.GroupDescriptor, error) {
	g, err := s.reader(ctx).group(id)
	if err != nil {
		return nil, err
	}
	return g.v, nil
}

// reader is a txn that is never committed.
func (s *Service) reader(ctx context.Context) *txn {
	return &txn{ctx: ctx, s: s, batch: storage.NewBatch()}
}
