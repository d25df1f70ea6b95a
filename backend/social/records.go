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
	"errors"
	"fmt"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/capacity"
	"github.com/efchatnet/stem/backend/chatid"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/models"
	"github.com/efchatnet/stem/backend/storage"
)

// errPlanMismatch means the planner and the encoder disagree. It is a bug,
// never a precondition failure.
var errPlanMismatch = errors.New("planned size does not match encoding")

// loaded is a record as read by one operation, or about to be created by
// it.
type loaded[T any] struct {
	addr     address.Address
	kind     codec.Kind
	schema   codec.Schema
	capacity int
	exists   bool
	v        *T
}

type (
	walletRecord = loaded[models.WalletDescriptor]
	chatRecord   = loaded[models.PrivateChat]
	groupRecord  = loaded[models.GroupDescriptor]
)

// load reads the record at addr and pins what it saw in the batch, so the
// commit fails with storage.ErrConflict if another operation changed the
// record in between.
func load[T any](t *txn, kind codec.Kind, addr address.Address, decode func([]byte) (*T, codec.Schema, error)) (*loaded[T], bool, error) {
	r, err := t.s.store.Get(t.ctx, addr)
	if errors.Is(err, storage.ErrNotFound) {
		t.batch.ExpectAbsent(addr)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s %s: %w", kind, addr, err)
	}
	if r.Kind != kind {
		return nil, false, fmt.Errorf("%w: %s holds %s, want %s", codec.ErrWrongKind, addr, r.Kind, kind)
	}
	v, schema, err := decode(r.Data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode %s %s: %w", kind, addr, err)
	}
	t.batch.Expect(addr, r.Kind, r.Data)
	return &loaded[T]{addr: addr, kind: kind, schema: schema, capacity: r.Capacity, exists: true, v: v}, true, nil
}

// wallet loads the descriptor of id. A missing wallet is ErrNotRegistered.
func (t *txn) wallet(id models.Identity) (*walletRecord, error) {
	w, ok, err := load(t, codec.KindWallet, address.Wallet(id), codec.DecodeWallet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return w, nil
}

// groupWallet loads a wallet that must be able to hold group references.
func (t *txn) groupWallet(id models.Identity) (*walletRecord, error) {
	w, err := t.wallet(id)
	if err != nil {
		return nil, err
	}
	if !w.schema.Groups {
		return nil, fmt.Errorf("%w: wallet %s is schema v%d", ErrUnsupportedBySchema, id, w.schema.Version)
	}
	return w, nil
}

// chat loads the chat keyed by id. ok is false if it does not exist.
func (t *txn) chat(id models.ChatID) (c *chatRecord, ok bool, err error) {
	return load(t, codec.KindChat, address.Chat(id), codec.DecodeChat)
}

// newChat prepares the empty chat between a and b.
func (t *txn) newChat(a, b models.Identity) *chatRecord {
	lo, hi := chatid.Order(a, b)
	return &chatRecord{
		addr:   address.Chat(chatid.Compute(a, b)),
		kind:   codec.KindChat,
		schema: t.s.schema,
		v:      &models.PrivateChat{Participants: [2]models.Identity{lo, hi}},
	}
}

// group loads an existing group. A missing group is ErrGroupNotFound.
func (t *txn) group(id models.GroupID) (*groupRecord, error) {
	g, ok, err := load(t, codec.KindGroup, address.Address(id), codec.DecodeGroup)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return g, nil
}

// activeGroup loads a group that must still be Active. Every group mutation
// checks this before anything else.
func (t *txn) activeGroup(id models.GroupID) (*groupRecord, error) {
	g, err := t.group(id)
	if err != nil {
		return nil, err
	}
	if !g.v.Active() {
		return nil, fmt.Errorf("%w: %s", ErrGroupIsNotActive, id)
	}
	return g, nil
}

// plan sizes r after deltas. It must run before r.v is mutated; a record
// that does not exist yet is planned from its kind's empty layout.
func plan[T any](t *txn, r *loaded[T], deltas ...capacity.Delta) (int, error) {
	var current *T
	if r.exists {
		current = r.v
	}
	return t.s.planner.Plan(r.kind, r.schema, current, deltas...)
}

// stage encodes r.v and queues the steps that leave the record holding it
// at exactly size bytes.
func stage[T any](t *txn, r *loaded[T], size int, encode func(codec.Schema, *T) ([]byte, error)) error {
	data, err := encode(r.schema, r.v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", r.kind, r.addr, err)
	}
	if len(data) != size {
		return fmt.Errorf("%w: %s %s planned %d bytes, encoded %d", errPlanMismatch, r.kind, r.addr, size, len(data))
	}

	switch {
	case !r.exists:
		t.batch.Create(r.addr, r.kind, size)
		t.created[r.kind]++
		t.grown[r.kind] += size
	case size != r.capacity:
		t.batch.Resize(r.addr, size)
		t.grown[r.kind] += size - r.capacity
	}
	t.batch.Write(r.addr, data)

	r.exists = true
	r.capacity = size
	return nil
}

func (t *txn) stageWallet(w *walletRecord, size int) error {
	return stage(t, w, size, codec.EncodeWallet)
}

func (t *txn) stageChat(c *chatRecord, size int) error {
	return stage(t, c, size, codec.EncodeChat)
}

func (t *txn) stageGroup(g *groupRecord, size int) error {
	return stage(t, g, size, codec.EncodeGroup)
}

// message builds a message stamped with the service clock.
func (t *txn) message(sender models.Identity, content []byte, encrypted bool) models.Message {
	return models.Message{
		Sender:    sender,
		Encrypted: encrypted,
		Content:   content,
		Timestamp: t.s.clock.Now(),
	}
}

// appendMessage plans, appends and stages one message on a chat or group
// log. The message's schema cost is what content_length grows by.
func appendMessage[T any](t *txn, r *loaded[T], m models.Message, push func(*T, models.Message, uint32), encode func(codec.Schema, *T) ([]byte, error)) error {
	if m.Encrypted && !r.schema.EncryptedFlag {
		return fmt.Errorf("%w: encrypted messages in %s schema v%d", ErrUnsupportedBySchema, r.kind, r.schema.Version)
	}
	size, err := plan(t, r, capacity.AddMessage{Len: len(m.Content)})
	if err != nil {
		return err
	}
	push(r.v, m, uint32(codec.MessageSize(r.schema, len(m.Content))))
	return stage(t, r, size, encode)
}

func (t *txn) appendChatMessage(c *chatRecord, m models.Message) error {
	return appendMessage(t, c, m, (*models.PrivateChat).Append, codec.EncodeChat)
}

func (t *txn) appendGroupMessage(g *groupRecord, m models.Message) error {
	return appendMessage(t, g, m, (*models.GroupDescriptor).Append, codec.EncodeGroup)
}
