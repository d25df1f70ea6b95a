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

// Package capacity computes the exact size a record must occupy after a
// mutation, from its logical content and the change being made. It never
// looks at physical storage and never re-scans message logs.
package capacity

import (
	"errors"
	"fmt"
	"math"

	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/models"
)

// DefaultLimit is the largest record the planner admits unless configured
// otherwise.
const DefaultLimit = 10 * 1024 * 1024

var (
	ErrWouldShrink    = errors.New("capacity: mutation would shrink record")
	ErrRecordTooLarge = errors.New("capacity: record exceeds size limit")
	ErrInvalidDelta   = errors.New("capacity: delta does not apply to record kind")
	ErrKindMismatch   = errors.New("capacity: content does not match record kind")
)

// Delta is one change to a record's variable-length content. State
// transitions rewrite a discriminant in place and need no delta.
type Delta interface {
	apply(p *plan) error
}

// AddPeer appends one relationship entry to a wallet descriptor.
type AddPeer struct{}

// AddGroupRef appends one membership reference to a wallet descriptor.
type AddGroupRef struct{}

// AddMember appends one entry to a group's member list.
type AddMember struct{}

// AddMessage appends a message with Len content bytes to a chat or group.
type AddMessage struct{ Len int }

// SetTitle replaces a group title of Old bytes with one of New bytes.
type SetTitle struct{ Old, New int }

// SetDescription replaces a group description.
type SetDescription struct{ Old, New int }

// SetImageURL replaces a group image url.
type SetImageURL struct{ Old, New int }

type plan struct {
	kind          codec.Kind
	schema        codec.Schema
	size          int
	contentLength uint64
}

func (AddPeer) apply(p *plan) error {
	if p.kind != codec.KindWallet {
		return fmt.Errorf("%w: add peer to %s", ErrInvalidDelta, p.kind)
	}
	p.size += codec.PeerSize
	return nil
}

func (AddGroupRef) apply(p *plan) error {
	if p.kind != codec.KindWallet {
		return fmt.Errorf("%w: add group reference to %s", ErrInvalidDelta, p.kind)
	}
	if !p.schema.Groups {
		return fmt.Errorf("%w: group references in schema v%d", codec.ErrUnsupported, p.schema.Version)
	}
	p.size += codec.GroupRefSize
	return nil
}

func (AddMember) apply(p *plan) error {
	if p.kind != codec.KindGroup {
		return fmt.Errorf("%w: add member to %s", ErrInvalidDelta, p.kind)
	}
	p.size += codec.MemberSize
	return nil
}

func (d AddMessage) apply(p *plan) error {
	if p.kind != codec.KindChat && p.kind != codec.KindGroup {
		return fmt.Errorf("%w: add message to %s", ErrInvalidDelta, p.kind)
	}
	if d.Len < 0 {
		return fmt.Errorf("%w: negative message length", ErrInvalidDelta)
	}
	cost := codec.MessageSize(p.schema, d.Len)
	p.contentLength += uint64(cost)
	if p.contentLength > math.MaxUint32 {
		return fmt.Errorf("%w: content length %d overflows u32", ErrRecordTooLarge, p.contentLength)
	}
	p.size += cost
	return nil
}

func replaceField(p *plan, field string, old, next int) error {
	if p.kind != codec.KindGroup {
		return fmt.Errorf("%w: set %s on %s", ErrInvalidDelta, field, p.kind)
	}
	if old < 0 || next < 0 {
		return fmt.Errorf("%w: negative %s length", ErrInvalidDelta, field)
	}
	p.size += next - old
	return nil
}

func (d SetTitle) apply(p *plan) error { return replaceField(p, "title", d.Old, d.New) }

func (d SetDescription) apply(p *plan) error {
	return replaceField(p, "description", d.Old, d.New)
}

func (d SetImageURL) apply(p *plan) error { return replaceField(p, "image url", d.Old, d.New) }

// Planner computes post-mutation record sizes.
type Planner struct {
	limit int
}

// New returns a planner rejecting records above limit bytes. A limit of
// zero or less disables the check.
func New(limit int) *Planner {
	return &Planner{limit: limit}
}

// Limit returns the configured maximum record size.
func (p *Planner) Limit() int { return p.limit }

// Size returns the current exact size of a record's content. A nil content
// pointer sizes the empty record of that kind.
func Size(kind codec.Kind, s codec.Schema, current any) (int, error) {
	size, _, err := measure(kind, s, current)
	return size, err
}

func measure(kind codec.Kind, s codec.Schema, current any) (size int, contentLength uint32, err error) {
	switch c := current.(type) {
	case *models.WalletDescriptor:
		if kind != codec.KindWallet {
			break
		}
		if c == nil {
			c = &models.WalletDescriptor{}
		}
		return codec.WalletSize(s, c), 0, nil
	case *models.PrivateChat:
		if kind != codec.KindChat {
			break
		}
		if c == nil {
			c = &models.PrivateChat{}
		}
		return codec.ChatSize(c), c.ContentLength, nil
	case *models.GroupDescriptor:
		if kind != codec.KindGroup {
			break
		}
		if c == nil {
			c = &models.GroupDescriptor{}
		}
		return codec.GroupSize(c), c.ContentLength, nil
	case nil:
		switch kind {
		case codec.KindWallet:
			return codec.WalletSize(s, &models.WalletDescriptor{}), 0, nil
		case codec.KindChat:
			return codec.ChatSize(&models.PrivateChat{}), 0, nil
		case codec.KindGroup:
			return codec.GroupSize(&models.GroupDescriptor{}), 0, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %T as %s", ErrKindMismatch, current, kind)
}

// Plan returns the exact size of the record of kind and schema s holding
// current once deltas are applied. current describes the record as it is
// stored now; a nil value (typed or untyped) plans a record that does not
// exist yet, starting from that kind's empty layout.
func (p *Planner) Plan(kind codec.Kind, s codec.Schema, current any, deltas ...Delta) (int, error) {
	base, contentLength, err := measure(kind, s, current)
	if err != nil {
		return 0, err
	}
	pl := plan{kind: kind, schema: s, size: base, contentLength: uint64(contentLength)}
	for _, d := range deltas {
		if err := d.apply(&pl); err != nil {
			return 0, err
		}
	}
	if pl.size < base {
		return 0, fmt.Errorf("%w: %s from %d to %d bytes", ErrWouldShrink, kind, base, pl.size)
	}
	if p.limit > 0 && pl.size > p.limit {
		return 0, fmt.Errorf("%w: %s needs %d bytes, limit %d", ErrRecordTooLarge, kind, pl.size, p.limit)
	}
	return pl.size, nil
}

// Reschema plans rewriting a wallet descriptor from one schema to another.
// Moving to a schema that drops a populated field is refused.
func (p *Planner) Reschema(from, to codec.Schema, w *models.WalletDescriptor) (int, error) {
	if !to.Groups && len(w.Groups) > 0 {
		return 0, fmt.Errorf("%w: group references in schema v%d", codec.ErrUnsupported, to.Version)
	}
	before := codec.WalletSize(from, w)
	after := codec.WalletSize(to, w)
	if after < before {
		return 0, fmt.Errorf("%w: wallet from %d to %d bytes", ErrWouldShrink, before, after)
	}
	if p.limit > 0 && after > p.limit {
		return 0, fmt.Errorf("%w: wallet needs %d bytes, limit %d", ErrRecordTooLarge, after, p.limit)
	}
	return after, nil
}
