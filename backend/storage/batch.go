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

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/codec"
)

// StepOp is the kind of change a batch step makes.
type StepOp uint8

const (
	StepCreate StepOp = iota + 1
	StepResize
	StepWrite
	// StepExpect and StepExpectAbsent change nothing. They fail the batch
	// with ErrConflict when the stored record is no longer what the
	// operation read.
	StepExpect
	StepExpectAbsent
)

func (op StepOp) String() string {
	switch op {
	case StepCreate:
		return "create"
	case StepResize:
		return "resize"
	case StepWrite:
		return "write"
	case StepExpect:
		return "expect"
	case StepExpectAbsent:
		return "expect-absent"
	}
	return fmt.Sprintf("StepOp(%d)", uint8(op))
}

// Step is one record mutation inside a batch.
type Step struct {
	Op       StepOp
	Address  address.Address
	Kind     codec.Kind
	Capacity int
	Data     []byte
}

// Batch collects the record mutations of one operation. Steps are applied in
// order; later steps see the effect of earlier ones.
type Batch struct {
	steps []Step
}

func NewBatch() *Batch {
	return &Batch{}
}

// Create allocates a zero filled record of exactly capacity bytes.
func (b *Batch) Create(addr address.Address, kind codec.Kind, capacity int) {
	b.steps = append(b.steps, Step{Op: StepCreate, Address: addr, Kind: kind, Capacity: capacity})
}

// Resize grows a record to exactly capacity bytes, zero filling the tail.
func (b *Batch) Resize(addr address.Address, capacity int) {
	b.steps = append(b.steps, Step{Op: StepResize, Address: addr, Capacity: capacity})
}

// Write replaces a record's content. len(data) must equal its capacity.
func (b *Batch) Write(addr address.Address, data []byte) {
	b.steps = append(b.steps, Step{Op: StepWrite, Address: addr, Data: data})
}

// Expect requires the record at addr to still hold kind and exactly data
// when the batch is applied.
func (b *Batch) Expect(addr address.Address, kind codec.Kind, data []byte) {
	b.steps = append(b.steps, Step{Op: StepExpect, Address: addr, Kind: kind, Capacity: len(data), Data: data})
}

// ExpectAbsent requires nothing to be stored at addr when the batch is
// applied.
func (b *Batch) ExpectAbsent(addr address.Address) {
	b.steps = append(b.steps, Step{Op: StepExpectAbsent, Address: addr})
}

func (b *Batch) Steps() []Step { return b.steps }

// Mutates reports whether any step changes a record.
func (b *Batch) Mutates() bool {
	for _, s := range b.steps {
		if s.mutates() {
			return true
		}
	}
	return false
}

func (s Step) mutates() bool {
	return s.Op == StepCreate || s.Op == StepResize || s.Op == StepWrite
}

func (b *Batch) Len() int { return len(b.steps) }

// Addresses lists every address the batch touches, in first-touch order.
func (b *Batch) Addresses() []address.Address {
	seen := make(map[address.Address]bool, len(b.steps))
	var out []address.Address
	for _, s := range b.steps {
		if !seen[s.Address] {
			seen[s.Address] = true
			out = append(out, s.Address)
		}
	}
	return out
}

// Apply returns the record that results from applying s to cur. cur is nil
// when nothing is stored at the step's address. cur is never modified.
func Apply(cur *Record, s Step) (*Record, error) {
	switch s.Op {
	case StepCreate:
		if cur != nil {
			return nil, fmt.Errorf("%w: %s", ErrExists, s.Address)
		}
		if !s.Kind.Valid() || s.Capacity < 0 {
			return nil, fmt.Errorf("%w: create %s kind=%s capacity=%d", ErrInvalidStep, s.Address, s.Kind, s.Capacity)
		}
		return &Record{Address: s.Address, Kind: s.Kind, Capacity: s.Capacity, Data: make([]byte, s.Capacity)}, nil

	case StepResize:
		if cur == nil {
			return nil, fmt.Errorf("%w: resize %s", ErrNotFound, s.Address)
		}
		if s.Capacity < cur.Capacity {
			return nil, fmt.Errorf("%w: %s from %d to %d bytes", ErrShrink, s.Address, cur.Capacity, s.Capacity)
		}
		data := make([]byte, s.Capacity)
		copy(data, cur.Data)
		return &Record{Address: cur.Address, Kind: cur.Kind, Capacity: s.Capacity, Data: data}, nil

	case StepWrite:
		if cur == nil {
			return nil, fmt.Errorf("%w: write %s", ErrNotFound, s.Address)
		}
		if len(s.Data) != cur.Capacity {
			return nil, fmt.Errorf("%w: %s has %d bytes, write has %d", ErrCapacityMismatch, s.Address, cur.Capacity, len(s.Data))
		}
		data := make([]byte, len(s.Data))
		copy(data, s.Data)
		return &Record{Address: cur.Address, Kind: cur.Kind, Capacity: cur.Capacity, Data: data}, nil

	case StepExpect:
		if cur == nil {
			return nil, fmt.Errorf("%w: %s was removed", ErrConflict, s.Address)
		}
		if cur.Kind != s.Kind || cur.Capacity != s.Capacity || !bytes.Equal(cur.Data, s.Data) {
			return nil, fmt.Errorf("%w: %s was modified", ErrConflict, s.Address)
		}
		return cur, nil

	case StepExpectAbsent:
		if cur != nil {
			return nil, fmt.Errorf("%w: %s was created", ErrConflict, s.Address)
		}
		return nil, nil
	}
	return nil, fmt.Errorf("%w: op %s", ErrInvalidStep, s.Op)
}

// LoadFunc reads the currently stored record at addr inside a backend's
// transaction. It returns ErrNotFound when the address is empty.
type LoadFunc func(ctx context.Context, addr address.Address) (*Record, error)

// Change is the final state of one record a batch writes. Created is set
// when nothing was stored at the address before the batch.
type Change struct {
	Record  *Record
	Created bool
}

// Stage applies every step of b on top of what load returns and yields the
// final record for each address a mutating step touched, in first-touch
// order. Addresses that are only expected are checked but not returned.
// Nothing is persisted; backends write the changes inside their own
// transaction.
func Stage(ctx context.Context, b *Batch, load LoadFunc) ([]Change, error) {
	current := make(map[address.Address]*Record)
	existed := make(map[address.Address]bool)
	loaded := make(map[address.Address]bool)
	dirty := make(map[address.Address]bool)
	var order []address.Address
	for _, s := range b.steps {
		if !loaded[s.Address] {
			r, err := load(ctx, s.Address)
			switch {
			case err == nil:
				current[s.Address] = r
				existed[s.Address] = true
			case isNotFound(err):
			default:
				return nil, err
			}
			loaded[s.Address] = true
		}
		next, err := Apply(current[s.Address], s)
		if err != nil {
			return nil, err
		}
		current[s.Address] = next
		if s.mutates() && !dirty[s.Address] {
			dirty[s.Address] = true
			order = append(order, s.Address)
		}
	}

	out := make([]Change, 0, len(order))
	for _, addr := range order {
		out = append(out, Change{Record: current[addr], Created: !existed[addr]})
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
