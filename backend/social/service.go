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

// Package social holds the relationship and group state machines. Every
// operation reads the records it names, checks its preconditions, plans the
// exact size of each record it changes and commits one atomic batch.
package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/efchatnet/stem/backend/capacity"
	"github.com/efchatnet/stem/backend/codec"
	"github.com/efchatnet/stem/backend/storage"
)

type Config struct {
	// Schema is used for records this service creates. Existing records keep
	// the schema they were written with. Zero means codec.Current.
	Schema codec.Schema

	// RequireAcceptedPeers makes SendMessage require the sender's
	// relationship with the other participant to be Accepted. Off by
	// default: only chat membership gates messaging.
	RequireAcceptedPeers bool

	// MaxRecordSize caps planned record sizes. Zero means
	// capacity.DefaultLimit; negative disables the cap.
	MaxRecordSize int

	Clock  Clock
	Logger *slog.Logger
}

type Service struct {
	store   storage.RecordStore
	planner *capacity.Planner
	schema  codec.Schema
	gate    bool
	clock   Clock
	log     *slog.Logger
}

func NewService(store storage.RecordStore, cfg Config) *Service {
	schema := cfg.Schema
	if schema.Version == 0 {
		schema = codec.Current
	}
	limit := cfg.MaxRecordSize
	if limit == 0 {
		limit = capacity.DefaultLimit
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:   store,
		planner: capacity.New(limit),
		schema:  schema,
		gate:    cfg.RequireAcceptedPeers,
		clock:   clock,
		log:     log,
	}
}

// Schema returns the schema used for new records.
func (s *Service) Schema() codec.Schema { return s.schema }

// txn is the unit of work of one operation. Nothing reaches the store until
// run commits the batch.
type txn struct {
	ctx     context.Context
	s       *Service
	batch   *storage.Batch
	grown   map[codec.Kind]int
	created map[codec.Kind]int
}

// run executes fn and commits what it staged. A batch that only pins what
// fn read is not committed. Failures are logged and counted; fn must not
// commit on its own.
func (s *Service) run(ctx context.Context, op string, fn func(t *txn) error, attrs ...any) error {
	t := &txn{
		ctx:     ctx,
		s:       s,
		batch:   storage.NewBatch(),
		grown:   make(map[codec.Kind]int),
		created: make(map[codec.Kind]int),
	}
	log := s.log.With("op", op, "op_id", uuid.NewString())

	err := fn(t)
	if err == nil && t.batch.Mutates() {
		if cerr := s.store.Commit(ctx, t.batch); cerr != nil {
			err = fmt.Errorf("failed to commit %s: %w", op, cerr)
		}
	}

	metricOps.WithLabelValues(op, resultLabel(err)).Inc()
	if err != nil {
		log.Info("operation rejected", append(attrs, "error", err)...)
		return err
	}
	for kind, n := range t.grown {
		metricBytesGrown.WithLabelValues(kind.String()).Add(float64(n))
	}
	for kind, n := range t.created {
		metricRecordsCreated.WithLabelValues(kind.String()).Add(float64(n))
	}
	log.Debug("operation applied", append(attrs, "steps", t.batch.Len())...)
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var e Error
	if errors.As(err, &e) {
		return e.label()
	}
	switch {
	case errors.Is(err, capacity.ErrWouldShrink):
		return "would_shrink"
	case errors.Is(err, capacity.ErrRecordTooLarge):
		return "too_large"
	case errors.Is(err, storage.ErrConflict):
		return "conflict"
	}
	return "error"
}
