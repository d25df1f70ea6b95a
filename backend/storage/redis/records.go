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

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efchatnet/stem/backend/address"
	"github.com/efchatnet/stem/backend/storage"
)

const (
	// Redis key prefixes
	recordPrefix = "stem:record:" // stem:record:{address} - kind byte + record data
	notifyPrefix = "stem:notify:" // stem:notify:{address} - change notifications
)

// Notification is published after a commit for every record it touched.
type Notification struct {
	Type     string `json:"type"`
	Address  string `json:"address"`
	Kind     string `json:"kind"`
	Capacity int    `json:"capacity"`
}

type RecordStore struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRecordStore(rdb *redis.Client) *RecordStore {
	return &RecordStore{rdb: rdb, log: slog.New(slog.DiscardHandler)}
}

// WithLogger sets where failed notifications are reported.
func (s *RecordStore) WithLogger(log *slog.Logger) *RecordStore {
	if log != nil {
		s.log = log
	}
	return s
}

// Open parses a redis:// URL and checks the server is reachable.
func Open(ctx context.Context, url string) (*RecordStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRecordStore(rdb), nil
}

func (s *RecordStore) Close() error {
	return s.rdb.Close()
}

func recordKey(addr address.Address) string {
	return recordPrefix + addr.String()
}

func (s *RecordStore) Get(ctx context.Context, addr address.Address) (*storage.Record, error) {
	return get(ctx, s.rdb, addr)
}

// Commit watches every touched key, stages the batch against what it reads
// and writes the result in one MULTI/EXEC. Expectations recorded by the
// caller are checked against the watched values, so a record changed since
// the caller read it, or while the commit runs, fails with
// storage.ErrConflict.
func (s *RecordStore) Commit(ctx context.Context, b *storage.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	addrs := b.Addresses()
	keys := make([]string, len(addrs))
	for i, addr := range addrs {
		keys[i] = recordKey(addr)
	}

	var staged []storage.Change
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var err error
		staged, err = storage.Stage(ctx, b, func(ctx context.Context, addr address.Address) (*storage.Record, error) {
			return get(ctx, tx, addr)
		})
		if err != nil || len(staged) == 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range staged {
				pipe.Set(ctx, recordKey(c.Record.Address), storage.MarshalValue(c.Record), 0)
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	if err != nil {
		return err
	}

	// The commit is durable at this point; a lost notification is reported
	// but does not fail it.
	if err := s.notify(ctx, staged); err != nil {
		s.log.Warn("failed to publish record notifications", "records", len(staged), "error", err)
	}
	return nil
}

func (s *RecordStore) notify(ctx context.Context, changes []storage.Change) error {
	var errs []error
	for _, c := range changes {
		n := Notification{
			Type:     "record_updated",
			Address:  c.Record.Address.String(),
			Kind:     c.Record.Kind.String(),
			Capacity: c.Record.Capacity,
		}
		if c.Created {
			n.Type = "record_created"
		}
		payload, err := json.Marshal(n)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to encode notification for %s: %w", n.Address, err))
			continue
		}
		if err := s.rdb.Publish(ctx, notifyPrefix+n.Address, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish notification for %s: %w", n.Address, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe delivers notifications for addr until ctx is done. The returned
// channel is closed afterwards.
func (s *RecordStore) Subscribe(ctx context.Context, addr address.Address) (<-chan Notification, error) {
	sub := s.rdb.Subscribe(ctx, notifyPrefix+addr.String())
	// Wait for confirmation that subscription is created
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Notification)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					continue // Skip malformed notifications
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping reports whether the server answers within timeout.
func (s *RecordStore) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, c getter, addr address.Address) (*storage.Record, error) {
	v, err := c.Get(ctx, recordKey(addr)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return storage.UnmarshalValue(addr, v)
}
