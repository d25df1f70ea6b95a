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

// Package integration opens a configured record store and builds the social
// service on top of it.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/efchatnet/stem/backend/config"
	"github.com/efchatnet/stem/backend/logging"
	"github.com/efchatnet/stem/backend/social"
	"github.com/efchatnet/stem/backend/storage"
	"github.com/efchatnet/stem/backend/storage/bolt"
	"github.com/efchatnet/stem/backend/storage/memory"
	"github.com/efchatnet/stem/backend/storage/pebble"
	"github.com/efchatnet/stem/backend/storage/postgres"
	"github.com/efchatnet/stem/backend/storage/redis"
	"github.com/efchatnet/stem/backend/storage/sqlite"
)

// Stem bundles a configured record store with the social service running
// on top of it, so it can be embedded into a host application.
type Stem struct {
	store   storage.RecordStore
	service *social.Service
	log     *slog.Logger
}

// OpenStore opens the record store named by cfg.Backend. It does not
// migrate. log receives adapter warnings and may be nil.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.RecordStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.Storage.DatabaseURL)
	case config.BackendRedis:
		rs, err := redis.Open(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return nil, err
		}
		return rs.WithLogger(log), nil
	case config.BackendSQLite:
		if err := ensureParent(cfg.Storage.DataPath); err != nil {
			return nil, err
		}
		return sqlite.Open(cfg.Storage.DataPath)
	case config.BackendBolt:
		if err := ensureParent(cfg.Storage.DataPath); err != nil {
			return nil, err
		}
		return bolt.Open(cfg.Storage.DataPath)
	case config.BackendPebble:
		return pebble.Open(cfg.Storage.DataPath)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func ensureParent(path string) error {
	if path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Migrate prepares the store's schema when the backend has one.
func Migrate(ctx context.Context, store storage.RecordStore) error {
	m, ok := store.(storage.Migrator)
	if !ok {
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Open opens and migrates the configured store and builds the service.
// A nil logger is replaced by one built from cfg.Logging.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.New(cfg.Logging.Level, nil)
	}

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	if err := Migrate(ctx, store); err != nil {
		store.Close()
		return nil, err
	}

	svc := social.NewService(store, social.Config{
		Schema:               cfg.Schema(),
		RequireAcceptedPeers: cfg.Social.RequireAcceptedPeers,
		MaxRecordSize:        int(cfg.Social.MaxRecordSize),
		Logger:               log,
	})
	log.Info("stem ready",
		"backend", cfg.Backend,
		"schema", cfg.Social.SchemaVersion,
		"max_record_size", int64(cfg.Social.MaxRecordSize))

	return &Stem{store: store, service: svc, log: log}, nil
}

func (s *Stem) Service() *social.Service { return s.service }

func (s *Stem) Store() storage.RecordStore { return s.store }

func (s *Stem) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
