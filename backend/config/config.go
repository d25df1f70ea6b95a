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

// Package config loads stem's runtime configuration from an optional YAML
// file, an optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/efchatnet/stem/backend/capacity"
	"github.com/efchatnet/stem/backend/codec"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
	BackendPebble   = "pebble"
)

const (
	DefaultDatabaseURL = "postgres://localhost/stem?sslmode=disable"
	DefaultRedisURL    = "redis://localhost:6379/0"
	DefaultDataPath    = "./.stem"
	DefaultLogLevel    = "info"
)

// SizeBytes is a byte count that unmarshals from either an integer or a
// human readable string such as "10MiB".
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(value *yaml.Node) error {
	n, err := ParseSize(value.Value)
	if err != nil {
		return err
	}
	*s = n
	return nil
}

// ParseSize accepts "10MiB", "512 kB", "1048576" and negative integers.
// A negative size disables the record limit.
func ParseSize(v string) (SizeBytes, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	u, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", v, err)
	}
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: exceeds %d bytes", v, int64(math.MaxInt64))
	}
	return SizeBytes(u), nil
}

type Config struct {
	Backend string        `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Social  SocialConfig  `yaml:"social"`
	Logging LoggingConfig `yaml:"logging"`
}

type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	// DataPath is the file or directory used by the embedded backends.
	DataPath string `yaml:"data_path"`
}

type SocialConfig struct {
	SchemaVersion        uint8     `yaml:"schema_version"`
	RequireAcceptedPeers bool      `yaml:"require_accepted_peers"`
	MaxRecordSize        SizeBytes `yaml:"max_record_size"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Backend: BackendMemory,
		Storage: StorageConfig{
			DatabaseURL: DefaultDatabaseURL,
			RedisURL:    DefaultRedisURL,
			DataPath:    DefaultDataPath,
		},
		Social: SocialConfig{
			SchemaVersion: codec.Current.Version,
			MaxRecordSize: SizeBytes(capacity.DefaultLimit),
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}

// LoadFile reads a YAML file over the defaults. Fields missing from the
// file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the effective configuration. A missing config file or .env
// file is not an error; an unreadable or malformed one is.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case os.IsNotExist(err):
		default:
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. DATABASE_URL and
// REDIS_URL keep their conventional names; everything else is STEM_*.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("STEM_BACKEND", &c.Backend)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("REDIS_URL", &c.Storage.RedisURL)
	str("STEM_DATA_PATH", &c.Storage.DataPath)
	str("STEM_LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("STEM_SCHEMA_VERSION"); ok && v != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 8)
		if err != nil {
			return fmt.Errorf("invalid STEM_SCHEMA_VERSION %q: %w", v, err)
		}
		c.Social.SchemaVersion = uint8(n)
	}
	if v, ok := lookup("STEM_REQUIRE_ACCEPTED_PEERS"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid STEM_REQUIRE_ACCEPTED_PEERS %q: %w", v, err)
		}
		c.Social.RequireAcceptedPeers = b
	}
	if v, ok := lookup("STEM_MAX_RECORD_SIZE"); ok && v != "" {
		n, err := ParseSize(v)
		if err != nil {
			return fmt.Errorf("invalid STEM_MAX_RECORD_SIZE: %w", err)
		}
		c.Social.MaxRecordSize = n
	}
	return nil
}

// Validate fills zero values with defaults and rejects unknown settings.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	switch c.Backend {
	case BackendMemory, BackendPostgres, BackendRedis, BackendSQLite, BackendBolt, BackendPebble:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.Social.SchemaVersion == 0 {
		c.Social.SchemaVersion = codec.Current.Version
	}
	if _, err := codec.LookupSchema(c.Social.SchemaVersion); err != nil {
		return fmt.Errorf("invalid schema_version: %w", err)
	}
	if c.Social.MaxRecordSize == 0 {
		c.Social.MaxRecordSize = SizeBytes(capacity.DefaultLimit)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "":
		c.Logging.Level = DefaultLogLevel
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	if (c.Backend == BackendSQLite || c.Backend == BackendBolt || c.Backend == BackendPebble) && c.Storage.DataPath == "" {
		return fmt.Errorf("backend %s requires storage.data_path", c.Backend)
	}
	return nil
}

// Schema resolves the configured schema version.
func (c *Config) Schema() codec.Schema {
	s, err := codec.LookupSchema(c.Social.SchemaVersion)
	if err != nil {
		return codec.Current
	}
	return s
}
