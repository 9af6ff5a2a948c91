// Package config builds laserblob services from declarative configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/laserblob/laserblob/pkg/laserblob"
	"github.com/laserblob/laserblob/pkg/laserblob/repo/memory"
	repopg "github.com/laserblob/laserblob/pkg/laserblob/repo/postgres"
	fsstorage "github.com/laserblob/laserblob/pkg/laserblob/storage/fs"
	memorystorage "github.com/laserblob/laserblob/pkg/laserblob/storage/memory"
	s3storage "github.com/laserblob/laserblob/pkg/laserblob/storage/s3"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Environment:  "development",
		DatabaseType: "memory",
		DBSchema:     "laserblob",
		Storage: StorageConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		},
		EnableEventLogging: true,
	}
}

// Config represents configuration for a laserblob service
type Config struct {
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: laserblob)

	// Storage configuration
	Storage StorageConfig

	// Service options
	EnableEventLogging bool
}

// StorageConfig represents configuration for the byte-storage backend
type StorageConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Storage.Type {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	return nil
}

// BuildService creates a Service instance from the configuration
func (c *Config) BuildService(logger laserblob.Logger) (laserblob.Service, error) {
	var options []laserblob.Option

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, laserblob.WithRepository(repo))

	store, err := c.buildStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Storage.Type, err)
	}
	options = append(options, laserblob.WithStorage(store))

	if c.EnableEventLogging && logger != nil {
		options = append(options, laserblob.WithEventSink(laserblob.NewLoggingEventSink(logger)))
	} else {
		options = append(options, laserblob.WithEventSink(laserblob.NewNoopEventSink()))
	}

	return laserblob.New(options...)
}

// buildRepository creates a Repository based on the configuration
func (c *Config) buildRepository() (laserblob.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			// set search_path for this session
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres and optionally sets search_path for the session.
// It fails if the schema (when provided) does not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorage creates a Storage backend based on the configuration
func (c *Config) buildStorage() (laserblob.Storage, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		fsConfig := fsstorage.Config{
			BaseDir:   getString(c.Storage.Config, "base_dir", "./data/storage"),
			URLPrefix: getString(c.Storage.Config, "url_prefix", ""),
		}
		return fsstorage.New(fsConfig)

	case "s3":
		s3Config := s3storage.Config{
			Region:                 getString(c.Storage.Config, "region", "us-east-1"),
			Bucket:                 getString(c.Storage.Config, "bucket", ""),
			AccessKeyID:            getString(c.Storage.Config, "access_key_id", ""),
			SecretAccessKey:        getString(c.Storage.Config, "secret_access_key", ""),
			Endpoint:               getString(c.Storage.Config, "endpoint", ""),
			UsePathStyle:           getBool(c.Storage.Config, "use_path_style", false),
			PresignDuration:        getInt(c.Storage.Config, "presign_duration", 300),
			CreateBucketIfNotExist: getBool(c.Storage.Config, "create_bucket_if_not_exist", false),
		}
		return s3storage.New(s3Config)

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
