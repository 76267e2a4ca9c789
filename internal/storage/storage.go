// Package storage provides the durable key-value stores the complaint engine
// persists its collection into.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"incluverse/backend/internal/config"
	"incluverse/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrKeyNotFound is returned by Get when nothing has been stored under the key yet.
	ErrKeyNotFound = errors.New("storage: key not found")
	// ErrConflict is returned by CompareAndSwap when the key no longer holds the expected value.
	ErrConflict = errors.New("storage: value changed by another writer")
)

// KVStore is a durable string key-value store shared by every process that
// serves the same collection.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	// CompareAndSwap writes value under key only if the key still holds old.
	// An empty old means the key must not exist yet.
	CompareAndSwap(ctx context.Context, key, old, value string) error
}

// Open builds the store selected by cfg.StorageDriver.
func Open(cfg *config.Config) (KVStore, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return NewGormStore(db)
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
		return NewGormStore(db)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		return NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// GormStore keeps entries in the kv_entries table of a SQL database.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore migrates the kv_entries table and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &GormStore{DB: db}, nil
}

// Get returns the value stored under key.
func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	err := s.DB.WithContext(ctx).Where("storage_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// CompareAndSwap implements KVStore with a conditional insert or update.
func (s *GormStore) CompareAndSwap(ctx context.Context, key, old, value string) error {
	db := s.DB.WithContext(ctx)
	if old == "" {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.KVEntry{Key: key, Value: value})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	}

	res := db.Model(&models.KVEntry{}).
		Where("storage_key = ? AND value = ?", key, old).
		Updates(map[string]any{"value": value, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// RedisStore keeps entries as plain Redis strings.
type RedisStore struct {
	Redis *redis.Client
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{Redis: rdb}
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// CompareAndSwap implements KVStore with WATCH and MULTI/EXEC.
func (s *RedisStore) CompareAndSwap(ctx context.Context, key, old, value string) error {
	err := s.Redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if old != "" {
				return ErrConflict
			}
		case err != nil:
			return err
		case current != old:
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}
