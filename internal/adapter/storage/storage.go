// Package storage selects and instruments the durable session store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pscheid92/streamhub/internal/adapter/filestore"
	"github.com/pscheid92/streamhub/internal/adapter/memory"
	"github.com/pscheid92/streamhub/internal/adapter/metrics"
	"github.com/pscheid92/streamhub/internal/adapter/redis"
	"github.com/pscheid92/streamhub/internal/adapter/sqlite"
	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/platform/config"
)

const defaultSQLitePath = "streamhub.db"

// Open builds the store named by cfg.StorageBackend. The returned closer releases connections
// and is never nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.StorageMetrics) (domain.KeyValueStore, io.Closer, error) {
	var (
		store  domain.KeyValueStore
		closer io.Closer = nopCloser{}
	)

	switch cfg.StorageBackend {
	case config.StorageMemory:
		store = memory.NewStore()

	case config.StorageFile:
		fs, err := filestore.New(cfg.StoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("file storage: %w", err)
		}
		slog.Info("Session storage", "backend", cfg.StorageBackend, "path", fs.Path())
		store = fs

	case config.StorageSQLite:
		path := cfg.StoragePath
		if path == "" {
			path = defaultSQLitePath
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite storage: %w", err)
		}
		slog.Info("Session storage", "backend", cfg.StorageBackend, "path", path)
		store, closer = db, db

	case config.StorageRedis:
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis storage: %w", err)
		}
		slog.Info("Session storage", "backend", cfg.StorageBackend)
		store, closer = redis.NewSessionStore(rdb), rdb

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	return Instrument(store, cfg.StorageBackend, m), closer, nil
}

// Instrument counts every operation on store. A nil m returns store unchanged.
func Instrument(store domain.KeyValueStore, backend string, m *metrics.StorageMetrics) domain.KeyValueStore {
	if m == nil {
		return store
	}
	return &instrumented{next: store, backend: backend, metrics: m}
}

// Pinger is implemented by stores backed by a database or server connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the store's backend. Stores without a connection are always healthy.
func Ping(ctx context.Context, store domain.KeyValueStore) error {
	if p, ok := store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type instrumented struct {
	next    domain.KeyValueStore
	backend string
	metrics *metrics.StorageMetrics
}

func (s *instrumented) Get(ctx context.Context, key string) (string, error) {
	v, err := s.next.Get(ctx, key)
	s.observe("get", err)
	return v, err
}

func (s *instrumented) Set(ctx context.Context, key, value string) error {
	err := s.next.Set(ctx, key, value)
	s.observe("set", err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, keys ...string) error {
	err := s.next.Delete(ctx, keys...)
	s.observe("delete", err)
	return err
}

func (s *instrumented) Ping(ctx context.Context) error {
	return Ping(ctx, s.next)
}

func (s *instrumented) observe(op string, err error) {
	result := "success"
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		result = "miss"
	case err != nil:
		result = "error"
	}
	s.metrics.Operations.WithLabelValues(s.backend, op, result).Inc()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
