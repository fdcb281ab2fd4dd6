package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_records (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	postgresChannel = "kv_records_changed"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewPostgres connects a pgx pool and ensures the records table exists. Writes are
// announced with NOTIFY so other server instances can follow them through Watch.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &postgresStore{pool: pool, logger: logger}, nil
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, "SELECT value FROM kv_records WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *postgresStore) Set(ctx context.Context, key string, value []byte) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO kv_records (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
	batch.Queue("SELECT pg_notify($1, $2)", postgresChannel, string(OpSet)+":"+key)

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM kv_records WHERE key = $1", key)
	batch.Queue("SELECT pg_notify($1, $2)", postgresChannel, string(OpDelete)+":"+key)

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close stops listeners before closing the pool; pgxpool.Close waits for acquired conns.
func (s *postgresStore) Close() error {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.wg.Wait()
	s.pool.Close()
	return nil
}

// Watch holds one pooled connection in LISTEN mode until ctx is cancelled.
func (s *postgresStore) Watch(ctx context.Context, fn func(Change)) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+postgresChannel); err != nil {
		conn.Release()
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("postgres listen stopped", slog.Any("error", err))
				}
				return
			}
			change, ok := parseNotification(notification.Payload)
			if !ok {
				continue
			}
			if change.Op == OpSet {
				if value, err := s.Get(ctx, change.Key); err == nil {
					change.Value = value
				}
			}
			fn(change)
		}
	}()
	return nil
}

func parseNotification(payload string) (Change, bool) {
	op, key, ok := strings.Cut(payload, ":")
	if !ok || key == "" {
		return Change{}, false
	}
	switch Op(op) {
	case OpSet, OpDelete:
		return Change{Key: key, Op: Op(op)}, true
	default:
		return Change{}, false
	}
}
