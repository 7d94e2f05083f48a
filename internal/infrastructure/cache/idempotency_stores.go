package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key namespaces on the shared backend
const (
	PaymentKeyspace = "invoicing:payments:"
	EventKeyspace   = "invoicing:events:"
)

const redisPingTimeout = 5 * time.Second

// IdempotencyStores holds the two idempotency stores of the server.
// Payments deduplicates RecordPayment calls carrying an Idempotency-Key header.
// Events deduplicates deliveries to event handlers. Both sit on one backend.
type IdempotencyStores struct {
	Payments shared.IdempotencyStore
	Events   shared.IdempotencyStore
	Backend  string

	closers []func() error
}

// OpenIdempotencyStores builds the stores from the redis settings.
// With redis disabled both stores live in memory, which is only correct for a single
// instance: a retried payment routed to another instance would be recorded twice.
// An unreachable redis is fatal when cfg.Required is set and degrades to memory otherwise.
func OpenIdempotencyStores(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*IdempotencyStores, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if !cfg.Enabled {
		log.Info("redis disabled, payment idempotency keys are held in memory")
		return inMemoryStores(), nil
	}

	client, err := dialRedis(ctx, cfg)
	if err == nil {
		log.Info("payment idempotency keys are held in redis", zap.String("addr", cfg.Addr()))
		return &IdempotencyStores{
			Payments: NewRedisIdempotencyStoreWithClient(client, PaymentKeyspace),
			Events:   NewRedisIdempotencyStoreWithClient(client, EventKeyspace),
			Backend:  "redis",
			closers:  []func() error{client.Close},
		}, nil
	}

	if cfg.Required {
		return nil, fmt.Errorf("redis is required for payment idempotency: %w", err)
	}
	log.Warn("redis unreachable, falling back to in-memory payment idempotency",
		zap.String("addr", cfg.Addr()),
		zap.Error(err),
	)
	return inMemoryStores(), nil
}

func inMemoryStores() *IdempotencyStores {
	payments := NewInMemoryIdempotencyStore()
	events := NewInMemoryIdempotencyStore()
	return &IdempotencyStores{
		Payments: payments,
		Events:   events,
		Backend:  "memory",
		closers:  []func() error{payments.Close, events.Close},
	}
}

func dialRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Close releases the backend once, however many stores share it
func (s *IdempotencyStores) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
