// Package recipientlock keeps two report runs for the same recipient from
// overlapping, using a Redis lock shared by every process.
package recipientlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a crashed run can block its recipient.
	DefaultTTL = 10 * time.Minute

	// DefaultKeyPrefix namespaces lock keys.
	DefaultKeyPrefix = "budget-report:lock:"
)

var (
	// ErrLockNotAcquired is returned when another run holds the recipient.
	ErrLockNotAcquired = errors.New("lock not acquired")

	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over.
	ErrLockNotHeld = errors.New("lock not held")
)

var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Config holds configuration for recipient locks.
type Config struct {
	TTL       time.Duration // Lock TTL (default: 10m)
	KeyPrefix string        // Key prefix (default: "budget-report:lock:")
}

// Locker hands out per-recipient locks.
type Locker struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// New creates a Locker on client.
func New(client *redis.Client, cfg Config) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return &Locker{client: client, ttl: cfg.TTL, keyPrefix: cfg.KeyPrefix}
}

// Lease is a held lock.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// Key returns the Redis key of the lease.
func (l *Lease) Key() string { return l.key }

// Acquire takes the lock for recipient without waiting.
func (k *Locker) Acquire(ctx context.Context, recipient report.Recipient) (*Lease, error) {
	lease := &Lease{
		client: k.client,
		key:    k.Key(recipient),
		token:  uuid.New().String(),
	}

	ok, err := k.client.SetNX(ctx, lease.key, lease.token, k.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("Acquire: set %s: %w", lease.key, err)
	}
	if !ok {
		return nil, fmt.Errorf("Acquire: %s: %w", recipient, ErrLockNotAcquired)
	}
	return lease, nil
}

// Release drops the lock if this lease still holds it.
func (l *Lease) Release(ctx context.Context) error {
	result, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("Release: %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Do runs fn while holding the lock for recipient.
func (k *Locker) Do(ctx context.Context, recipient report.Recipient, fn func(ctx context.Context) error) error {
	lease, err := k.Acquire(ctx, recipient)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("key", lease.Key()).Msg("Acquired recipient lock")
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("key", lease.Key()).Msg("Failed to release recipient lock")
		}
	}()
	return fn(ctx)
}

// Key returns the lock key for recipient. Addresses are case-insensitive.
func (k *Locker) Key(recipient report.Recipient) string {
	return k.keyPrefix + strings.ToLower(strings.TrimSpace(string(recipient)))
}

// Generator is the part of report.Generator a guarded run needs.
type Generator interface {
	Generate(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error)
}

// Guarded serializes report runs per recipient.
type Guarded struct {
	locker *Locker
	next   Generator
}

// Guard wraps next so that each Generate call holds the recipient lock.
func Guard(locker *Locker, next Generator) *Guarded {
	return &Guarded{locker: locker, next: next}
}

// Generate runs next.Generate under the recipient lock.
func (g *Guarded) Generate(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error) {
	var receipt *report.DeliveryReceipt
	err := g.locker.Do(ctx, recipient, func(ctx context.Context) error {
		var err error
		receipt, err = g.next.Generate(ctx, recipient)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

var _ Generator = (*report.Generator)(nil)
var _ Generator = (*Guarded)(nil)
