package recipientlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, cfg Config) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mini
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	locker, mini := newTestLocker(t, Config{})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "budget-report:lock:alice@example.com", lease.Key())
	assert.True(t, mini.Exists(lease.Key()))
	assert.Equal(t, DefaultTTL, mini.TTL(lease.Key()))

	_, err = locker.Acquire(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mini.Exists(lease.Key()))

	again, err := locker.Acquire(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_ReleaseAfterExpiry(t *testing.T) {
	locker, mini := newTestLocker(t, Config{TTL: time.Second})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "alice@example.com")
	require.NoError(t, err)

	mini.FastForward(2 * time.Second)

	other, err := locker.Acquire(ctx, "alice@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, lease.Release(ctx), ErrLockNotHeld)
	assert.True(t, mini.Exists(other.Key()), "stale lease must not drop the new holder")
}

func TestLocker_RecipientsAreIndependent(t *testing.T) {
	locker, _ := newTestLocker(t, Config{KeyPrefix: "test:"})
	ctx := context.Background()

	a, err := locker.Acquire(ctx, "alice@example.com")
	require.NoError(t, err)
	b, err := locker.Acquire(ctx, "bob@example.com")
	require.NoError(t, err)

	assert.Equal(t, "test:bob@example.com", b.Key())
	require.NoError(t, a.Release(ctx))
	require.NoError(t, b.Release(ctx))
}

func TestLocker_DoReleasesOnError(t *testing.T) {
	locker, mini := newTestLocker(t, Config{})
	boom := errors.New("boom")

	err := locker.Do(context.Background(), "alice@example.com", func(context.Context) error {
		assert.True(t, mini.Exists("budget-report:lock:alice@example.com"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mini.Exists("budget-report:lock:alice@example.com"))
}

func TestLocker_UnavailableRedis(t *testing.T) {
	locker, mini := newTestLocker(t, Config{})
	mini.Close()

	_, err := locker.Acquire(context.Background(), "alice@example.com")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}

// MockGenerator is a mock implementation of Generator for testing.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error)
	Calls        int
}

func (m *MockGenerator) Generate(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error) {
	m.Calls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, recipient)
	}
	return &report.DeliveryReceipt{Recipient: recipient}, nil
}

func TestGuarded_Generate(t *testing.T) {
	locker, _ := newTestLocker(t, Config{})
	ctx := context.Background()
	gen := &MockGenerator{}
	guarded := Guard(locker, gen)

	receipt, err := guarded.Generate(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, report.Recipient("alice@example.com"), receipt.Recipient)

	// A concurrent holder blocks the run without invoking the pipeline.
	lease, err := locker.Acquire(ctx, "alice@example.com")
	require.NoError(t, err)
	defer func() { _ = lease.Release(ctx) }()

	receipt, err = guarded.Generate(ctx, "alice@example.com")
	assert.Nil(t, receipt)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.Equal(t, 1, gen.Calls)
}
