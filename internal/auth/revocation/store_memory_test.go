package revocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruconnect/pkg/platform/sentinel"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestInMemoryTRL_RevokeAndCheck(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	trl := NewInMemoryTRL(WithClock(clock.Now))

	jti := uuid.NewString()

	revoked, err := trl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked, "unknown jti is not revoked")

	require.NoError(t, trl.RevokeToken(ctx, jti, 15*time.Minute))

	revoked, err = trl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestInMemoryTRL_ExpiryLapses(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	trl := NewInMemoryTRL(WithClock(clock.Now))

	jti := uuid.NewString()
	require.NoError(t, trl.RevokeToken(ctx, jti, 10*time.Minute))

	clock.Advance(11 * time.Minute)

	revoked, err := trl.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked, "entry past its TTL is no longer revoked")
}

func TestInMemoryTRL_RevokeSessionTokens(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	trl := NewInMemoryTRL(WithClock(clock.Now))

	jtis := []string{uuid.NewString(), "", uuid.NewString()}
	require.NoError(t, trl.RevokeSessionTokens(ctx, uuid.NewString(), jtis, time.Hour))

	for _, jti := range jtis {
		if jti == "" {
			continue
		}
		revoked, err := trl.IsRevoked(ctx, jti)
		require.NoError(t, err)
		assert.True(t, revoked)
	}

	revoked, err := trl.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked, "empty jti is never revoked")
}

func TestInMemoryTRL_RejectsNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	trl := NewInMemoryTRL()

	err := trl.RevokeToken(ctx, uuid.NewString(), 0)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)

	err = trl.RevokeSessionTokens(ctx, uuid.NewString(), []string{uuid.NewString()}, -time.Second)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestInMemoryTRL_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	trl := NewInMemoryTRL()

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jti := uuid.NewString()
			if err := trl.RevokeToken(ctx, jti, time.Hour); err != nil {
				t.Error(err)
				return
			}
			revoked, err := trl.IsRevoked(ctx, jti)
			if err != nil {
				t.Error(err)
				return
			}
			if !revoked {
				t.Error("expected jti to be revoked")
			}
		}()
	}
	wg.Wait()
}
