package election

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	assert.Eventually(t, cond, 3*time.Second, 10*time.Millisecond, msg)
}

func TestSingleInstanceBecomesLeader(t *testing.T) {
	_, rdb := newTestClient(t)

	acquired := make(chan struct{}, 1)
	e := NewRedisLeaderElector(rdb, "test:leader", time.Second, 20*time.Millisecond)
	require.NoError(t, e.Start(context.Background(), func(context.Context) {
		acquired <- struct{}{}
	}, nil))
	defer e.Stop()

	select {
	case <-acquired:
	case <-time.After(3 * time.Second):
		t.Fatal("instance never acquired leadership")
	}
	assert.True(t, e.IsLeader())
}

func TestOnlyOneLeaderAtATime(t *testing.T) {
	_, rdb := newTestClient(t)

	e1 := NewRedisLeaderElector(rdb, "test:leader", time.Second, 20*time.Millisecond)
	e2 := NewRedisLeaderElector(rdb, "test:leader", time.Second, 20*time.Millisecond)
	require.NotEqual(t, e1.InstanceID(), e2.InstanceID())

	require.NoError(t, e1.Start(context.Background(), nil, nil))
	require.NoError(t, e2.Start(context.Background(), nil, nil))
	defer e1.Stop()
	defer e2.Stop()

	waitUntil(t, func() bool { return e1.IsLeader() || e2.IsLeader() }, "no leader elected")
	time.Sleep(100 * time.Millisecond)
	assert.False(t, e1.IsLeader() && e2.IsLeader(), "both instances claim leadership")
}

func TestLeadershipLostWhenLeaseStolen(t *testing.T) {
	mr, rdb := newTestClient(t)

	released := make(chan struct{}, 1)
	e := NewRedisLeaderElector(rdb, "test:leader", time.Second, 20*time.Millisecond)
	require.NoError(t, e.Start(context.Background(), nil, func() {
		released <- struct{}{}
	}))
	defer e.Stop()

	waitUntil(t, e.IsLeader, "instance never acquired leadership")

	// another instance grabbing the key must demote this one
	mr.Set("test:leader", "someone-else")

	select {
	case <-released:
	case <-time.After(3 * time.Second):
		t.Fatal("leadership loss was never signalled")
	}
	assert.False(t, e.IsLeader())
}

func TestStartTwiceFails(t *testing.T) {
	_, rdb := newTestClient(t)

	e := NewRedisLeaderElector(rdb, "test:leader", time.Second, 20*time.Millisecond)
	require.NoError(t, e.Start(context.Background(), func(context.Context) {}, nil))
	defer e.Stop()

	assert.Error(t, e.Start(context.Background(), nil, nil))
}
