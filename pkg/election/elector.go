package election

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bizopsbank/feeder/internal"
)

var logger = internal.GetLogger("election")

// LeaderElector elects a single node out of the cluster for work that must
// not run everywhere, such as raising monitoring alerts.
type LeaderElector interface {
	// Start begins the election loop. onAcquire runs when leadership is
	// acquired, with a context that is cancelled when leadership is lost;
	// onRelease runs when leadership is lost.
	Start(ctx context.Context, onAcquire func(context.Context), onRelease func()) error
	// Stop gracefully stops the election loop, releasing leadership if held.
	Stop()
	// IsLeader reports whether this instance currently holds the lease.
	IsLeader() bool
	// InstanceID returns the unique ID of this elector instance.
	InstanceID() string
}

// RedisLeaderElector implements LeaderElector with a Redis lease: SET NX PX
// to acquire, a Lua compare-and-expire to renew.
type RedisLeaderElector struct {
	rdb             redis.UniversalClient
	leaderKey       string
	instanceID      string
	leaseDuration   time.Duration
	renewalInterval time.Duration

	isLeader         atomic.Bool
	stopChan         chan struct{}
	wg               sync.WaitGroup
	onAcquire        func(context.Context)
	onRelease        func()
	leaderCancelFunc context.CancelFunc
}

// NewRedisLeaderElector creates an elector. renewalInterval must be
// significantly shorter than leaseDuration.
func NewRedisLeaderElector(rdb redis.UniversalClient, leaderKey string, leaseDuration, renewalInterval time.Duration) *RedisLeaderElector {
	return &RedisLeaderElector{
		rdb:             rdb,
		leaderKey:       leaderKey,
		instanceID:      uuid.New().String(),
		leaseDuration:   leaseDuration,
		renewalInterval: renewalInterval,
		stopChan:        make(chan struct{}),
	}
}

func (e *RedisLeaderElector) Start(ctx context.Context, onAcquire func(context.Context), onRelease func()) error {
	if e.onAcquire != nil || e.onRelease != nil {
		return fmt.Errorf("leader elector already started")
	}
	e.onAcquire = onAcquire
	e.onRelease = onRelease

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		logger.Infof("leader election worker for key '%s' (instance: %s) started", e.leaderKey, e.instanceID)

		ticker := time.NewTicker(e.renewalInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if e.isLeader.Load() {
					if !e.renewLeadership() {
						logger.Warnf("instance %s lost leadership for key '%s'", e.instanceID, e.leaderKey)
						e.releaseLeadership()
					}
				} else if e.tryAcquireLeadership() {
					logger.Infof("instance %s acquired leadership for key '%s'", e.instanceID, e.leaderKey)
					e.acquireLeadership()
				}
			case <-e.stopChan:
				if e.isLeader.Load() {
					e.releaseLeadership()
				}
				return
			case <-ctx.Done():
				if e.isLeader.Load() {
					e.releaseLeadership()
				}
				return
			}
		}
	}()
	return nil
}

func (e *RedisLeaderElector) Stop() {
	close(e.stopChan)
	e.wg.Wait()
}

func (e *RedisLeaderElector) IsLeader() bool {
	return e.isLeader.Load()
}

func (e *RedisLeaderElector) InstanceID() string {
	return e.instanceID
}

func (e *RedisLeaderElector) tryAcquireLeadership() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// SET key value NX PX expiry_ms
	cmd := e.rdb.SetNX(ctx, e.leaderKey, e.instanceID, e.leaseDuration)
	if cmd.Err() != nil {
		logger.Errorf("failed to try acquire leadership lock for key '%s': %v", e.leaderKey, cmd.Err())
		return false
	}
	return cmd.Val()
}

// renewLeadership extends the lease only if this instance still owns it.
func (e *RedisLeaderElector) renewLeadership() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	script := `
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("PEXPIRE", KEYS[1], ARGV[2])
        else
            return 0
        end
    `
	cmd := e.rdb.Eval(ctx, script, []string{e.leaderKey}, e.instanceID, e.leaseDuration.Milliseconds())
	if cmd.Err() != nil {
		logger.Errorf("failed to renew leadership lock for key '%s': %v", e.leaderKey, cmd.Err())
		return false
	}
	renewed, ok := cmd.Val().(int64)
	return ok && renewed == 1
}

func (e *RedisLeaderElector) acquireLeadership() {
	e.isLeader.Store(true)
	var leaderCtx context.Context
	leaderCtx, e.leaderCancelFunc = context.WithCancel(context.Background())
	if e.onAcquire != nil {
		e.onAcquire(leaderCtx)
	}
}

func (e *RedisLeaderElector) releaseLeadership() {
	e.isLeader.Store(false)
	if e.leaderCancelFunc != nil {
		e.leaderCancelFunc()
		e.leaderCancelFunc = nil
	}
	if e.onRelease != nil {
		e.onRelease()
	}
}
