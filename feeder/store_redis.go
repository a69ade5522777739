package feeder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/bizopsbank/feeder/internal"
)

// insertIfAbsentScript makes the lose-path read atomic with the set: when
// HSETNX loses, the value returned is the one the winner stored, not whatever
// a later racing overwrite may have left behind.
const insertIfAbsentScript = `
if redis.call("HSETNX", KEYS[1], ARGV[1], ARGV[2]) == 1 then
    return false
else
    return redis.call("HGET", KEYS[1], ARGV[1])
end
`

// RedisSemaphoreStore implements SemaphoreStore on a single Redis hash.
// Field = decimal bounded key, value = 8 raw signature bytes. HSETNX is the
// cluster-wide atomic insert-if-absent primitive.
type RedisSemaphoreStore struct {
	rdb       redis.UniversalClient
	mapName   string
	opTimeout time.Duration
}

// NewRedisSemaphoreStore connects to Redis at addr (single node, cluster, or
// sentinel, see newUniversalRedisClient) and binds the semaphore to the hash
// named mapName.
func NewRedisSemaphoreStore(addr, mapName string, conf *Config) (*RedisSemaphoreStore, error) {
	rdb, err := newUniversalRedisClient(addr, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrStoreUnavailable, err)
	}
	return &RedisSemaphoreStore{
		rdb:       rdb,
		mapName:   mapName,
		opTimeout: conf.StoreOpTimeout,
	}, nil
}

var _ SemaphoreStore = (*RedisSemaphoreStore)(nil)

func (s *RedisSemaphoreStore) InsertIfAbsent(ctx context.Context, key uint16, sig []byte) ([]byte, error) {
	if err := validateSignature(sig); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	prev, err := s.rdb.Eval(ctx, insertIfAbsentScript,
		[]string{s.mapName}, fieldFor(key), string(sig)).Text()
	if errors.Is(err, redis.Nil) {
		// HSETNX succeeded, no previous value: we won the key.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: insertIfAbsent key %d: %v", internal.ErrStoreUnavailable, key, err)
	}
	if err := validateSignature([]byte(prev)); err != nil {
		return nil, fmt.Errorf("key %d: %w", key, err)
	}
	return []byte(prev), nil
}

func (s *RedisSemaphoreStore) Get(ctx context.Context, key uint16) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	val, err := s.rdb.HGet(ctx, s.mapName, fieldFor(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get key %d: %v", internal.ErrStoreUnavailable, key, err)
	}
	if err := validateSignature([]byte(val)); err != nil {
		return nil, fmt.Errorf("key %d: %w", key, err)
	}
	return []byte(val), nil
}

func (s *RedisSemaphoreStore) Put(ctx context.Context, key uint16, sig []byte) error {
	if err := validateSignature(sig); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.rdb.HSet(ctx, s.mapName, fieldFor(key), string(sig)).Err(); err != nil {
		return fmt.Errorf("%w: put key %d: %v", internal.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *RedisSemaphoreStore) Close() error {
	return s.rdb.Close()
}

// Rdb exposes the underlying client for components that share the same Redis
// (leader election).
func (s *RedisSemaphoreStore) Rdb() redis.UniversalClient {
	return s.rdb
}

// EntryCount returns the number of occupied keys, for operator visibility.
// Hard-bounded by KeySpace.
func (s *RedisSemaphoreStore) EntryCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := s.rdb.HLen(ctx, s.mapName).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: hlen: %v", internal.ErrStoreUnavailable, err)
	}
	return n, nil
}

func fieldFor(key uint16) string {
	return strconv.FormatUint(uint64(key), 10)
}

// validateSignature enforces the wire contract: exactly 8 raw bytes. A value
// of any other length is external corruption and treated like an unreachable
// store rather than silently coerced.
func validateSignature(sig []byte) error {
	if len(sig) != SignatureLen {
		return fmt.Errorf("%w: corrupt entry, signature is %d bytes, want %d",
			internal.ErrStoreUnavailable, len(sig), SignatureLen)
	}
	return nil
}

// newUniversalRedisClient creates a Redis client that can connect to a single
// node, a cluster, or a sentinel setup. Convention for sentinel mode:
// masterName,sentinel1:port,sentinel2:port...
// TODO:TLS
func newUniversalRedisClient(addr string, conf *Config) (redis.UniversalClient, error) {
	uri := "redis://" + addr
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid redis address format: %w", err)
	}

	opt, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("could not parse redis URL: %w", err)
	}

	// Password from environment if not in URL
	if opt.Password == "" {
		opt.Password = os.Getenv("REDIS_PASSWORD")
	}
	if opt.Password == "" {
		opt.Password = os.Getenv("META_PASSWORD")
	}

	universalOptions := &redis.UniversalOptions{
		Addrs:        strings.Split(u.Host, ","),
		DB:           opt.DB,
		Password:     opt.Password,
		MaxRetries:   conf.StoreRetries,
		PoolSize:     16,
		ReadTimeout:  conf.StoreOpTimeout,
		WriteTimeout: conf.StoreOpTimeout,
	}

	if universalOptions.MaxRetries == 0 {
		universalOptions.MaxRetries = -1 // disable retries in the client
	}

	hosts := strings.Split(u.Host, ",")
	if len(hosts) > 1 && !strings.Contains(hosts[0], ":") {
		universalOptions.MasterName = hosts[0]
		universalOptions.Addrs = hosts[1:]
		logger.Infof("Connecting to Redis in Sentinel mode. Master: %s, Sentinels: %v", universalOptions.MasterName, universalOptions.Addrs)
	} else if len(hosts) > 1 {
		logger.Infof("Connecting to Redis in Cluster mode. Nodes: %v", universalOptions.Addrs)
	} else {
		logger.Infof("Connecting to Redis in Single-node mode. Address: %s", universalOptions.Addrs[0])
	}

	rdb := redis.NewUniversalClient(universalOptions)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("Successfully connected to Redis.")
	return rdb, nil
}
