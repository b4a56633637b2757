package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker records which users have a live socket. Every socket registers under its
// own connection id and must call Refresh at least once per Interval to stay counted.
type Tracker interface {
	Connect(ctx context.Context, userID int, connID string) error
	Refresh(ctx context.Context, userID int, connID string) error
	Disconnect(ctx context.Context, userID int, connID string) error
	IsOnline(ctx context.Context, userID int) (bool, error)
	// Interval is how often sockets should refresh. Zero disables the heartbeat.
	Interval() time.Duration
}

// RedisTracker keeps one sorted set per user under <prefix>:presence:<user>. Members
// are connection ids scored by the unix millisecond at which they lapse, so a socket
// whose instance died stops counting once its deadline passes.
type RedisTracker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisTracker constructs a RedisTracker. ttl <= 0 selects two minutes.
func NewRedisTracker(client *redis.Client, prefix string, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisTracker{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (t *RedisTracker) key(userID int) string {
	return fmt.Sprintf("%s:presence:%d", t.prefix, userID)
}

func millis(at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10)
}

// Connect registers connID as live until now+ttl.
func (t *RedisTracker) Connect(ctx context.Context, userID int, connID string) error {
	return t.touch(ctx, userID, connID)
}

// Refresh pushes the deadline of connID forward by ttl.
func (t *RedisTracker) Refresh(ctx context.Context, userID int, connID string) error {
	return t.touch(ctx, userID, connID)
}

func (t *RedisTracker) touch(ctx context.Context, userID int, connID string) error {
	now := t.now()
	key := t.key(userID)
	pipe := t.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+millis(now))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Add(t.ttl).UnixMilli()), Member: connID})
	pipe.Expire(ctx, key, t.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *RedisTracker) Disconnect(ctx context.Context, userID int, connID string) error {
	return t.client.ZRem(ctx, t.key(userID), connID).Err()
}

func (t *RedisTracker) IsOnline(ctx context.Context, userID int) (bool, error) {
	n, err := t.client.ZCount(ctx, t.key(userID), millis(t.now()), "+inf").Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Interval refreshes three times per ttl so one missed beat does not drop a socket.
func (t *RedisTracker) Interval() time.Duration {
	return t.ttl / 3
}

// Noop is used when Redis is not configured; nobody is ever reported online.
type Noop struct{}

func (Noop) Connect(context.Context, int, string) error    { return nil }
func (Noop) Refresh(context.Context, int, string) error    { return nil }
func (Noop) Disconnect(context.Context, int, string) error { return nil }
func (Noop) IsOnline(context.Context, int) (bool, error)   { return false, nil }
func (Noop) Interval() time.Duration                       { return 0 }

// New connects to Redis at addr, or returns Noop when addr is empty.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (Tracker, error) {
	if addr == "" {
		return Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisTracker(client, "couple", ttl), nil
}

// Close releases the Redis connection pool.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}
