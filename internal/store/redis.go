package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carehome-go/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	alertFeedTTL     = 7 * 24 * time.Hour
	alertTimelineKey = "alerts:timeline"
	alertChannel     = "alert_events"
)

// RedisStore backs the live alert feed and the sweep coordination keys.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(opts *redis.Options) *RedisStore {
	return &RedisStore{client: redis.NewClient(opts)}
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// PublishAlert records the alert on the recent timeline and pushes it to
// live subscribers.
func (s *RedisStore) PublishAlert(ctx context.Context, a models.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("alert:%d", a.ID)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, alertFeedTTL)
	pipe.ZAdd(ctx, alertTimelineKey, redis.Z{
		Score:  float64(a.CreatedAt.UnixMilli()),
		Member: key,
	})
	pipe.Publish(ctx, alertChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish alert %d: %w", a.ID, err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts from the timeline, newest first.
// Expired entries are pruned from the timeline as they are found.
func (s *RedisStore) RecentAlerts(ctx context.Context, limit int64) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	keys, err := s.client.ZRevRange(ctx, alertTimelineKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	var alerts []models.Alert
	for _, key := range keys {
		val, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			s.client.ZRem(ctx, alertTimelineKey, key)
			continue
		} else if err != nil {
			return nil, err
		}

		var a models.Alert
		if err := json.Unmarshal([]byte(val), &a); err == nil {
			alerts = append(alerts, a)
		}
	}
	return alerts, nil
}

func (s *RedisStore) Subscribe(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, alertChannel)
}

// Sweep coordination

func sweepLockKey(job string) string { return "sweep:lock:" + job }
func sweepLastKey(job string) string { return "sweep:last:" + job }

// AcquireSweepLock takes the job lock for ttl. It reports false when another
// pass holds it.
func (s *RedisStore) AcquireSweepLock(ctx context.Context, job, owner string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, sweepLockKey(job), owner, ttl).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ReleaseSweepLock drops the lock only if owner still holds it.
func (s *RedisStore) ReleaseSweepLock(ctx context.Context, job, owner string) error {
	return releaseScript.Run(ctx, s.client, []string{sweepLockKey(job)}, owner).Err()
}

func (s *RedisStore) SetLastRun(ctx context.Context, job string, summary []byte) error {
	return s.client.Set(ctx, sweepLastKey(job), summary, 0).Err()
}

// GetLastRun returns the stored summary of the job's last pass, or nil when
// it has never run.
func (s *RedisStore) GetLastRun(ctx context.Context, job string) ([]byte, error) {
	data, err := s.client.Get(ctx, sweepLastKey(job)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}
