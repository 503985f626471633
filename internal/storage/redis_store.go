package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryTTL = 90 * 24 * time.Hour

// Delivery records one live newsletter send.
type Delivery struct {
	PostID     string    `json:"post_id"`
	Title      string    `json:"title"`
	Subject    string    `json:"subject"`
	Recipients int       `json:"recipients"`
	RunID      string    `json:"run_id"`
	SentAt     time.Time `json:"sent_at"`
}

// RedisStore caches Ghost settings and remembers which posts were already delivered.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func settingsKey(kind string) string {
	return fmt.Sprintf("newsletter:settings:%s", kind)
}

func deliveredKey(postID string) string {
	return fmt.Sprintf("newsletter:delivered:%s", postID)
}

const historyKey = "newsletter:deliveries"

// SaveSettings caches a settings object ("branding" or "newsletter") for ttl.
func (s *RedisStore) SaveSettings(ctx context.Context, kind string, v map[string]any, ttl time.Duration) error {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, settingsKey(kind), b, ttl).Err()
}

// LoadSettings returns the cached settings object, or nil when nothing is cached.
func (s *RedisStore) LoadSettings(ctx context.Context, kind string) (map[string]any, error) {
	b, err := s.rdb.Get(ctx, settingsKey(kind)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode cached %s settings: %w", kind, err)
	}
	return out, nil
}

// IsDelivered reports whether the post was already sent to subscribers.
func (s *RedisStore) IsDelivered(ctx context.Context, postID string) (bool, error) {
	res, err := s.rdb.Get(ctx, deliveredKey(postID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res != "", nil
}

// MarkDelivered stores the delivery marker and appends it to the delivery history.
func (s *RedisStore) MarkDelivered(ctx context.Context, d Delivery) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, deliveredKey(d.PostID), b, deliveryTTL).Err(); err != nil {
		return err
	}
	z := redis.Z{Score: float64(d.SentAt.Unix()), Member: d.PostID}
	return s.rdb.ZAdd(ctx, historyKey, z).Err()
}

// RecentDeliveries returns up to n deliveries, newest first.
func (s *RedisStore) RecentDeliveries(ctx context.Context, n int) ([]Delivery, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := s.rdb.ZRevRange(ctx, historyKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Delivery, 0, len(ids))
	for _, id := range ids {
		b, err := s.rdb.Get(ctx, deliveredKey(id)).Bytes()
		if err == redis.Nil {
			// marker expired; drop it from the history as well
			s.rdb.ZRem(ctx, historyKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		var d Delivery
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
