package voiceprint

import (
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"
)

const redisKey = "voxgate:voiceprint"

// RedisStore keeps the voiceprint as a JSON value under a fixed key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load implements Store.
func (s *RedisStore) Load() (*Voiceprint, error) {
	data, err := s.client.Get(redisKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read voiceprint from redis: %w", err)
	}

	var vp Voiceprint
	if err := json.Unmarshal(data, &vp); err != nil {
		return nil, fmt.Errorf("decode voiceprint from redis: %w", err)
	}
	return &vp, nil
}

// Save implements Store.
func (s *RedisStore) Save(vp *Voiceprint) error {
	data, err := json.Marshal(vp)
	if err != nil {
		return fmt.Errorf("encode voiceprint: %w", err)
	}
	if err := s.client.Set(redisKey, data, 0).Err(); err != nil {
		return fmt.Errorf("write voiceprint to redis: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear() error {
	if err := s.client.Del(redisKey).Err(); err != nil {
		return fmt.Errorf("delete voiceprint from redis: %w", err)
	}
	return nil
}
