package stats

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey 战绩表在Redis中的键
const DefaultRedisKey = "rps:stats"

// RedisStorage 把整张战绩表保存为一个Redis字符串
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage 创建Redis存储
func NewRedisStorage(client *redis.Client, key string) *RedisStorage {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStorage{client: client, key: key}
}

// Load 读取战绩表
func (s *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("读取Redis战绩失败: %w", err)
	}
	return data, nil
}

// Save 覆盖写入战绩表
func (s *RedisStorage) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("写入Redis战绩失败: %w", err)
	}
	return nil
}
