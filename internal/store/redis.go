// redis.go

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// Redis键名默认值
const (
	DefaultRedisKey = "rps:highscores"
	DefaultChannel  = "rps_highscores"
)

// RedisScoreStore 基于Redis哈希的最高分存储，通过发布订阅推送变化
type RedisScoreStore struct {
	client  *redis.Client
	key     string
	channel string
	now     func() time.Time
}

// NewRedisScoreStore 创建Redis最高分存储
func NewRedisScoreStore(client *redis.Client, key, channel string) *RedisScoreStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisScoreStore{
		client:  client,
		key:     key,
		channel: channel,
		now:     time.Now,
	}
}

// ReadBest 读取用户最高分
func (s *RedisScoreStore) ReadBest(ctx context.Context, username string) (int, error) {
	data, err := s.client.HGet(ctx, s.key, username).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("读取最高分失败: %w", err)
	}

	var record models.ScoreRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return 0, fmt.Errorf("解析最高分失败: %w", err)
	}
	return record.Score, nil
}

// WriteBest 写入用户最高分并发布变化通知
func (s *RedisScoreStore) WriteBest(ctx context.Context, username string, score int) error {
	if username == "" {
		return ErrEmptyUsername
	}

	data, err := json.Marshal(models.ScoreRecord{
		Username:    username,
		Score:       score,
		LastUpdated: s.now().UTC(),
	})
	if err != nil {
		return err
	}

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, username, data)
		pipe.Publish(ctx, s.channel, username)
		return nil
	})
	if err != nil {
		return fmt.Errorf("写入最高分失败: %w", err)
	}
	return nil
}

// Snapshot 读取全部最高分
func (s *RedisScoreStore) Snapshot(ctx context.Context) (models.ScoreSnapshot, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("读取排行榜数据失败: %w", err)
	}

	snapshot := make(models.ScoreSnapshot, len(values))
	for username, data := range values {
		var record models.ScoreRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			log.Printf("跳过无法解析的最高分记录 %s: %v", username, err)
			continue
		}
		record.Username = username
		snapshot[username] = record
	}
	return snapshot, nil
}

// SubscribeAll 订阅频道，每条通知触发一次全量快照读取
func (s *RedisScoreStore) SubscribeAll(ctx context.Context, handler SnapshotHandler) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	pubsub := s.client.Subscribe(ctx, s.channel)
	// 等待订阅确认，避免丢失首个通知
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, fmt.Errorf("订阅最高分频道失败: %w", err)
	}

	initial, err := s.Snapshot(ctx)
	if err != nil {
		cancel()
		pubsub.Close()
		return nil, err
	}

	messages := pubsub.Channel()
	go func() {
		handler(initial)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				snapshot, err := s.Snapshot(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Printf("刷新排行榜快照失败: %v", err)
					}
					continue
				}
				handler(snapshot)
			}
		}
	}()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				log.Printf("关闭Redis订阅时发生错误: %v", err)
			}
		})
	}), nil
}
