package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jacl-coder/RPS-Server/config"
)

var (
	// RedisClient 全局Redis客户端实例
	RedisClient *redis.Client
)

// NewRedisClient 按配置创建Redis客户端并检查连通性
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	return client, nil
}

// InitRedis 初始化全局Redis连接
func InitRedis() error {
	client, err := NewRedisClient(context.Background(), config.GlobalConfig.Redis)
	if err != nil {
		return err
	}
	RedisClient = client

	log.Printf("成功连接到Redis服务器: %s", config.GlobalConfig.Redis.GetRedisAddr())
	return nil
}

// CloseRedis 关闭Redis连接
func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			log.Printf("关闭Redis连接时发生错误: %v", err)
			return
		}
		log.Println("Redis连接已关闭")
	}
}
