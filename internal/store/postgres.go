// postgres.go

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// PostgresScoreStore 基于PostgreSQL的最高分存储，通过 LISTEN/NOTIFY 推送变化
type PostgresScoreStore struct {
	db      *sql.DB
	dsn     string
	channel string

	// 监听器重连间隔
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
}

// NewPostgresScoreStore 创建PostgreSQL最高分存储，dsn 用于建立独立的监听连接
func NewPostgresScoreStore(db *sql.DB, dsn, channel string) *PostgresScoreStore {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PostgresScoreStore{
		db:                   db,
		dsn:                  dsn,
		channel:              channel,
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
	}
}

// ReadBest 读取用户最高分
func (s *PostgresScoreStore) ReadBest(ctx context.Context, username string) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx,
		"SELECT score FROM highscores WHERE username = $1", username,
	).Scan(&score)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("读取最高分失败: %w", err)
	}
	return score, nil
}

// WriteBest 写入用户最高分并发送通知
func (s *PostgresScoreStore) WriteBest(ctx context.Context, username string, score int) error {
	if username == "" {
		return ErrEmptyUsername
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO highscores (username, score, last_updated)
		VALUES ($1, $2, NOW())
		ON CONFLICT (username) DO UPDATE
		SET score = EXCLUDED.score, last_updated = EXCLUDED.last_updated
	`, username, score)
	if err != nil {
		return fmt.Errorf("写入最高分失败: %w", err)
	}

	// NOTIFY 在事务提交后才会投递
	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", s.channel, username); err != nil {
		return fmt.Errorf("发送最高分通知失败: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交最高分失败: %w", err)
	}
	return nil
}

// Snapshot 读取全部最高分
func (s *PostgresScoreStore) Snapshot(ctx context.Context) (models.ScoreSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT username, score, last_updated FROM highscores ORDER BY username",
	)
	if err != nil {
		return nil, fmt.Errorf("查询排行榜数据失败: %w", err)
	}
	defer rows.Close()

	snapshot := make(models.ScoreSnapshot)
	for rows.Next() {
		var record models.ScoreRecord
		if err := rows.Scan(&record.Username, &record.Score, &record.LastUpdated); err != nil {
			return nil, fmt.Errorf("扫描排行榜数据失败: %w", err)
		}
		snapshot[record.Username] = record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历排行榜数据失败: %w", err)
	}
	return snapshot, nil
}

// SubscribeAll 通过 pq.Listener 监听通知频道，每次通知或重连后重新读取快照
func (s *PostgresScoreStore) SubscribeAll(ctx context.Context, handler SnapshotHandler) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	listener := pq.NewListener(s.dsn, s.MinReconnectInterval, s.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("最高分监听连接事件 %d: %v", ev, err)
			}
		})
	if err := listener.Listen(s.channel); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("监听最高分频道失败: %w", err)
	}

	initial, err := s.Snapshot(ctx)
	if err != nil {
		cancel()
		listener.Close()
		return nil, err
	}

	go func() {
		handler(initial)
		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-listener.Notify:
				if !ok {
					return
				}
				// 重连后会收到 nil 通知，同样需要刷新
				snapshot, err := s.Snapshot(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Printf("刷新排行榜快照失败: %v", err)
					}
					continue
				}
				handler(snapshot)
			case <-ping.C:
				if err := listener.Ping(); err != nil {
					log.Printf("最高分监听连接检查失败: %v", err)
				}
			}
		}
	}()

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			if err := listener.Close(); err != nil {
				log.Printf("关闭最高分监听器时发生错误: %v", err)
			}
		})
	}), nil
}
