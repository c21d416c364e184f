package stats

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStorage 把整张战绩表保存在 stats_snapshots 表的单行中
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage 创建PostgreSQL存储
func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// Load 读取战绩表
func (s *PostgresStorage) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM stats_snapshots WHERE id = 1").Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("读取战绩快照失败: %w", err)
	}
	return data, nil
}

// Save 覆盖写入战绩表
func (s *PostgresStorage) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stats_snapshots (id, data, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, string(data))
	if err != nil {
		return fmt.Errorf("写入战绩快照失败: %w", err)
	}
	return nil
}
