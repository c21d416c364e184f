// schema.go

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// 统一的数据库表结构定义

// CreateAllTablesSQL 创建所有表的SQL语句
const CreateAllTablesSQL = `
-- 最高分表，一个用户一行
CREATE TABLE IF NOT EXISTS highscores (
    username VARCHAR(64) PRIMARY KEY,
    score INT NOT NULL DEFAULT 0,
    last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- 战绩表快照，整表保存为一行JSON
CREATE TABLE IF NOT EXISTS stats_snapshots (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    data TEXT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- 排行榜查询按分数倒序
CREATE INDEX IF NOT EXISTS idx_highscores_score ON highscores(score DESC, username);
`

// DropAllTablesSQL 删除所有表的SQL语句
const DropAllTablesSQL = `
DROP TABLE IF EXISTS stats_snapshots CASCADE;
DROP TABLE IF EXISTS highscores CASCADE;
`

// Tables 已管理的表
var Tables = []string{"highscores", "stats_snapshots"}

// InitAllTables 初始化所有数据库表
func InitAllTables(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, CreateAllTablesSQL); err != nil {
		return fmt.Errorf("创建数据表失败: %w", err)
	}
	return nil
}

// DropAllTables 删除所有数据库表
func DropAllTables(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, DropAllTablesSQL); err != nil {
		return fmt.Errorf("删除数据表失败: %w", err)
	}
	return nil
}
