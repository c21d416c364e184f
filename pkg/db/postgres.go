package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/jacl-coder/RPS-Server/config"
)

var (
	// DB 全局数据库连接实例
	DB *sql.DB
)

// 连接池参数
const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// NewPostgres 按配置打开PostgreSQL连接池并检查连通性
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("数据库Ping失败: %w", err)
	}
	return conn, nil
}

// InitPostgres 初始化全局PostgreSQL连接
func InitPostgres() error {
	conn, err := NewPostgres(context.Background(), config.GlobalConfig.Database)
	if err != nil {
		return err
	}
	DB = conn

	log.Printf("成功连接到PostgreSQL数据库: %s:%d/%s",
		config.GlobalConfig.Database.Host, config.GlobalConfig.Database.Port, config.GlobalConfig.Database.DBName)
	return nil
}

// Close 关闭数据库连接
func Close() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("关闭数据库连接时发生错误: %v", err)
			return
		}
		log.Println("数据库连接已关闭")
	}
}
